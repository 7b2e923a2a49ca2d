// Package dashboard provides the embedded web UI assets for EcoBoard.
//
// The page holds the four panel containers (usage-chart, optimization-chart,
// prediction-chart and metrics-container), subscribes to /api/sse and redraws
// a container whenever its panel is re-rendered.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
//	assets/
//	  index.html    - dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
