// Package ecoboard provides a live energy dashboard for a server fleet.
//
// EcoBoard polls a load-optimisation API and keeps four panels up to date
// in the browser: current server usage over time, the optimised load
// allocation, a one-hour load prediction and a set of summary metrics.
//
// # Quick Start
//
//	d, _ := ecoboard.New(ecoboard.WithAPIBase("http://localhost:5000"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	d.Start(ctx) // blocks until context is cancelled
//
// # Upstream API
//
// Three JSON endpoints are fetched below {base}/api/:
//
//   - usage_data: per-server samples with server_id, timestamp, usage and
//     energy_consumption
//   - optimize: the optimised allocation with server_id, allocated_load
//     and energy_consumption
//   - predict_load: an object with predicted_load
//
// # Polling
//
// A polling cycle starts immediately and then every 5 seconds. Each cycle
// renders the four panels independently: a failing request leaves its panel
// showing the previous render, and the other panels still update. Failures
// are logged and passed to handlers registered with [WithErrorHandler].
//
// # Metrics
//
// The metrics panel shows:
//
//   - Server Utilization Rate: total usage divided by the fleet capacity
//     (450 by default, see [WithTotalCapacity])
//   - Energy Savings: the relative drop from current to optimised energy
//   - Total Energy Consumption: current energy in kWh
//
// Values are shown with two decimals. An empty usage dataset yields NaN%
// savings rather than an error.
//
// # HTTP Endpoints
//
// The dashboard server exposes:
//
//   - GET /               - Dashboard UI
//   - GET /api/panels     - Latest render of every panel as JSON
//   - GET /api/panels/{id} - One panel
//   - GET /api/sse        - Server-Sent Events stream of panel updates
//   - GET /charts/{id}.svg - Server-side SVG render of a chart panel
//   - GET /metrics        - Prometheus metrics
//   - GET /healthz        - Health check
//
// # Thread Safety
//
// A [Dashboard] is safe for concurrent use. Render callbacks and error
// handlers may be called from multiple goroutines at once.
package ecoboard
