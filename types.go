package ecoboard

import (
	"fmt"
	"time"

	"github.com/jpalmerr/ecoboard/internal/panel"
	"github.com/jpalmerr/ecoboard/internal/store"
)

// Figure is a chart in the browser plotting library's {data, layout} form.
type Figure = panel.Figure

// Trace is one plotted series of a [Figure].
type Trace = panel.Trace

// Summary holds the aggregates shown in the metrics panel.
type Summary = panel.Summary

// Panel kinds.
const (
	KindChart = store.KindChart
	KindHTML  = store.KindHTML
)

// Panel is the latest render of one dashboard container.
type Panel struct {
	ID         string
	Kind       string
	Figure     *Figure
	HTML       string
	Tick       string
	RenderedAt time.Time
}

// RenderEvent describes a successful panel render.
//
// Figure is set for chart panels. Summary is set for the metrics panel.
type RenderEvent struct {
	Panel      string
	Tick       string
	RenderedAt time.Time
	Figure     *Figure
	Summary    *Summary
}

// RenderError reports a failed render of one panel in one polling cycle.
//
// The panel keeps its previous content when a render fails.
type RenderError struct {
	Panel string
	Tick  string
	Err   error
}

func (e RenderError) Error() string {
	return fmt.Sprintf("render %s (tick %s): %v", e.Panel, e.Tick, e.Err)
}

func (e RenderError) Unwrap() error {
	return e.Err
}

// toPublicPanel converts a stored panel. The figure is deep-copied so
// callers cannot mutate the store.
func toPublicPanel(p store.Panel) Panel {
	return Panel{
		ID:         p.ID,
		Kind:       p.Kind,
		Figure:     p.Figure.Clone(),
		HTML:       p.HTML,
		Tick:       p.Tick,
		RenderedAt: p.RenderedAt,
	}
}
