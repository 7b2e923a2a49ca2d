package ecoboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/ecoboard/internal/panel"
	"github.com/jpalmerr/ecoboard/internal/store"
)

// Upstream API endpoints, relative to {apiBase}/api/.
const (
	EndpointUsageData   = "usage_data"
	EndpointOptimize    = "optimize"
	EndpointPredictLoad = "predict_load"
)

// ErrMalformedPayload is wrapped by render errors when the API answers with
// valid JSON of the wrong shape, such as null where an array is expected.
var ErrMalformedPayload = errors.New("malformed payload")

// Container IDs of the dashboard panels.
const (
	UsageChartID        = panel.UsageChartID
	OptimizationChartID = panel.OptimizationChartID
	PredictionChartID   = panel.PredictionChartID
	MetricsContainerID  = panel.MetricsContainerID
)

// PanelIDs returns the container IDs of all panels in render order.
func PanelIDs() []string {
	return []string{UsageChartID, OptimizationChartID, PredictionChartID, MetricsContainerID}
}

// RenderUsageChart fetches the usage dataset and replaces the usage chart
// with one line per server.
//
// On failure the panel keeps its previous content and the error is returned
// and passed to the error handlers.
func (d *Dashboard) RenderUsageChart(ctx context.Context) error {
	return d.runRender(ctx, UsageChartID, uuid.NewString())
}

// RenderOptimizationChart fetches the optimised allocation and replaces the
// optimisation chart with grouped load and energy bars per server.
func (d *Dashboard) RenderOptimizationChart(ctx context.Context) error {
	return d.runRender(ctx, OptimizationChartID, uuid.NewString())
}

// RenderPredictionChart fetches the load prediction and replaces the
// prediction chart with a point one hour from now.
func (d *Dashboard) RenderPredictionChart(ctx context.Context) error {
	return d.runRender(ctx, PredictionChartID, uuid.NewString())
}

// RenderMetrics fetches the usage and optimisation datasets concurrently and
// replaces the metrics panel with utilisation, savings and energy cards.
func (d *Dashboard) RenderMetrics(ctx context.Context) error {
	return d.runRender(ctx, MetricsContainerID, uuid.NewString())
}

// runRender renders one panel and records the outcome.
func (d *Dashboard) runRender(ctx context.Context, panelID, tick string) error {
	start := time.Now()
	err := d.render(ctx, panelID, tick)
	d.observe(panelID, tick, time.Since(start), err)
	if err != nil {
		return RenderError{Panel: panelID, Tick: tick, Err: err}
	}
	return nil
}

// render builds a panel and, on success, replaces it in the store and fires
// the render callbacks. Nothing is stored when building fails.
func (d *Dashboard) render(ctx context.Context, panelID, tick string) error {
	var (
		p       store.Panel
		summary *Summary
		err     error
	)

	switch panelID {
	case UsageChartID:
		p, err = d.buildUsageChart(ctx)
	case OptimizationChartID:
		p, err = d.buildOptimizationChart(ctx)
	case PredictionChartID:
		p, err = d.buildPredictionChart(ctx)
	case MetricsContainerID:
		var s Summary
		p, s, err = d.buildMetrics(ctx)
		summary = &s
	default:
		return fmt.Errorf("unknown panel %q", panelID)
	}
	if err != nil {
		return err
	}

	p.ID = panelID
	p.Tick = tick
	p.RenderedAt = d.now()
	d.store.Update(p)

	// every callback gets its own figure; none of them shares the stored one
	for _, cb := range d.renderCallbacks {
		event := RenderEvent{
			Panel:      panelID,
			Tick:       tick,
			RenderedAt: p.RenderedAt,
			Figure:     p.Figure.Clone(),
		}
		if summary != nil {
			s := *summary
			event.Summary = &s
		}
		invokeSafe(d.logger, "render callback", panelID, func() { cb(event) })
	}
	return nil
}

func (d *Dashboard) buildUsageChart(ctx context.Context) (store.Panel, error) {
	var usage []panel.UsageRecord
	if err := fetchArray(ctx, d, EndpointUsageData, &usage); err != nil {
		return store.Panel{}, err
	}
	fig := panel.UsageFigure(usage)
	return store.Panel{Kind: store.KindChart, Figure: &fig}, nil
}

func (d *Dashboard) buildOptimizationChart(ctx context.Context) (store.Panel, error) {
	var optimized []panel.OptimizationRecord
	if err := fetchArray(ctx, d, EndpointOptimize, &optimized); err != nil {
		return store.Panel{}, err
	}
	fig := panel.OptimizationFigure(optimized)
	return store.Panel{Kind: store.KindChart, Figure: &fig}, nil
}

func (d *Dashboard) buildPredictionChart(ctx context.Context) (store.Panel, error) {
	var prediction *panel.PredictionResult
	if err := d.fetchJSON(ctx, EndpointPredictLoad, &prediction); err != nil {
		return store.Panel{}, err
	}
	if prediction == nil {
		return store.Panel{}, fmt.Errorf("%w: %s is null", ErrMalformedPayload, EndpointPredictLoad)
	}
	fig := panel.PredictionFigure(d.now(), *prediction)
	return store.Panel{Kind: store.KindChart, Figure: &fig}, nil
}

func (d *Dashboard) buildMetrics(ctx context.Context) (store.Panel, Summary, error) {
	var (
		usage     []panel.UsageRecord
		optimized []panel.OptimizationRecord
	)

	// both datasets are required; the first failure cancels the other fetch
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fetchArray(gctx, d, EndpointUsageData, &usage) })
	g.Go(func() error { return fetchArray(gctx, d, EndpointOptimize, &optimized) })
	if err := g.Wait(); err != nil {
		return store.Panel{}, Summary{}, err
	}

	summary := panel.ComputeSummary(usage, optimized, d.totalCapacity)
	html, err := summary.HTML()
	if err != nil {
		return store.Panel{}, Summary{}, fmt.Errorf("render metric cards: %w", err)
	}
	d.metrics.ObserveSummary(summary.UtilizationRate, summary.EnergySavings, summary.TotalEnergyConsumption)

	return store.Panel{Kind: store.KindHTML, HTML: html}, summary, nil
}

// fetchArray fetches an endpoint that must answer with a JSON array. A null
// body is rejected so the panel keeps its previous render.
func fetchArray[T any](ctx context.Context, d *Dashboard, endpoint string, records *[]T) error {
	if err := d.fetchJSON(ctx, endpoint, records); err != nil {
		return err
	}
	if *records == nil {
		return fmt.Errorf("%w: %s is not an array", ErrMalformedPayload, endpoint)
	}
	return nil
}

// fetchJSON GETs {apiBase}/api/{endpoint} and decodes the body into v.
func (d *Dashboard) fetchJSON(ctx context.Context, endpoint string, v any) error {
	start := time.Now()
	err := d.client.Get(ctx, endpoint, v)
	d.metrics.ObserveFetch(endpoint, time.Since(start), err)

	return err
}
