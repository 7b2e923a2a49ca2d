// Package telemetry exposes EcoBoard's Prometheus metrics.
//
// Every [Metrics] value owns its own registry, so several dashboards can live
// in one process (tests included) without duplicate registration panics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the dashboard's collectors and the registry they are
// registered on. Build one with [New]; [Metrics.Handler] serves it.
type Metrics struct {
	RenderCount     *prometheus.CounterVec
	RenderTimestamp *prometheus.GaugeVec
	FetchDuration   *prometheus.HistogramVec
	UtilizationRate prometheus.Gauge
	EnergySavings   prometheus.Gauge
	EnergyConsumed  prometheus.Gauge

	registry *prometheus.Registry
}

// RenderCount counts render operations per panel and outcome.
func RenderCount() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecoboard_renders_total",
			Help: "Total number of panel render operations",
		},
		[]string{"panel", "outcome"},
	)
}

// RenderTimestamp records when each panel was last replaced.
func RenderTimestamp() *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecoboard_panel_last_render_timestamp_seconds",
			Help: "Unix time of the last successful render of a panel",
		},
		[]string{"panel"},
	)
}

// FetchDuration observes upstream API latency per endpoint.
func FetchDuration() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecoboard_fetch_duration_seconds",
			Help:    "Latency of upstream API requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "outcome"},
	)
}

func summaryGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
//
// ticks is sampled at scrape time for ecoboard_ticks_total; it may be nil.
func New(ticks func() uint64) *Metrics {
	m := &Metrics{
		RenderCount:     RenderCount(),
		RenderTimestamp: RenderTimestamp(),
		FetchDuration:   FetchDuration(),
		UtilizationRate: summaryGauge("ecoboard_utilization_rate_percent", "Last computed server utilization rate"),
		EnergySavings:   summaryGauge("ecoboard_energy_savings_percent", "Last computed energy savings of the optimized allocation"),
		EnergyConsumed:  summaryGauge("ecoboard_energy_consumption_kwh", "Last computed total energy consumption"),
		registry:        prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RenderCount,
		m.RenderTimestamp,
		m.FetchDuration,
		m.UtilizationRate,
		m.EnergySavings,
		m.EnergyConsumed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if ticks != nil {
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "ecoboard_ticks_total",
				Help: "Total number of polling cycles started",
			},
			func() float64 { return float64(ticks()) },
		))
	}

	return m
}

// ObserveRender records the outcome of one render operation.
func (m *Metrics) ObserveRender(panelID string, err error, at time.Time) {
	if err != nil {
		m.RenderCount.WithLabelValues(panelID, OutcomeError).Inc()
		return
	}
	m.RenderCount.WithLabelValues(panelID, OutcomeSuccess).Inc()
	m.RenderTimestamp.WithLabelValues(panelID).Set(float64(at.Unix()))
}

// ObserveFetch records the latency of one upstream request.
func (m *Metrics) ObserveFetch(endpoint string, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.FetchDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}

// ObserveSummary publishes the latest metrics panel values. NaN and
// infinities are exported as-is.
func (m *Metrics) ObserveSummary(utilization, savings, energy float64) {
	m.UtilizationRate.Set(utilization)
	m.EnergySavings.Set(savings)
	m.EnergyConsumed.Set(energy)
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
