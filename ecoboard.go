package ecoboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/ecoboard/dashboard"
	"github.com/jpalmerr/ecoboard/internal/panel"
	"github.com/jpalmerr/ecoboard/internal/poller"
	"github.com/jpalmerr/ecoboard/internal/server"
	"github.com/jpalmerr/ecoboard/internal/store"
	"github.com/jpalmerr/ecoboard/internal/telemetry"
)

const (
	defaultAPIBase         = "http://localhost:5000"
	defaultPollingInterval = 5 * time.Second
	defaultPort            = 8080
	defaultRequestTimeout  = 10 * time.Second
)

// Dashboard polls the optimisation API and serves the live dashboard.
//
// A Dashboard is created with [New] and run with [Dashboard.Start]. Every
// polling cycle fetches the upstream datasets and re-renders the four panels
// (usage chart, optimisation chart, prediction chart, metrics cards). The
// panels are pushed to connected browsers as they complete.
//
// The typical lifecycle is:
//
//	d, err := ecoboard.New(ecoboard.WithAPIBase("http://optimizer:5000"))
//	if err != nil {
//	    slog.Error("failed to create dashboard", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	d.Start(ctx) // blocks until ctx is cancelled or d.Stop is called
type Dashboard struct {
	title           string
	apiBase         string
	pollingInterval time.Duration
	requestTimeout  time.Duration
	port            int
	totalCapacity   float64
	headers         map[string]string
	logger          *slog.Logger
	now             func() time.Time
	errorHandlers   []func(RenderError)
	renderCallbacks []func(RenderEvent)

	client    *poller.Client
	store     *store.MemoryStore
	metrics   *telemetry.Metrics
	scheduler atomic.Pointer[poller.Scheduler]

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
}

// New creates a new [Dashboard] with the given options.
//
// Every option has a default:
//   - API base: http://localhost:5000
//   - Polling interval: 5 seconds
//   - Port: 8080
//   - Request timeout: 10 seconds
//   - Total capacity: 450
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Dashboard, error) {
	cfg := &dbConfig{
		apiBase:         defaultAPIBase,
		pollingInterval: defaultPollingInterval,
		requestTimeout:  defaultRequestTimeout,
		port:            defaultPort,
		totalCapacity:   panel.DefaultTotalCapacity,
		headers:         map[string]string{},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.now
	if now == nil {
		now = time.Now
	}

	apiBase := strings.TrimRight(cfg.apiBase, "/")
	headers := copyMap(cfg.headers)

	d := &Dashboard{
		title:           cfg.title,
		apiBase:         apiBase,
		pollingInterval: cfg.pollingInterval,
		requestTimeout:  cfg.requestTimeout,
		port:            cfg.port,
		totalCapacity:   cfg.totalCapacity,
		headers:         headers,
		logger:          logger,
		now:             now,
		errorHandlers:   cfg.errorHandlers,
		renderCallbacks: cfg.renderCallbacks,
		client:          poller.NewClient(apiBase, headers, cfg.requestTimeout),
		store:           store.NewMemoryStore(),
	}
	d.metrics = telemetry.New(d.ticks)

	return d, nil
}

// Start begins polling and serving the dashboard.
//
// Start blocks until ctx is cancelled or [Dashboard.Stop] is called. During
// execution:
//
//   - A polling cycle runs immediately, then once per polling interval
//   - The HTTP server serves the dashboard on the configured port
//   - Render failures are logged and passed to the error handlers
//
// A Dashboard can be started once. Returns nil on graceful shutdown, or an
// error if the HTTP server fails to start.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("dashboard already started")
	}
	d.started = true
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	d.logger.Info("ecoboard starting", "api_base", d.apiBase)
	d.logger.Info("polling configured", "interval", d.pollingInterval.String())
	d.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", d.port))

	if ctx.Err() != nil {
		return nil
	}

	scheduler := poller.NewScheduler(d.jobs(), d.pollingInterval, d.client, d.logger)
	d.scheduler.Store(scheduler)
	scheduler.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			d.observe(result.Job, result.Tick.ID, result.Duration, result.Err)
		}
	}()

	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()        // wait for all results to be processed
	}

	httpServer := server.NewServer(d.store, d.port, dashboard.Assets, d.title, d.metrics.Handler(), d.logger)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	d.logger.Info("ecoboard stopped", "ticks", scheduler.Ticks())
	return nil
}

// Stop ends polling and shuts the dashboard down.
//
// Stop makes a running [Dashboard.Start] return; a later Start is a no-op.
// In-flight renders are cancelled. Stop is idempotent.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.cancel != nil {
		d.cancel()
	}
}

// Tick runs one polling cycle synchronously.
//
// The four render operations run concurrently under a single tick ID and
// independently of each other: a failing panel does not prevent the others
// from updating. The returned error joins every render failure.
func (d *Dashboard) Tick(ctx context.Context) error {
	tick := uuid.NewString()
	ids := PanelIDs()
	errs := make([]error, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = d.runRender(ctx, id, tick)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Panels returns the latest rendered panels sorted by ID.
func (d *Dashboard) Panels() []Panel {
	stored := d.store.GetAll()
	panels := make([]Panel, len(stored))
	for i, p := range stored {
		panels[i] = toPublicPanel(p)
	}
	return panels
}

// Panel returns the latest render of the panel with the given container ID.
func (d *Dashboard) Panel(id string) (Panel, bool) {
	p, ok := d.store.Get(id)
	if !ok {
		return Panel{}, false
	}
	return toPublicPanel(p), true
}

// Port returns the configured HTTP port for the dashboard server.
func (d *Dashboard) Port() int {
	return d.port
}

// PollingInterval returns the configured interval between polling cycles.
func (d *Dashboard) PollingInterval() time.Duration {
	return d.pollingInterval
}

// APIBase returns the upstream API base URL without a trailing slash.
func (d *Dashboard) APIBase() string {
	return d.apiBase
}

// Ticks returns the number of scheduled polling cycles started so far.
// Cycles run through [Dashboard.Tick] are not counted.
func (d *Dashboard) Ticks() uint64 {
	return d.ticks()
}

func (d *Dashboard) ticks() uint64 {
	if s := d.scheduler.Load(); s != nil {
		return s.Ticks()
	}
	return 0
}

// jobs returns one scheduler job per panel.
func (d *Dashboard) jobs() []poller.Job {
	ids := PanelIDs()
	jobs := make([]poller.Job, len(ids))
	for i, id := range ids {
		jobs[i] = poller.Job{
			Name: id,
			Run: func(ctx context.Context, t poller.Tick) error {
				return d.render(ctx, id, t.ID)
			},
		}
	}
	return jobs
}

// observe records the outcome of one render: metrics, logs and error handlers.
func (d *Dashboard) observe(panelID, tick string, took time.Duration, err error) {
	d.metrics.ObserveRender(panelID, err, d.now())

	if err != nil {
		d.logger.Warn("render failed",
			"panel", panelID,
			"tick", tick,
			"latency_ms", took.Milliseconds(),
			"error", err.Error(),
		)
		rerr := RenderError{Panel: panelID, Tick: tick, Err: err}
		for _, h := range d.errorHandlers {
			invokeSafe(d.logger, "error handler", panelID, func() { h(rerr) })
		}
		return
	}

	d.logger.Debug("render completed",
		"panel", panelID,
		"tick", tick,
		"latency_ms", took.Milliseconds(),
	)
}

// copyMap returns a shallow copy of a string map, or nil if input is nil.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// invokeSafe runs a user callback with panic recovery.
// Panics are logged but do not propagate.
func invokeSafe(logger *slog.Logger, kind, panelID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(kind+" panicked",
				"panic", r,
				"panel", panelID,
			)
		}
	}()
	fn()
}
