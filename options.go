package ecoboard

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"
)

// dbConfig holds mutable state during Dashboard construction.
type dbConfig struct {
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
}

// Option is a function that configures a [Dashboard] during construction.
//
// Options return an error if validation fails; [New] returns the first one.
type Option func(*dbConfig) error

// WithAPIBase sets the base URL of the optimisation API.
//
// Datasets are fetched from {base}/api/usage_data, {base}/api/optimize and
// {base}/api/predict_load. Defaults to http://localhost:5000.
//
// Returns an error unless base is an absolute http or https URL.
func WithAPIBase(base string) Option {
	return func(cfg *dbConfig) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("invalid API base %q: %w", base, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("API base must be an http or https URL, got %q", base)
		}
		cfg.apiBase = base
		return nil
	}
}

// WithPollingInterval sets the time between polling cycles.
//
// Defaults to 5 seconds. Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *dbConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithRequestTimeout bounds each upstream request. Defaults to 10 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *dbConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *dbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "EcoBoard".
func WithTitle(title string) Option {
	return func(cfg *dbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithTotalCapacity sets the summed server capacity used as the utilisation
// denominator. Defaults to 450.
//
// Returns an error unless capacity is a positive finite number.
func WithTotalCapacity(capacity float64) Option {
	return func(cfg *dbConfig) error {
		if capacity <= 0 || math.IsInf(capacity, 0) || math.IsNaN(capacity) {
			return fmt.Errorf("total capacity must be a positive number, got %v", capacity)
		}
		cfg.totalCapacity = capacity
		return nil
	}
}

// WithHeaders adds HTTP headers to every upstream request.
//
// Arguments are key-value pairs. Can be called multiple times; later values
// for the same key win.
//
//	ecoboard.WithHeaders("Authorization", "Bearer token", "X-Tenant", "eu-1")
//
// Returns an error if an odd number of arguments is given.
func WithHeaders(kv ...string) Option {
	return func(cfg *dbConfig) error {
		if len(kv)%2 != 0 {
			return errors.New("headers must be key-value pairs")
		}
		for i := 0; i < len(kv); i += 2 {
			cfg.headers[kv[i]] = kv[i+1]
		}
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Dashboard.
//
// If not specified, [slog.Default] is used. Returns an error if the logger
// is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *dbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithErrorHandler registers a function called for every failed render.
//
// The panel that failed keeps its previous content; the handler is where a
// caller can surface the failure. Handlers run synchronously in registration
// order and must not block. Panics are recovered and logged.
//
// Nil handlers are silently ignored.
func WithErrorHandler(h func(RenderError)) Option {
	return func(cfg *dbConfig) error {
		if h == nil {
			return nil
		}
		cfg.errorHandlers = append(cfg.errorHandlers, h)
		return nil
	}
}

// WithRenderCallback registers a function called after every successful
// render, once the new panel is visible to dashboard clients.
//
// Callbacks run on the rendering goroutine and must not block. Panics are
// recovered and logged. Nil callbacks are silently ignored.
func WithRenderCallback(cb func(RenderEvent)) Option {
	return func(cfg *dbConfig) error {
		if cb == nil {
			return nil
		}
		cfg.renderCallbacks = append(cfg.renderCallbacks, cb)
		return nil
	}
}

// WithClock replaces time.Now, e.g. to pin the prediction chart in tests.
func WithClock(now func() time.Time) Option {
	return func(cfg *dbConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.now = now
		return nil
	}
}
