package server

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jpalmerr/ecoboard/internal/chart"
	"github.com/jpalmerr/ecoboard/internal/store"
)

const (
	// per event; keep at or below shutdownTimeout
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	defaultTitle = "EcoBoard"

	// replaced in assets/index.html with the escaped dashboard title
	titlePlaceholder = "{{.Title}}"

	defaultSVGWidth  = 900
	defaultSVGHeight = 450
	minSVGSize       = 100
	maxSVGSize       = 4000
)

// Server handles HTTP requests for the EcoBoard dashboard and API.
//
// Routes:
//   - GET /: the embedded dashboard page
//   - GET /api/panels: all rendered panels as JSON
//   - GET /api/panels/{id}: one panel as JSON
//   - GET /api/sse: Server-Sent Events stream of panel updates
//   - GET /charts/{id}.svg: a chart panel rendered to SVG
//   - GET /metrics: Prometheus metrics (when a handler is configured)
//   - GET /healthz: liveness check
//
// It shuts down when the context given to [Server.Start] is cancelled.
type Server struct {
	store      store.Store
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	metrics    http.Handler
	logger     *slog.Logger
}

// NewServer returns a [Server] publishing the panels held in st.
//
// assets must contain assets/index.html for GET / to be routed; a nil assets
// leaves the page out. An empty title falls back to "EcoBoard" and a nil
// metrics handler leaves /metrics out. Nothing listens until [Server.Start].
func NewServer(st store.Store, port int, assets fs.FS, title string, metrics http.Handler, logger *slog.Logger) *Server {
	return &Server{
		store:   st,
		port:    port,
		assets:  assets,
		title:   title,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler returns the router serving every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// the SSE stream stays outside the request logger: it would log only
	// once the client goes away
	r.Get("/api/sse", s.handleSSE)

	r.Group(func(r chi.Router) {
		r.Use(s.requestLogger)

		if s.assets != nil {
			r.Get("/", s.handleDashboard)
		}
		r.Get("/api/panels", s.handlePanels)
		r.Get("/api/panels/{id}", s.handlePanel)
		r.Get("/charts/{id}.svg", s.handleChartSVG)
		r.Get("/healthz", s.handleHealthz)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics)
		}
	})

	return r
}

// Start binds the port and serves in the background.
//
// A bind failure is returned synchronously. Once ctx is cancelled the server
// drains with a 5s deadline; in-flight SSE streams see the cancellation
// through their request contexts.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.serve(ln)
	go s.shutdownOnDone(ctx)

	s.logger.Debug("http server listening", "addr", ln.Addr().String())
	return nil
}

func (s *Server) serve(ln net.Listener) {
	err := s.httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("http server stopped unexpectedly", "error", err)
	}
}

func (s *Server) shutdownOnDone(ctx context.Context) {
	<-ctx.Done()

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(drainCtx); err != nil {
		s.logger.Error("http server did not drain", "error", err)
	}
}

// requestLogger logs one line per request at DEBUG, or WARN for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrap := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		start := time.Now()
		next.ServeHTTP(wrap, r)

		if r.URL.Path == "/healthz" {
			return
		}

		level := slog.LevelDebug
		if wrap.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", wrap.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleDashboard serves the dashboard page with the title filled in.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page, err := s.dashboardPage()
	if err != nil {
		s.logger.Error("dashboard page unavailable", "error", err)
		http.Error(w, "dashboard page unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, page); err != nil {
		s.logger.Error("failed to write dashboard page", "error", err)
	}
}

func (s *Server) dashboardPage() (string, error) {
	if s.assets == nil {
		return "", errors.New("no dashboard assets configured")
	}
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		return "", err
	}

	title := cmp.Or(s.title, defaultTitle)
	return strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title)), nil
}

// handlePanels returns every rendered panel as JSON.
func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.GetAll())
}

// handlePanel returns a single panel, or 404 if it has not been rendered yet.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.store.Get(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("panel %q not rendered", id)})
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// handleChartSVG renders a chart panel to SVG.
//
// Optional width and height query parameters set the image size in pixels.
func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.store.Get(id)
	if !ok {
		http.Error(w, fmt.Sprintf("panel %q not rendered", id), http.StatusNotFound)
		return
	}
	if p.Kind != store.KindChart || p.Figure == nil {
		http.Error(w, fmt.Sprintf("panel %q is not a chart", id), http.StatusBadRequest)
		return
	}

	width, err := sizeParam(r, "width", defaultSVGWidth)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := sizeParam(r, "height", defaultSVGHeight)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderSVG(&buf, *p.Figure, width, height); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chart.ErrNothingToPlot) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("failed to write chart response", "panel", id, "error", err)
	}
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func sizeParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minSVGSize || n > maxSVGSize {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, minSVGSize, maxSVGSize)
	}
	return n, nil
}
