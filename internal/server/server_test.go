package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jpalmerr/ecoboard/internal/panel"
	"github.com/jpalmerr/ecoboard/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chartPanel returns a rendered prediction chart stored under id.
func chartPanel(id string) store.Panel {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fig := panel.PredictionFigure(now, panel.Prediction(75))
	return store.Panel{ID: id, Kind: store.KindChart, Figure: &fig, Tick: "tick-1", RenderedAt: now}
}

// htmlPanel returns an html panel whose markup contains marker.
func htmlPanel(id, marker string) store.Panel {
	return store.Panel{ID: id, Kind: store.KindHTML, HTML: "<p>" + marker + "</p>"}
}

// pageAssets returns a dashboard filesystem holding page as assets/index.html.
func pageAssets(page string) fs.FS {
	return fstest.MapFS{"assets/index.html": {Data: []byte(page)}}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func serveRoute(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleDashboard_Title(t *testing.T) {
	const page = "<title>{{.Title}}</title><h1>{{.Title}}</h1>"

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"custom", "Datacenter Energy", "<title>Datacenter Energy</title><h1>Datacenter Energy</h1>"},
		{"default", "", "<title>EcoBoard</title><h1>EcoBoard</h1>"},
		{"escaped markup", "<script>alert('xss')</script>", "<title>&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;</title>"},
		{"escaped ampersand", "Load & Energy", "<h1>Load &amp; Energy</h1>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(store.NewMemoryStore(), 0, pageAssets(page), tt.title, nil, testLogger())

			rec := httptest.NewRecorder()
			srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body = %q, want to contain %q", rec.Body.String(), tt.want)
			}
			if strings.Contains(rec.Body.String(), "<script>") {
				t.Error("title markup was not escaped")
			}
		})
	}
}

func TestHandleDashboard_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		assets fs.FS
	}{
		{"no assets", nil},
		{"no index page", fstest.MapFS{"assets/other.html": {Data: []byte("x")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(store.NewMemoryStore(), 0, tt.assets, "", nil, testLogger())

			rec := httptest.NewRecorder()
			srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
		})
	}
}

func TestHandleDashboard_OnlyRoot(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, pageAssets("page"), "", nil, testLogger())

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/other", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStart_BindErrors(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to occupy port: %v", err)
	}
	defer func() { _ = busy.Close() }()

	tests := []struct {
		name string
		port int
	}{
		{"port in use", busy.Addr().(*net.TCPAddr).Port},
		{"invalid port", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := NewServer(store.NewMemoryStore(), tt.port, nil, "", nil, testLogger()).Start(ctx)
			if err == nil {
				t.Fatal("Start() error = nil, want bind failure")
			}
			if !strings.Contains(err.Error(), "failed to bind") {
				t.Errorf("error = %q, want bind failure", err)
			}
		})
	}
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	port := freePort(t)
	srv := NewServer(store.NewMemoryStore(), port, nil, "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	_ = resp.Body.Close()

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err != nil {
			return
		}
		_ = resp.Body.Close()
		if time.Now().After(deadline) {
			t.Fatal("server still answering after context cancellation")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRoutes_Panels(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(chartPanel(panel.UsageChartID))
	ms.Update(htmlPanel(panel.MetricsContainerID, "cards"))

	srv := NewServer(ms, 0, nil, "", nil, testLogger())

	rec := serveRoute(t, srv, "/api/panels")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/panels status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var panels []store.Panel
	if err := json.Unmarshal(rec.Body.Bytes(), &panels); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(panels) != 2 {
		t.Errorf("got %d panels, want 2", len(panels))
	}
}

func TestRoutes_PanelByID(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(htmlPanel(panel.MetricsContainerID, "cards"))

	srv := NewServer(ms, 0, nil, "", nil, testLogger())

	rec := serveRoute(t, srv, "/api/panels/metrics-container")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var p store.Panel
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if p.Kind != store.KindHTML || !strings.Contains(p.HTML, "cards") {
		t.Errorf("panel = %+v", p)
	}

	rec = serveRoute(t, srv, "/api/panels/usage-chart")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unrendered panel status = %d, want 404", rec.Code)
	}
}

func TestRoutes_ChartSVG(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.Update(chartPanel(panel.PredictionChartID))
	ms.Update(htmlPanel(panel.MetricsContainerID, "cards"))
	ms.Update(store.Panel{ID: panel.UsageChartID, Kind: store.KindChart, Figure: &panel.Figure{}})

	srv := NewServer(ms, 0, nil, "", nil, testLogger())

	tests := []struct {
		name string
		path string
		want int
	}{
		{"chart", "/charts/prediction-chart.svg", http.StatusOK},
		{"custom size", "/charts/prediction-chart.svg?width=400&height=200", http.StatusOK},
		{"not rendered", "/charts/optimization-chart.svg", http.StatusNotFound},
		{"html panel", "/charts/metrics-container.svg", http.StatusBadRequest},
		{"empty figure", "/charts/usage-chart.svg", http.StatusUnprocessableEntity},
		{"bad width", "/charts/prediction-chart.svg?width=abc", http.StatusBadRequest},
		{"too large", "/charts/prediction-chart.svg?height=100000", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveRoute(t, srv, tt.path)
			if rec.Code != tt.want {
				t.Fatalf("GET %s status = %d, want %d (%s)", tt.path, rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusOK {
				if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
					t.Errorf("Content-Type = %q", ct)
				}
				if !strings.Contains(rec.Body.String(), "<svg") {
					t.Error("body is not an SVG document")
				}
			}
		})
	}
}

func TestRoutes_Healthz(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", nil, testLogger())

	rec := serveRoute(t, srv, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRoutes_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ecoboard_ticks_total 3\n"))
	})

	withMetrics := NewServer(store.NewMemoryStore(), 0, nil, "", metrics, testLogger())
	rec := serveRoute(t, withMetrics, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ecoboard_ticks_total") {
		t.Errorf("GET /metrics = %d %q", rec.Code, rec.Body.String())
	}

	without := NewServer(store.NewMemoryStore(), 0, nil, "", nil, testLogger())
	if rec := serveRoute(t, without, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without handler = %d, want 404", rec.Code)
	}
}

func TestRoutes_DashboardAndUnknown(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, pageAssets("<title>{{.Title}}</title>"), "Energy", nil, testLogger())

	rec := serveRoute(t, srv, "/")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Energy</title>") {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}

	if rec := serveRoute(t, srv, "/favicon.ico"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /favicon.ico = %d, want 404", rec.Code)
	}
}

func TestRoutes_RecoversFromPanics(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("scrape failed")
	})
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", panicking, testLogger())

	rec := serveRoute(t, srv, "/metrics")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panicking handler status = %d, want 500", rec.Code)
	}
}

func TestServer_StartServesRoutes(t *testing.T) {
	port := freePort(t)

	ms := store.NewMemoryStore()
	ms.Update(htmlPanel(panel.MetricsContainerID, "cards"))
	srv := NewServer(ms, port, nil, "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/panels/metrics-container", port))
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
