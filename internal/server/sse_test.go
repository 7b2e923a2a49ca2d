package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jpalmerr/ecoboard/internal/panel"
	"github.com/jpalmerr/ecoboard/internal/store"
)

// decodeEvents returns the panels carried by the data lines of an SSE body.
func decodeEvents(t *testing.T, body string) []store.Panel {
	t.Helper()
	var panels []store.Panel
	for _, line := range strings.Split(body, "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var p store.Panel
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			t.Fatalf("event %q is not a panel: %v", data, err)
		}
		panels = append(panels, p)
	}
	return panels
}

func panelIDs(panels []store.Panel) []string {
	ids := make([]string, len(panels))
	for i, p := range panels {
		ids[i] = p.ID
	}
	return ids
}

// runSSE runs the handler against a recorder until ctx ends.
func runSSE(t *testing.T, srv *Server, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleSSE did not return after its context ended")
	}
	return rec
}

// sseClient reads events from a live /api/sse stream.
type sseClient struct {
	resp   *http.Response
	events chan store.Panel
}

func dialSSE(t *testing.T, url string) *sseClient {
	t.Helper()
	resp, err := http.Get(url + "/api/sse")
	if err != nil {
		t.Fatalf("GET /api/sse error = %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	c := &sseClient{resp: resp, events: make(chan store.Panel, 16)}
	go func() {
		defer close(c.events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var p store.Panel
			if json.Unmarshal([]byte(data), &p) == nil {
				c.events <- p
			}
		}
	}()
	return c
}

func (c *sseClient) next(t *testing.T) store.Panel {
	t.Helper()
	select {
	case p, ok := <-c.events:
		if !ok {
			t.Fatal("stream closed while waiting for an event")
		}
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for an event")
	}
	return store.Panel{}
}

// closed reports whether the stream ends within timeout.
func (c *sseClient) closed(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-c.events:
			if !ok {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func TestHandleSSE_ReplaysRenderedPanels(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(chartPanel(panel.UsageChartID))
	st.Update(htmlPanel(panel.MetricsContainerID, "cards"))
	st.Update(chartPanel(panel.PredictionChartID))

	srv := NewServer(st, 0, nil, "", nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	rec := runSSE(t, srv, ctx)

	got := decodeEvents(t, rec.Body.String())
	want := []string{panel.MetricsContainerID, panel.PredictionChartID, panel.UsageChartID}
	if diff := cmp.Diff(want, panelIDs(got)); diff != "" {
		t.Errorf("replayed panels mismatch (-want +got):\n%s", diff)
	}

	for _, p := range got {
		switch p.Kind {
		case store.KindChart:
			if p.Figure == nil || len(p.Figure.Data) == 0 {
				t.Errorf("chart %s arrived without its figure", p.ID)
			}
		case store.KindHTML:
			if !strings.Contains(p.HTML, "cards") {
				t.Errorf("html panel %s = %q", p.ID, p.HTML)
			}
		}
	}
}

func TestHandleSSE_Headers(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rec := runSSE(t, srv, ctx)

	want := map[string]string{
		"Content-Type":                "text/event-stream",
		"Cache-Control":               "no-cache",
		"Connection":                  "keep-alive",
		"Access-Control-Allow-Origin": "*",
	}
	for key, value := range want {
		if got := rec.Header().Get(key); got != value {
			t.Errorf("header %s = %q, want %q", key, got, value)
		}
	}
}

// nonFlushWriter is a ResponseWriter without http.Flusher.
type nonFlushWriter struct {
	header http.Header
	status int
}

func (w *nonFlushWriter) Header() http.Header         { return w.header }
func (w *nonFlushWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *nonFlushWriter) WriteHeader(status int)      { w.status = status }

func TestHandleSSE_RequiresFlusher(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", nil, testLogger())

	w := &nonFlushWriter{header: make(http.Header)}
	srv.handleSSE(w, httptest.NewRequest(http.MethodGet, "/api/sse", nil))

	if w.status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.status)
	}
}

// TestHandleSSE_WithoutWriteDeadlines covers writers that reject
// SetWriteDeadline, such as httptest.ResponseRecorder: panels are still
// delivered and cancellation still ends the handler.
func TestHandleSSE_WithoutWriteDeadlines(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(htmlPanel(panel.MetricsContainerID, "first"))
	srv := NewServer(st, 0, nil, "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		st.Update(htmlPanel(panel.MetricsContainerID, "second"))
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	rec := runSSE(t, srv, ctx)

	body := rec.Body.String()
	if !strings.Contains(body, "first") || !strings.Contains(body, "second") {
		t.Errorf("body = %q, want both renders", body)
	}
}

func TestHandleSSE_StreamsRenders(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(htmlPanel(panel.MetricsContainerID, "initial"))

	ts := httptest.NewServer(NewServer(st, 0, nil, "", nil, testLogger()).Handler())
	defer ts.Close()

	client := dialSSE(t, ts.URL)
	if p := client.next(t); p.ID != panel.MetricsContainerID {
		t.Fatalf("first event = %s, want the replayed metrics panel", p.ID)
	}

	for i := 1; i <= 3; i++ {
		st.Update(chartPanel(panel.PredictionChartID))
		p := client.next(t)
		if p.ID != panel.PredictionChartID || p.Kind != store.KindChart {
			t.Errorf("render %d: event = %s/%s", i, p.ID, p.Kind)
		}
	}
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), 0, nil, "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// runSSE fails the test if the handler outlives the request context
	runSSE(t, srv, ctx)
}

func TestHandleSSE_ServerShutdownEndsStreams(t *testing.T) {
	st := store.NewMemoryStore()
	st.Update(htmlPanel(panel.MetricsContainerID, "cards"))

	port := freePort(t)
	srv := NewServer(st, port, nil, "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	url := fmt.Sprintf("http://127.0.0.1:%d", port)

	const numClients = 5
	clients := make([]*sseClient, numClients)
	for i := range clients {
		clients[i] = dialSSE(t, url)
		clients[i].next(t)
	}

	cancel()

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *sseClient) {
			defer wg.Done()
			if !c.closed(3 * time.Second) {
				t.Errorf("client %d stream still open after shutdown", i)
			}
		}(i, c)
	}
	wg.Wait()
}

func BenchmarkHandleSSE_Replay(b *testing.B) {
	st := store.NewMemoryStore()
	st.Update(chartPanel(panel.UsageChartID))
	st.Update(chartPanel(panel.OptimizationChartID))
	st.Update(chartPanel(panel.PredictionChartID))
	st.Update(htmlPanel(panel.MetricsContainerID, "cards"))
	srv := NewServer(st, 0, nil, "", nil, testLogger())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
		srv.handleSSE(httptest.NewRecorder(), req)
	}
}
