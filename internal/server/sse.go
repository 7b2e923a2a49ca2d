package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/ecoboard/internal/store"
)

// panelStream writes panels as SSE data events.
//
// Every write carries its own deadline so a stalled client cannot hold the
// handler past sseWriteTimeout. Writers that reject deadlines are logged once
// and then written to without one.
type panelStream struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	logger *slog.Logger

	noDeadlines bool
}

func newPanelStream(w http.ResponseWriter, logger *slog.Logger) *panelStream {
	return &panelStream{w: w, rc: http.NewResponseController(w), logger: logger}
}

// send writes one panel. A panel that cannot be encoded is skipped; only
// write failures are returned.
func (ps *panelStream) send(p store.Panel) error {
	data, err := json.Marshal(p)
	if err != nil {
		ps.logger.Warn("failed to encode panel", "panel", p.ID, "error", err)
		return nil
	}

	if !ps.noDeadlines {
		if err := ps.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
			ps.logger.Warn("sse write deadlines not supported", "error", err)
			ps.noDeadlines = true
		}
	}

	if _, err := fmt.Fprintf(ps.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return ps.rc.Flush()
}

// handleSSE replays every rendered panel, then streams each new render until
// the client leaves or the server shuts down.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	stream := newPanelStream(w, s.logger)

	// subscribe before the snapshot so no render falls between the two
	updates := s.store.Subscribe()
	defer s.store.Unsubscribe(updates)

	for _, p := range s.store.GetAll() {
		if err := stream.send(p); err != nil {
			return
		}
	}

	// r.Context() derives from the server context, so this also ends on shutdown
	done := r.Context().Done()
	for {
		select {
		case <-done:
			return
		case p, ok := <-updates:
			if !ok {
				return
			}
			if err := stream.send(p); err != nil {
				return
			}
		}
	}
}
