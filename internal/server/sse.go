package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openclaw/clawmetry/internal/logs"
	"github.com/openclaw/clawmetry/internal/record"
)

// handleLogStream streams appended log lines as server-sent events. Each
// event's data is one JSON-encoded log line; a comment ping every 15s keeps
// idle proxies from closing the stream.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	ctx := r.Context()
	lines := make(chan record.LogLine, 256)

	go func() {
		err := logs.Follow(ctx, s.config.Paths.LogDir, func(l record.LogLine) {
			select {
			case lines <- l:
			default:
				// Stream consumer is behind; drop rather than block the follower.
			}
		})
		if err != nil && ctx.Err() == nil {
			close(lines)
		}
	}()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case line, ok := <-lines:
			if !ok {
				return
			}
			data, err := json.Marshal(line)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
