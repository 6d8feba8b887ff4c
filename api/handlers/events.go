package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// KeepaliveInterval is how often an idle event stream gets a comment line
var KeepaliveInterval = 30 * time.Second

// HandleEvents streams engine events as Server-Sent Events. The event name
// is the engine event type.
func HandleEvents(w http.ResponseWriter, r *http.Request, engine Engine, logger *zap.Logger) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Long-lived connection, lift the server write timeout
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		writeError(w, http.StatusInternalServerError, "failed to initialize event stream")
		return
	}

	events := engine.Subscribe()
	defer engine.Unsubscribe(events)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snap := engine.Snapshot()
	if err := sendSSE(w, flusher, "connected", map[string]any{
		"height":     len(snap.Blocks),
		"difficulty": snap.Difficulty,
		"mining":     snap.Mining.IsMining,
	}); err != nil {
		logger.Debug("event stream write failed", zap.Error(err))
		return
	}

	keepalive := time.NewTicker(KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sendSSE(w, flusher, string(ev.Type), ev); err != nil {
				logger.Debug("event stream write failed", zap.Error(err))
				return
			}

		case <-keepalive.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
