package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// KeepaliveInterval is how often an idle stream gets a comment line.
const KeepaliveInterval = 30 * time.Second

// Handler returns the GET /events handler.
func Handler(h *Hub, keepalive time.Duration) http.HandlerFunc {
	if keepalive <= 0 {
		keepalive = KeepaliveInterval
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		// Streams outlive the server's write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, messages := h.AddClient()
		defer h.RemoveClient(id)
		logger := h.logger.With(zap.String("client_id", id))

		if err := WriteMessage(w, Message{Type: "connected", Data: map[string]string{"client_id": id}}); err != nil {
			logger.Debug("sse write failed", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil {
			logger.Warn("sse flush unsupported", zap.Error(err))
			return
		}

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if err := WriteMessage(w, msg); err != nil {
					logger.Debug("sse write failed", zap.Error(err))
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

// WriteMessage writes msg as one id/event/data frame.
func WriteMessage(w io.Writer, msg Message) error {
	data := []byte("{}")
	if msg.Data != nil {
		var err error
		if data, err = json.Marshal(msg.Data); err != nil {
			return fmt.Errorf("marshal sse data: %w", err)
		}
	}
	if msg.ID != 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", msg.ID); err != nil {
			return err
		}
	}
	if msg.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", msg.Type); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
