package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/irgordon/ak/api/internal/telemetry"
)

const sseHeartbeat = 15 * time.Second

// EventsHandler streams vault change events as Server-Sent Events.
type EventsHandler struct {
	hub    *telemetry.Hub
	logger *slog.Logger
}

func NewEventsHandler(hub *telemetry.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// Stream handles GET /api/events?profile=<name>. Without a profile every
// event is delivered.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("profile")
	if topic == "" {
		topic = telemetry.AllProfiles
	}

	// 🛡️ The stream outlives the server WriteTimeout
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("Write deadline not adjustable", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := h.hub.Subscribe(topic)
	defer h.hub.Unsubscribe(topic, ch)

	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Warn("SSE flush unsupported", slog.Any("error", err))
		return
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
