package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// Handler exposes the change stream over Server-Sent Events.
type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

// NewHandler builds a Handler instance.
func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// MountRoutes registers the event stream route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/events", h.stream)
}

// stream writes re-fetch cues as SSE until the client disconnects. Clients
// pass ?tables=deliveries,notifications to narrow the subscription.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())
	if profile == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	tables := map[string]bool{}
	if raw := r.URL.Query().Get("tables"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			tables[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.hub.Subscribe(r.Context(), profile.UserID, tables)
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("encode event", slog.Any("error", err))
				continue
			}
			if _, err := w.Write([]byte("event: change\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
