package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/delivery"
	"github.com/carloseduardonl/nf-ship-flow/internal/platform/httpx"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
)

// Handler manages chat endpoints. Routes are mounted under /deliveries.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers chat routes on the deliveries router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}/messages", h.list)
	r.Post("/{id}/messages", h.send)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid delivery id")
		return
	}

	messages, err := h.service.List(r.Context(), *profile, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid delivery id")
		return
	}

	var req SendMessageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	m, err := h.service.Send(r.Context(), *profile, id, req.Message)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, delivery.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "delivery not found")
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLong):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("chat request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
