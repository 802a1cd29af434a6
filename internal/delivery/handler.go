package delivery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/companies"
	"github.com/carloseduardonl/nf-ship-flow/internal/negotiation"
	"github.com/carloseduardonl/nf-ship-flow/internal/platform/httpx"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
	"github.com/carloseduardonl/nf-ship-flow/internal/timeline"
)

// Handler manages delivery endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers delivery routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/buckets", h.buckets)
	r.Get("/{id}", h.get)
	r.Get("/{id}/actions", h.actions)
	r.Get("/{id}/timeline", h.timeline)
	r.Post("/{id}/accept", h.accept)
	r.Post("/{id}/counter-propose", h.counterPropose)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/in-transit", h.markInTransit)
	r.Post("/{id}/receipt", h.confirmReceipt)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())

	var req CreateDeliveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := ValidateCreateRequest(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	d, err := h.service.Create(r.Context(), *profile, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewResponse(d, *profile, time.Now()))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())

	f, err := parseListFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items, pagination, err := h.service.List(r.Context(), *profile, f)
	if err != nil {
		h.respondError(w, err)
		return
	}

	now := time.Now()
	responses := make([]Response, 0, len(items))
	for _, d := range items {
		responses = append(responses, NewResponse(d, *profile, now))
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Deliveries: responses, Pagination: pagination})
}

func (h *Handler) buckets(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())
	b, err := h.service.Buckets(r.Context(), *profile)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())
	id, ok := h.deliveryID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), *profile, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewResponse(d, *profile, time.Now()))
}

func (h *Handler) actions(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())
	id, ok := h.deliveryID(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Actions(r.Context(), *profile, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	profile := shared.ProfileFromContext(r.Context())
	id, ok := h.deliveryID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Timeline(r.Context(), *profile, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if entries == nil {
		entries = []timeline.Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"timeline": entries})
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, negotiation.ActionAccept, negotiation.Input{})
}

func (h *Handler) counterPropose(w http.ResponseWriter, r *http.Request) {
	var req CounterProposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := ValidateCounterProposeRequest(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	proposal, err := parseProposal(req.ProposedDate, req.ProposedTimeStart, req.ProposedTimeEnd)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.transition(w, r, negotiation.ActionCounterPropose, negotiation.Input{Proposal: &proposal, Reason: req.Reason})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := ValidateCancelRequest(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.transition(w, r, negotiation.ActionCancel, negotiation.Input{Reason: req.Reason})
}

func (h *Handler) markInTransit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, negotiation.ActionMarkInTransit, negotiation.Input{})
}

func (h *Handler) confirmReceipt(w http.ResponseWriter, r *http.Request) {
	var req ConfirmReceiptRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
			return
		}
		if err := ValidateConfirmReceiptRequest(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	h.transition(w, r, negotiation.ActionConfirmReceipt, negotiation.Input{ReceiptNotes: req.ReceiptNotes})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action negotiation.Action, in negotiation.Input) {
	profile := shared.ProfileFromContext(r.Context())
	id, ok := h.deliveryID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Transition(r.Context(), *profile, id, action, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewResponse(d, *profile, time.Now()))
}

func parseListFilters(r *http.Request) (ListFilters, error) {
	q := r.URL.Query()
	f := ListFilters{
		Search: q.Get("search"),
		Period: q.Get("period"),
	}
	if f.Period != "" && f.Period != PeriodWeek && f.Period != PeriodMonth {
		return ListFilters{}, fmt.Errorf("period must be %q or %q", PeriodWeek, PeriodMonth)
	}
	if p := q.Get("partner"); p != "" {
		id, err := uuid.Parse(p)
		if err != nil {
			return ListFilters{}, fmt.Errorf("invalid partner id")
		}
		f.Partner = &id
	}
	if s := q.Get("status"); s != "" {
		status := negotiation.Status(s)
		if !status.IsValid() {
			return ListFilters{}, fmt.Errorf("unknown status %q", s)
		}
		f.Status = status
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return f, nil
}

func (h *Handler) deliveryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid delivery id")
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the negotiation and persistence error taxonomy onto
// HTTP: turn violations are 403, guard failures 400, stale writes 409.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "delivery not found")
	case errors.Is(err, negotiation.ErrNotYourTurn),
		errors.Is(err, negotiation.ErrActionUnavailable),
		errors.Is(err, ErrNotSeller):
		httpx.Problem(w, http.StatusForbidden, "Action Not Available", err.Error())
	case errors.Is(err, negotiation.ErrMissingProposal),
		errors.Is(err, negotiation.ErrPastDate),
		errors.Is(err, negotiation.ErrNotDeliveryDay),
		errors.Is(err, negotiation.ErrWindowOrder),
		errors.Is(err, negotiation.ErrWindowTooShort),
		errors.Is(err, negotiation.ErrReasonTooShort),
		errors.Is(err, ErrSameParty),
		errors.Is(err, ErrInvalidCounterpart),
		errors.Is(err, ErrNFDateInFuture),
		errors.Is(err, companies.ErrNotFound):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrStaleState):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("delivery request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
