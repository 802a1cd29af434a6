package companies

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carloseduardonl/nf-ship-flow/internal/platform/httpx"
	"github.com/carloseduardonl/nf-ship-flow/internal/shared"
	"github.com/carloseduardonl/nf-ship-flow/internal/users"
)

// MemberLister resolves the active members of a company. Satisfied by the
// users service.
type MemberLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]users.User, error)
}

// Handler manages company master data endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	members MemberLister
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, members MemberLister) *Handler {
	return &Handler{logger: logger, service: service, members: members}
}

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/users", h.listUsers)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var role *shared.CompanyRole
	if q := r.URL.Query().Get("role"); q != "" {
		candidate := shared.CompanyRole(q)
		if !candidate.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role must be SELLER or BUYER")
			return
		}
		role = &candidate
	}

	items, err := h.service.List(r.Context(), role)
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Company{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companies": items})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var company Company
	if err := httpx.DecodeJSON(r, &company); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	created, err := h.service.Create(r.Context(), company)
	if err != nil {
		if errors.Is(err, ErrDuplicateCNPJ) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
	if !ok {
		return
	}
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.companyID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Get(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	members, err := h.members.ListByCompany(r.Context(), id)
	if err != nil {
		h.logger.Error("list company users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if members == nil {
		members = []users.User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": members})
}

func (h *Handler) companyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid company id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
		return
	}
	h.logger.Error("company request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
