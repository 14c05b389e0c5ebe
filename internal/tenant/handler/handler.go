package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shopcore/internal/tenant/service"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/platform/httputil"
)

// Handler exposes tenant administration endpoints.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/tenants", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/{tenantID}", h.get)
		r.Patch("/{tenantID}", h.rename)
		r.Delete("/{tenantID}", h.delete)
	})
}

type createTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[createTenantRequest](w, r, h.logger)
	if !ok {
		return
	}
	tenant, err := h.svc.Create(r.Context(), req.Name, req.Slug)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	tenant, err := h.svc.Get(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

type renameTenantRequest struct {
	Name string `json:"name"`
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[renameTenantRequest](w, r, h.logger)
	if !ok {
		return
	}
	tenant, err := h.svc.Rename(r.Context(), tenantID, req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), tenantID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return uuid.Nil, false
	}
	return id, true
}
