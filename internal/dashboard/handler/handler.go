package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shopcore/internal/dashboard/models"
	"shopcore/internal/dashboard/service"
	"shopcore/pkg/platform/httputil"
)

// Handler exposes the authenticated dashboard. The anonymous shop display
// variant lives in the gateway.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/dashboard", h.snapshot)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	rng, err := models.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snap, err := h.svc.Snapshot(r.Context(), rng)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
