package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shopcore/internal/display/service"
	"shopcore/pkg/platform/httputil"
)

// Handler exposes display token rotation to authenticated admins.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/display-token/rotate", h.rotate)
}

type rotateResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) rotate(w http.ResponseWriter, r *http.Request) {
	raw, expiresAt, err := h.svc.Rotate(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rotateResponse{Token: raw, ExpiresAt: expiresAt})
}
