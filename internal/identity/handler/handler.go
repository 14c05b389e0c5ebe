package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shopcore/internal/identity/models"
	"shopcore/internal/identity/service"
	"shopcore/pkg/platform/httputil"
)

// Handler exposes login. Registration happens through seeding or tenant
// administration, not self-service.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[loginRequest](w, r, h.logger)
	if !ok {
		return
	}
	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}
