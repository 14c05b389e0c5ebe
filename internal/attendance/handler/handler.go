package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shopcore/internal/attendance/models"
	"shopcore/internal/attendance/service"
	"shopcore/pkg/platform/httputil"
)

// Handler exposes clock punches and time entries.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Post("/clock-in", h.clockIn)
		r.Post("/clock-out", h.clockOut)
		r.Get("/open-punches", h.openPunches)
		r.Post("/time-entries/start", h.startEntry)
		r.Post("/time-entries/stop", h.stopEntry)
	})
}

type punchRequest struct {
	TechID uuid.UUID `json:"tech_id"`
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[punchRequest](w, r, h.logger)
	if !ok {
		return
	}
	punch, err := h.svc.ClockIn(r.Context(), req.TechID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, punch)
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[punchRequest](w, r, h.logger)
	if !ok {
		return
	}
	punch, err := h.svc.ClockOut(r.Context(), req.TechID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, punch)
}

func (h *Handler) openPunches(w http.ResponseWriter, r *http.Request) {
	punches, err := h.svc.ListOpenPunches(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if punches == nil {
		punches = []models.ShiftPunch{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"punches": punches})
}

type startEntryRequest struct {
	TechID  uuid.UUID `json:"tech_id"`
	OrderID uuid.UUID `json:"service_order_id"`
}

func (h *Handler) startEntry(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[startEntryRequest](w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.svc.StartEntry(r.Context(), req.TechID, req.OrderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) stopEntry(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[punchRequest](w, r, h.logger)
	if !ok {
		return
	}
	entry, err := h.svc.StopEntry(r.Context(), req.TechID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}
