package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shopcore/internal/serviceorder/models"
	"shopcore/internal/serviceorder/service"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/platform/httputil"
)

// Handler exposes the authenticated service order API.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the order routes on an already-authenticated router group.
func (h *Handler) Register(r chi.Router) {
	r.Route("/service-orders", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{orderID}", h.get)
		r.Post("/{orderID}/transition", h.transition)
		r.Post("/{orderID}/labor-lines", h.addLaborLine)
	})
}

type createOrderRequest struct {
	CustomerName  string `json:"customer_name"`
	UnitLabel     string `json:"unit_label"`
	InternalNotes string `json:"internal_notes"`
	CustomerNotes string `json:"customer_notes"`
	IsComeback    bool   `json:"is_comeback"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[createOrderRequest](w, r, h.logger)
	if !ok {
		return
	}
	order, err := h.svc.Create(r.Context(), service.CreateOrderCommand{
		CustomerName:  req.CustomerName,
		UnitLabel:     req.UnitLabel,
		InternalNotes: req.InternalNotes,
		CustomerNotes: req.CustomerNotes,
		IsComeback:    req.IsComeback,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if orders == nil {
		orders = []models.ServiceOrder{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"service_orders": orders})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, order)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[transitionRequest](w, r, h.logger)
	if !ok {
		return
	}
	// Unknown status names are rejected here, before the state machine is
	// ever consulted.
	target, err := models.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	order, err := h.svc.Transition(r.Context(), orderID, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, order)
}

type laborLineRequest struct {
	TechID      uuid.UUID `json:"tech_id"`
	Description string    `json:"description"`
	Hours       float64   `json:"hours"`
	BilledHours float64   `json:"billed_hours"`
}

func (h *Handler) addLaborLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[laborLineRequest](w, r, h.logger)
	if !ok {
		return
	}
	line, err := h.svc.AddLaborLine(r.Context(), service.AddLaborLineCommand{
		OrderID:     orderID,
		TechID:      req.TechID,
		Description: req.Description,
		Hours:       req.Hours,
		BilledHours: req.BilledHours,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, line)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid order id"))
		return uuid.Nil, false
	}
	return id, true
}
