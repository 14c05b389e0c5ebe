package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"shopcore/internal/billing/service"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/platform/httputil"
)

// Handler exposes the authenticated billing API: estimates, portal token
// issuance, and invoices. The anonymous portal itself lives in the gateway.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/estimates", func(r chi.Router) {
		r.Post("/", h.createEstimate)
		r.Get("/{estimateID}", h.getEstimate)
		r.Post("/{estimateID}/portal-token", h.issuePortalToken)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Get("/{invoiceID}", h.getInvoice)
	})
}

type createEstimateRequest struct {
	OrderID uuid.UUID `json:"service_order_id"`
	Total   float64   `json:"total"`
}

func (h *Handler) createEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[createEstimateRequest](w, r, h.logger)
	if !ok {
		return
	}
	est, err := h.svc.CreateEstimate(r.Context(), req.OrderID, req.Total)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, est)
}

func (h *Handler) getEstimate(w http.ResponseWriter, r *http.Request) {
	estimateID, ok := parseID(w, r, "estimateID")
	if !ok {
		return
	}
	est, err := h.svc.GetEstimate(r.Context(), estimateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, est)
}

type portalTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issuePortalToken returns the raw token in the response body. This is the
// only place it ever appears; the server keeps just the digest.
func (h *Handler) issuePortalToken(w http.ResponseWriter, r *http.Request) {
	estimateID, ok := parseID(w, r, "estimateID")
	if !ok {
		return
	}
	raw, expiresAt, err := h.svc.IssuePortalToken(r.Context(), estimateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, portalTokenResponse{Token: raw, ExpiresAt: expiresAt})
}

type createInvoiceRequest struct {
	OrderID uuid.UUID `json:"service_order_id"`
	Total   float64   `json:"total"`
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[createInvoiceRequest](w, r, h.logger)
	if !ok {
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), req.OrderID, req.Total)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, inv)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := parseID(w, r, "invoiceID")
	if !ok {
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inv)
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}
