// Package gateway serves the two unauthenticated surfaces: the customer
// estimate portal and the shop display dashboard. Every request carries a
// capability token in the token query parameter; there are no sessions and no
// user identities here. A missing token, an expired token, a mismatched
// token, and an exhausted rate window all produce one identical forbidden
// response, and the rate limit is checked before any token work so the
// verifier cannot be brute-forced.
package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	billingmodels "shopcore/internal/billing/models"
	billingsvc "shopcore/internal/billing/service"
	dashboardmodels "shopcore/internal/dashboard/models"
	dashboardsvc "shopcore/internal/dashboard/service"
	displaysvc "shopcore/internal/display/service"
	"shopcore/internal/ratelimit"
	"shopcore/internal/tenant/scope"
	"shopcore/pkg/platform/httputil"
)

// Handler wires the anonymous routes.
type Handler struct {
	billing   *billingsvc.Service
	display   *displaysvc.Service
	dashboard *dashboardsvc.Service

	portalLimiter  *ratelimit.Limiter
	displayLimiter *ratelimit.Limiter
	logger         *slog.Logger
}

func New(
	billing *billingsvc.Service,
	display *displaysvc.Service,
	dashboard *dashboardsvc.Service,
	portalLimiter, displayLimiter *ratelimit.Limiter,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		billing:        billing,
		display:        display,
		dashboard:      dashboard,
		portalLimiter:  portalLimiter,
		displayLimiter: displayLimiter,
		logger:         logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.portalLimiter.Middleware)
		r.Get("/portal/estimate", h.portalView)
		r.Post("/portal/estimate", h.portalDecide)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.displayLimiter.Middleware)
		r.Get("/display/dashboard", h.displayDashboard)
	})
}

// portalView renders the estimate a valid token grants access to.
func (h *Handler) portalView(w http.ResponseWriter, r *http.Request) {
	est, err := h.billing.ResolvePortalToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httputil.WriteForbidden(w)
		return
	}
	view, err := h.billing.PortalViewFor(r.Context(), est)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

type decisionRequest struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}

// portalDecide records an approve/decline decision. Token failures collapse
// into the uniform forbidden body; only a syntactically bad decision earns a
// distinct 400, since by then the caller has already proven token possession.
func (h *Handler) portalDecide(w http.ResponseWriter, r *http.Request) {
	rawToken := r.URL.Query().Get("token")
	if _, err := h.billing.ResolvePortalToken(r.Context(), rawToken); err != nil {
		httputil.WriteForbidden(w)
		return
	}

	req, ok := httputil.DecodeJSON[decisionRequest](w, r, h.logger)
	if !ok {
		return
	}
	decision, err := billingmodels.ParseDecision(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	est, err := h.billing.Decide(r.Context(), rawToken, decision, req.Name)
	if err != nil {
		httputil.WriteForbidden(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     est.Status,
		"decided_at": est.DecidedAt,
	})
}

// displayDashboard serves the read-only shop display snapshot.
func (h *Handler) displayDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.display.Resolve(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httputil.WriteForbidden(w)
		return
	}

	rng, err := dashboardmodels.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := scope.WithScope(r.Context(), scope.ForTenant(tenantID))
	snap, err := h.dashboard.Snapshot(ctx, rng)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
