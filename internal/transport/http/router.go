// Package http assembles the chi router: platform middleware, the public
// surfaces (health, metrics, login, the capability-token gateway), and the
// authenticated tenant API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	attendancehandler "shopcore/internal/attendance/handler"
	billinghandler "shopcore/internal/billing/handler"
	dashboardhandler "shopcore/internal/dashboard/handler"
	displayhandler "shopcore/internal/display/handler"
	"shopcore/internal/gateway"
	identityhandler "shopcore/internal/identity/handler"
	identitymw "shopcore/internal/identity/middleware"
	identitymodels "shopcore/internal/identity/models"
	identitysvc "shopcore/internal/identity/service"
	"shopcore/internal/platform/health"
	orderhandler "shopcore/internal/serviceorder/handler"
	tenanthandler "shopcore/internal/tenant/handler"
	"shopcore/pkg/platform/middleware/metadata"
	"shopcore/pkg/platform/middleware/request"
)

// Handlers collects everything the router mounts.
type Handlers struct {
	Health     *health.Handler
	Identity   *identityhandler.Handler
	Tenants    *tenanthandler.Handler
	Orders     *orderhandler.Handler
	Billing    *billinghandler.Handler
	Display    *displayhandler.Handler
	Attendance *attendancehandler.Handler
	Dashboard  *dashboardhandler.Handler
	Gateway    *gateway.Handler
}

// Config tunes router-level behavior.
type Config struct {
	RequestTimeout time.Duration
	Metadata       *metadata.Config
}

// New builds the full router.
func New(cfg Config, logger *slog.Logger, identity *identitysvc.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}
	r.Use(metadata.New(cfg.Metadata).Handler)

	h.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public: login and the capability-token gateway.
	h.Identity.Register(r)
	h.Gateway.Register(r)

	// Authenticated tenant API. The scope resolved from the session token is
	// the only tenant identity any handler below ever sees.
	r.Route("/api", func(r chi.Router) {
		r.Use(identitymw.Authenticate(identity))

		h.Orders.Register(r)
		h.Billing.Register(r)
		h.Attendance.Register(r)
		h.Dashboard.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(identitymw.RequireRole(identitymodels.RoleAdmin))
			h.Tenants.Register(r)
			h.Display.Register(r)
		})
	})

	return r
}
