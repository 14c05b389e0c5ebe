// Package seeder provisions a demo tenant so a fresh environment has
// something to click through. It is only wired in when SEED_DEMO is set.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	attendancesvc "shopcore/internal/attendance/service"
	billingsvc "shopcore/internal/billing/service"
	identitymodels "shopcore/internal/identity/models"
	identitysvc "shopcore/internal/identity/service"
	ordermodels "shopcore/internal/serviceorder/models"
	ordersvc "shopcore/internal/serviceorder/service"
	"shopcore/internal/tenant/scope"
	tenantsvc "shopcore/internal/tenant/service"
)

// Services is everything the seeder drives. Seeding goes through the service
// layer so the demo data obeys the same rules as real traffic.
type Services struct {
	Tenants    *tenantsvc.Service
	Identity   *identitysvc.Service
	Orders     *ordersvc.Service
	Billing    *billingsvc.Service
	Attendance *attendancesvc.Service
}

// Seed creates the demo tenant, staff, and a handful of orders in assorted
// workflow states. It is idempotent per slug: a second run against the same
// store is a no-op.
func Seed(ctx context.Context, logger *slog.Logger, svcs Services) error {
	tenant, err := svcs.Tenants.Create(ctx, "Demo Repair Co", "demo-repair")
	if err != nil {
		logger.InfoContext(ctx, "demo tenant already present, skipping seed")
		return nil
	}
	ctx = scope.WithScope(ctx, scope.ForTenant(tenant.ID))

	admin, err := svcs.Identity.Register(ctx, tenant.ID, "admin@demo-repair.test", "Dana Admin",
		"demo-password", identitymodels.RoleAdmin, identitymodels.RoleAdvisor)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	tech, err := svcs.Identity.Register(ctx, tenant.ID, "tech@demo-repair.test", "Terry Tech",
		"demo-password", identitymodels.RoleTech)
	if err != nil {
		return fmt.Errorf("seed tech: %w", err)
	}

	statuses := []ordermodels.Status{
		ordermodels.StatusDraft,
		ordermodels.StatusAwaitingApproval,
		ordermodels.StatusInProgress,
		ordermodels.StatusReadyToInvoice,
	}
	var awaitingID uuid.UUID
	for i, target := range statuses {
		order, err := svcs.Orders.Create(ctx, ordersvc.CreateOrderCommand{
			CustomerName: fmt.Sprintf("Demo Customer %d", i+1),
			UnitLabel:    fmt.Sprintf("unit-%d", i+1),
		})
		if err != nil {
			return fmt.Errorf("seed order: %w", err)
		}
		for current := ordermodels.StatusDraft; current != target; {
			next, _ := current.Next()
			if _, err := svcs.Orders.Transition(ctx, order.ID, next); err != nil {
				return fmt.Errorf("seed transition: %w", err)
			}
			current = next
		}
		if target == ordermodels.StatusAwaitingApproval {
			awaitingID = order.ID
		}
	}

	// A pending estimate with a live portal token, logged so the demo link
	// can be copied from startup output.
	est, err := svcs.Billing.CreateEstimate(ctx, awaitingID, 1287.50)
	if err != nil {
		return fmt.Errorf("seed estimate: %w", err)
	}
	portalToken, _, err := svcs.Billing.IssuePortalToken(ctx, est.ID)
	if err != nil {
		return fmt.Errorf("seed portal token: %w", err)
	}

	if _, err := svcs.Attendance.ClockIn(ctx, tech.ID); err != nil {
		return fmt.Errorf("seed clock in: %w", err)
	}

	logger.InfoContext(ctx, "demo tenant seeded",
		"tenant_id", tenant.ID,
		"admin_email", admin.Email,
		"portal_url", "/portal/estimate?token="+portalToken,
	)
	return nil
}
