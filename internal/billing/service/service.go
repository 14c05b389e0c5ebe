package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/audit"
	"shopcore/internal/billing/models"
	"shopcore/internal/captoken"
	"shopcore/internal/sentinel"
	ordermodels "shopcore/internal/serviceorder/models"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/requestcontext"
	"shopcore/pkg/secrets"
)

// Store is the guarded persistence surface for estimates and invoices.
type Store interface {
	CreateEstimate(ctx context.Context, sc scope.Scope, est *models.Estimate) error
	FindEstimateByID(ctx context.Context, sc scope.Scope, estimateID uuid.UUID) (*models.Estimate, error)
	ListEstimatesByOrder(ctx context.Context, sc scope.Scope, orderID uuid.UUID) ([]models.Estimate, error)
	FindEstimateByTokenDigest(ctx context.Context, digest string) (*models.Estimate, error)
	RecordDecision(ctx context.Context, estimateID uuid.UUID, status models.EstimateStatus, meta models.ApprovalMetadata, decidedAt time.Time) (*models.Estimate, error)
	CreateInvoice(ctx context.Context, sc scope.Scope, inv *models.Invoice) error
	FindInvoiceByID(ctx context.Context, sc scope.Scope, invoiceID uuid.UUID) (*models.Invoice, error)
	NextInvoiceNumber(ctx context.Context, sc scope.Scope) (string, error)
}

// Orders is the slice of the service order store billing needs: existence
// checks plus the conditional status write used by the approval cascade and
// by invoicing.
type Orders interface {
	FindByID(ctx context.Context, sc scope.Scope, orderID uuid.UUID) (*ordermodels.ServiceOrder, error)
	UpdateStatus(ctx context.Context, sc scope.Scope, orderID uuid.UUID, from, to ordermodels.Status, now time.Time) (*ordermodels.ServiceOrder, error)
}

// AuditPublisher appends one record per privileged mutation.
type AuditPublisher interface {
	Emit(ctx context.Context, record audit.Record) error
}

// Service owns estimates, portal tokens, portal decisions, and invoices.
type Service struct {
	store     Store
	orders    Orders
	tokens    *captoken.Service
	auditor   AuditPublisher
	logger    *slog.Logger
	now       func() time.Time
	portalTTL time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPortalTokenTTL overrides the default 72h portal token lifetime.
func WithPortalTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.portalTTL = ttl }
}

func New(store Store, orders Orders, tokens *captoken.Service, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{
		store:     store,
		orders:    orders,
		tokens:    tokens,
		auditor:   auditor,
		now:       time.Now,
		portalTTL: 72 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEstimate opens a pending estimate against a visible order.
func (s *Service) CreateEstimate(ctx context.Context, orderID uuid.UUID, total float64) (*models.Estimate, error) {
	sc := scope.FromContext(ctx)
	if _, err := s.orders.FindByID(ctx, sc, orderID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service order")
	}

	est, err := models.NewEstimate(orderID, total, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateEstimate(ctx, sc, est); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create estimate")
	}
	return est, nil
}

func (s *Service) GetEstimate(ctx context.Context, estimateID uuid.UUID) (*models.Estimate, error) {
	est, err := s.store.FindEstimateByID(ctx, scope.FromContext(ctx), estimateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "estimate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load estimate")
	}
	return est, nil
}

func (s *Service) ListEstimatesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Estimate, error) {
	ests, err := s.store.ListEstimatesByOrder(ctx, scope.FromContext(ctx), orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list estimates")
	}
	return ests, nil
}

// IssuePortalToken mints the estimate's portal token and returns the raw
// value exactly once. Issuing again rotates the slot, so any link previously
// sent to the customer stops working.
func (s *Service) IssuePortalToken(ctx context.Context, estimateID uuid.UUID) (string, time.Time, error) {
	sc := scope.FromContext(ctx)
	if _, err := s.store.FindEstimateByID(ctx, sc, estimateID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", time.Time{}, dErrors.New(dErrors.CodeNotFound, "estimate not found")
		}
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load estimate")
	}

	raw, err := s.tokens.Generate(ctx, estimateID, s.portalTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().UTC().Add(s.portalTTL)

	s.emit(ctx, audit.Record{
		TenantID:    sc.TenantID,
		Action:      audit.ActionEstimateTokenIssued,
		Description: fmt.Sprintf("portal token issued for estimate %s", estimateID),
	})
	return raw, expiresAt, nil
}

// PortalView is what an anonymous visitor with a valid token may see.
type PortalView struct {
	Estimate models.Estimate `json:"estimate"`
	Order    PortalOrder     `json:"service_order"`
}

// PortalOrder is the deliberately narrow order projection for the portal.
// Internal notes never cross this boundary.
type PortalOrder struct {
	CustomerName  string `json:"customer_name"`
	UnitLabel     string `json:"unit_label"`
	Status        string `json:"status"`
	CustomerNotes string `json:"customer_notes"`
}

// ResolvePortalToken maps a raw portal token to its estimate. Missing,
// expired, and mismatched tokens all return the same token_invalid error; the
// caller must not be able to tell which case it hit.
func (s *Service) ResolvePortalToken(ctx context.Context, rawToken string) (*models.Estimate, error) {
	invalid := dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	if rawToken == "" {
		return nil, invalid
	}
	est, err := s.store.FindEstimateByTokenDigest(ctx, secrets.Digest(rawToken))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.ErrorContext(ctx, "estimate token lookup failed", "error", err)
		}
		return nil, invalid
	}
	if !s.tokens.Verify(ctx, est.ID, rawToken) {
		return nil, invalid
	}
	return est, nil
}

// PortalViewFor builds the customer-facing view of a resolved estimate.
func (s *Service) PortalViewFor(ctx context.Context, est *models.Estimate) (*PortalView, error) {
	order, err := s.orders.FindByID(ctx, scope.ForTenant(est.TenantID), est.OrderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load portal order")
	}
	return &PortalView{
		Estimate: *est,
		Order: PortalOrder{
			CustomerName:  order.CustomerName,
			UnitLabel:     order.UnitLabel,
			Status:        string(order.Status),
			CustomerNotes: order.CustomerNotes,
		},
	}, nil
}

// Decide records a portal decision for the estimate a raw token resolves to.
// One decision produces exactly one audit record, attributed to the anonymous
// actor with the visitor's IP and a condensed user agent. An approval also
// attempts the order's AWAITING_APPROVAL -> APPROVED edge; when the order has
// already moved on, the cascade is skipped rather than failed so a repeated
// decision stays idempotent from the visitor's point of view.
func (s *Service) Decide(ctx context.Context, rawToken string, decision models.Decision, approverName string) (*models.Estimate, error) {
	est, err := s.ResolvePortalToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	meta := models.ApprovalMetadata{
		ApproverName: approverName,
		IPAddress:    requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
	}
	updated, err := s.store.RecordDecision(ctx, est.ID, decision.Status(), meta, s.now().UTC())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
	}

	if decision == models.DecisionApprove {
		s.cascadeApproval(ctx, est)
	}

	// A capability-gated mutation without its audit record is worse than a
	// failed request, so this append is the one emit that must succeed.
	err = s.auditEmit(ctx, audit.Record{
		TenantID: est.TenantID,
		Actor:    audit.AnonymousActor,
		Action:   audit.ActionEstimateDecision,
		Description: fmt.Sprintf("estimate %s %s by %q via %s",
			est.ID, decision.Status(), approverName, audit.DescribeUserAgent(meta.UserAgent)),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision audit trail")
	}
	return updated, nil
}

func (s *Service) cascadeApproval(ctx context.Context, est *models.Estimate) {
	sc := scope.ForTenant(est.TenantID)
	_, err := s.orders.UpdateStatus(ctx, sc, est.OrderID,
		ordermodels.StatusAwaitingApproval, ordermodels.StatusApproved, s.now().UTC())
	if err != nil && s.logger != nil {
		if errors.Is(err, sentinel.ErrStaleStatus) {
			s.logger.InfoContext(ctx, "approval cascade skipped, order already moved on",
				"order_id", est.OrderID)
		} else {
			s.logger.ErrorContext(ctx, "approval cascade failed",
				"order_id", est.OrderID, "error", err)
		}
	}
}

// CreateInvoice cuts an invoice for an order sitting in READY_TO_INVOICE and
// advances it to INVOICED. The conditional status write is what enforces the
// precondition; an order anywhere else in the chain rejects the edge.
func (s *Service) CreateInvoice(ctx context.Context, orderID uuid.UUID, total float64) (*models.Invoice, error) {
	if total < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "invoice total cannot be negative")
	}
	sc := scope.FromContext(ctx)

	order, err := s.orders.FindByID(ctx, sc, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service order")
	}

	if _, err := s.orders.UpdateStatus(ctx, sc, orderID,
		ordermodels.StatusReadyToInvoice, ordermodels.StatusInvoiced, s.now().UTC()); err != nil {
		if errors.Is(err, sentinel.ErrStaleStatus) || errors.Is(err, sentinel.ErrNotFound) {
			return nil, ordermodels.InvalidTransitionError(order.Status, ordermodels.StatusInvoiced)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to invoice service order")
	}

	number, err := s.store.NextInvoiceNumber(ctx, sc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to number invoice")
	}
	inv := &models.Invoice{
		ID:        uuid.New(),
		OrderID:   orderID,
		Number:    number,
		Total:     total,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateInvoice(ctx, sc, inv); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create invoice")
	}

	s.emit(ctx, audit.Record{
		TenantID:    sc.TenantID,
		Action:      audit.ActionInvoiceCreated,
		Description: fmt.Sprintf("invoice %s cut for order %s", inv.Number, orderID),
	})
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	inv, err := s.store.FindInvoiceByID(ctx, scope.FromContext(ctx), invoiceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "invoice not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load invoice")
	}
	return inv, nil
}

func (s *Service) emit(ctx context.Context, record audit.Record) {
	if err := s.auditEmit(ctx, record); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", record.Action, "error", err)
	}
}

func (s *Service) auditEmit(ctx context.Context, record audit.Record) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Emit(ctx, record)
}
