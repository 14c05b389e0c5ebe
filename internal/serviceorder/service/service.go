package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/audit"
	"shopcore/internal/sentinel"
	ordermetrics "shopcore/internal/serviceorder/metrics"
	"shopcore/internal/serviceorder/models"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
)

// Store is the guarded persistence surface for service orders. Every method
// takes the resolved scope; a zero scope reads nothing and writes nothing.
type Store interface {
	Create(ctx context.Context, sc scope.Scope, order *models.ServiceOrder) error
	FindByID(ctx context.Context, sc scope.Scope, orderID uuid.UUID) (*models.ServiceOrder, error)
	List(ctx context.Context, sc scope.Scope) ([]models.ServiceOrder, error)
	UpdateStatus(ctx context.Context, sc scope.Scope, orderID uuid.UUID, from, to models.Status, now time.Time) (*models.ServiceOrder, error)
	AddLaborLine(ctx context.Context, sc scope.Scope, line *models.LaborLine) error
}

// AuditPublisher appends one record per privileged mutation.
type AuditPublisher interface {
	Emit(ctx context.Context, record audit.Record) error
}

// Service owns service order lifecycle operations.
type Service struct {
	store   Store
	auditor AuditPublisher
	logger  *slog.Logger
	metrics *ordermetrics.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *ordermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{store: store, auditor: auditor, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrderCommand carries caller input for a new order. It deliberately
// has no tenant field; the tenant always comes from the resolved scope.
type CreateOrderCommand struct {
	CustomerName  string
	UnitLabel     string
	InternalNotes string
	CustomerNotes string
	IsComeback    bool
}

func (s *Service) Create(ctx context.Context, cmd CreateOrderCommand) (*models.ServiceOrder, error) {
	sc := scope.FromContext(ctx)
	if sc.IsZero() {
		return nil, dErrors.New(dErrors.CodeNotFound, "service order not found")
	}

	order, err := models.NewServiceOrder(cmd.CustomerName, cmd.UnitLabel, s.now().UTC())
	if err != nil {
		return nil, err
	}
	order.InternalNotes = cmd.InternalNotes
	order.CustomerNotes = cmd.CustomerNotes
	order.IsComeback = cmd.IsComeback

	if err := s.store.Create(ctx, sc, order); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create service order")
	}
	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.ServiceOrder, error) {
	order, err := s.store.FindByID(ctx, scope.FromContext(ctx), orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service order")
	}
	return order, nil
}

func (s *Service) List(ctx context.Context) ([]models.ServiceOrder, error) {
	orders, err := s.store.List(ctx, scope.FromContext(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list service orders")
	}
	return orders, nil
}

// Transition moves the order to target if and only if target is the single
// state reachable from the order's current status. The legality check and
// the write form one atomic unit: the store update is conditioned on the
// status read here, so two concurrent attempts observing the same state
// cannot both win.
func (s *Service) Transition(ctx context.Context, orderID uuid.UUID, target models.Status) (*models.ServiceOrder, error) {
	sc := scope.FromContext(ctx)

	order, err := s.store.FindByID(ctx, sc, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service order")
	}

	if !order.Status.CanTransition(target) {
		if s.metrics != nil {
			s.metrics.RecordInvalidTransition()
		}
		return nil, models.InvalidTransitionError(order.Status, target)
	}

	updated, err := s.store.UpdateStatus(ctx, sc, orderID, order.Status, target, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrStaleStatus):
			// A concurrent transition won the race. The losing attempt
			// fails loudly rather than silently no-opping.
			if s.metrics != nil {
				s.metrics.RecordInvalidTransition()
			}
			return nil, models.InvalidTransitionError(order.Status, target)
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "service order not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to transition service order")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordTransition(string(target))
	}
	s.logAudit(ctx, sc, audit.Record{
		Action:      audit.ActionOrderTransition,
		Description: fmt.Sprintf("service order %s moved %s -> %s", orderID, order.Status, target),
	})
	return updated, nil
}

// AddLaborLineCommand books technician time against an order.
type AddLaborLineCommand struct {
	OrderID     uuid.UUID
	TechID      uuid.UUID
	Description string
	Hours       float64
	BilledHours float64
}

func (s *Service) AddLaborLine(ctx context.Context, cmd AddLaborLineCommand) (*models.LaborLine, error) {
	if cmd.Hours < 0 || cmd.BilledHours < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "hours cannot be negative")
	}
	line := &models.LaborLine{
		ID:          uuid.New(),
		OrderID:     cmd.OrderID,
		TechID:      cmd.TechID,
		Description: cmd.Description,
		Hours:       cmd.Hours,
		BilledHours: cmd.BilledHours,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.AddLaborLine(ctx, scope.FromContext(ctx), line); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "service order not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add labor line")
	}
	return line, nil
}

func (s *Service) logAudit(ctx context.Context, sc scope.Scope, record audit.Record) {
	if s.auditor == nil {
		return
	}
	record.TenantID = sc.TenantID
	if err := s.auditor.Emit(ctx, record); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", record.Action, "error", err)
	}
}
