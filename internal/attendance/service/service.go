package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/attendance/models"
	"shopcore/internal/audit"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
)

// Store is the guarded persistence surface for punches and time entries.
type Store interface {
	OpenPunch(ctx context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.ShiftPunch, error)
	ClosePunch(ctx context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.ShiftPunch, error)
	ListOpenPunches(ctx context.Context, sc scope.Scope) ([]models.ShiftPunch, error)
	StartEntry(ctx context.Context, sc scope.Scope, techID, orderID uuid.UUID, at time.Time) (*models.TimeEntry, error)
	StopEntry(ctx context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.TimeEntry, error)
}

// AuditPublisher appends one record per privileged mutation.
type AuditPublisher interface {
	Emit(ctx context.Context, record audit.Record) error
}

// Service owns clock punches and wrench-time entries.
type Service struct {
	store   Store
	auditor AuditPublisher
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
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

// ClockIn opens a presence punch. A tech with an open punch cannot clock in
// again; the existing punch has to be closed first.
func (s *Service) ClockIn(ctx context.Context, techID uuid.UUID) (*models.ShiftPunch, error) {
	punch, err := s.store.OpenPunch(ctx, scope.FromContext(ctx), techID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "technician is already clocked in")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clock in")
	}
	s.emit(ctx, audit.ActionClockIn, fmt.Sprintf("technician %s clocked in", techID))
	return punch, nil
}

func (s *Service) ClockOut(ctx context.Context, techID uuid.UUID) (*models.ShiftPunch, error) {
	punch, err := s.store.ClosePunch(ctx, scope.FromContext(ctx), techID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "technician is not clocked in")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clock out")
	}
	s.emit(ctx, audit.ActionClockOut, fmt.Sprintf("technician %s clocked out", techID))
	return punch, nil
}

func (s *Service) ListOpenPunches(ctx context.Context) ([]models.ShiftPunch, error) {
	punches, err := s.store.ListOpenPunches(ctx, scope.FromContext(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open punches")
	}
	return punches, nil
}

// StartEntry begins wrench time on an order. One running entry per tech.
func (s *Service) StartEntry(ctx context.Context, techID, orderID uuid.UUID) (*models.TimeEntry, error) {
	entry, err := s.store.StartEntry(ctx, scope.FromContext(ctx), techID, orderID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "technician already has a running time entry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start time entry")
	}
	s.emit(ctx, audit.ActionTimeEntryStarted,
		fmt.Sprintf("technician %s started work on order %s", techID, orderID))
	return entry, nil
}

func (s *Service) StopEntry(ctx context.Context, techID uuid.UUID) (*models.TimeEntry, error) {
	entry, err := s.store.StopEntry(ctx, scope.FromContext(ctx), techID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "technician has no running time entry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stop time entry")
	}
	s.emit(ctx, audit.ActionTimeEntryStopped,
		fmt.Sprintf("technician %s stopped work on order %s", techID, entry.OrderID))
	return entry, nil
}

func (s *Service) emit(ctx context.Context, action, description string) {
	if s.auditor == nil {
		return
	}
	sc := scope.FromContext(ctx)
	err := s.auditor.Emit(ctx, audit.Record{
		TenantID:    sc.TenantID,
		Action:      action,
		Description: description,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
