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
	tenantmetrics "shopcore/internal/tenant/metrics"
	"shopcore/internal/tenant/models"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
)

// Store is the persistence surface for tenants. Tenants are the isolation
// roots, so this is the one store in the system that is not scope-guarded.
type Store interface {
	CreateIfSlugAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
}

// Purger removes everything a tenant owns from one domain store. Each domain
// registers its purger so tenant deletion cascades across the whole system.
type Purger interface {
	PurgeTenant(ctx context.Context, sc scope.Scope) error
}

// AuditPublisher appends one record per privileged mutation.
type AuditPublisher interface {
	Emit(ctx context.Context, record audit.Record) error
}

// Service owns tenant lifecycle operations.
type Service struct {
	store   Store
	auditor AuditPublisher
	purgers []Purger
	logger  *slog.Logger
	now     func() time.Time
	metrics *tenantmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *tenantmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPurgers registers the domain stores to cascade deletes into.
func WithPurgers(purgers ...Purger) Option {
	return func(s *Service) { s.purgers = append(s.purgers, purgers...) }
}

func New(store Store, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{store: store, auditor: auditor, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, name, slug string) (*models.Tenant, error) {
	tenant, err := models.NewTenant(name, slug, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateIfSlugAvailable(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("slug %q is taken", slug))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}
	if s.metrics != nil {
		s.metrics.Created.Inc()
	}
	s.emit(ctx, audit.Record{
		TenantID:    tenant.ID,
		Action:      audit.ActionTenantCreated,
		Description: fmt.Sprintf("tenant %q created with slug %q", name, slug),
	})
	return tenant, nil
}

func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.store.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	return tenant, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	tenant, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	return tenant, nil
}

func (s *Service) Rename(ctx context.Context, tenantID uuid.UUID, name string) (*models.Tenant, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	previous := tenant.Name
	if err := tenant.Rename(name); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, tenant); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rename tenant")
	}
	s.emit(ctx, audit.Record{
		TenantID:    tenant.ID,
		Action:      audit.ActionTenantRenamed,
		Description: fmt.Sprintf("tenant renamed from %q to %q", previous, name),
	})
	return tenant, nil
}

// Delete removes the tenant and cascades through every registered purger.
// The purge runs first so a half-failed delete leaves the tenant row intact
// and retryable rather than orphaning scoped data.
func (s *Service) Delete(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	sc := scope.ForTenant(tenantID)
	for _, purger := range s.purgers {
		if err := purger.PurgeTenant(ctx, sc); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge tenant data")
		}
	}
	if err := s.store.Delete(ctx, tenantID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete tenant")
	}
	if s.metrics != nil {
		s.metrics.Deleted.Inc()
	}
	s.emit(ctx, audit.Record{
		TenantID:    tenantID,
		Action:      audit.ActionTenantDeleted,
		Description: fmt.Sprintf("tenant %q deleted", tenant.Name),
	})
	return nil
}

func (s *Service) emit(ctx context.Context, record audit.Record) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, record); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", record.Action, "error", err)
	}
}
