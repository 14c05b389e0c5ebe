package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/audit"
	"shopcore/internal/captoken"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/secrets"
)

// TokenDirectory maps a display token digest back to its owning tenant.
type TokenDirectory interface {
	FindTenantByTokenDigest(ctx context.Context, digest string) (uuid.UUID, error)
}

// AuditPublisher appends one record per privileged mutation.
type AuditPublisher interface {
	Emit(ctx context.Context, record audit.Record) error
}

// Service owns the per-tenant shop display token: rotation by an
// authenticated admin and resolution for the anonymous display gateway.
type Service struct {
	tokens    *captoken.Service
	directory TokenDirectory
	auditor   AuditPublisher
	logger    *slog.Logger
	now       func() time.Time
	ttl       time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenTTL overrides the default 24h display token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func New(tokens *captoken.Service, directory TokenDirectory, auditor AuditPublisher, opts ...Option) *Service {
	s := &Service{
		tokens:    tokens,
		directory: directory,
		auditor:   auditor,
		now:       time.Now,
		ttl:       24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rotate mints a fresh display token for the acting tenant and returns the
// raw value exactly once. The previous token stops verifying immediately, so
// rotation is how a stolen display URL gets cut off.
func (s *Service) Rotate(ctx context.Context) (string, time.Time, error) {
	sc := scope.FromContext(ctx)
	if sc.IsZero() {
		return "", time.Time{}, dErrors.New(dErrors.CodeForbidden, "no tenant scope")
	}

	raw, err := s.tokens.Generate(ctx, sc.TenantID, s.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().UTC().Add(s.ttl)

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Record{
			TenantID:    sc.TenantID,
			Action:      audit.ActionDisplayTokenRotated,
			Description: "shop display token rotated",
		}); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "audit emit failed", "action", audit.ActionDisplayTokenRotated, "error", err)
		}
	}
	return raw, expiresAt, nil
}

// Resolve maps a raw display token to the tenant it grants read access to.
// Missing, expired, and mismatched tokens are indistinguishable to callers.
func (s *Service) Resolve(ctx context.Context, rawToken string) (uuid.UUID, error) {
	invalid := dErrors.New(dErrors.CodeTokenInvalid, "invalid token")
	if rawToken == "" {
		return uuid.Nil, invalid
	}
	tenantID, err := s.directory.FindTenantByTokenDigest(ctx, secrets.Digest(rawToken))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.ErrorContext(ctx, "display token lookup failed", "error", err)
		}
		return uuid.Nil, invalid
	}
	if !s.tokens.Verify(ctx, tenantID, rawToken) {
		return uuid.Nil, invalid
	}
	return tenantID, nil
}
