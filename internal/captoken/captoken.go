// Package captoken issues and verifies ephemeral capability tokens: opaque
// high-entropy secrets granting bearer access to one scoped action, verified
// against a stored digest, without standing session credentials.
//
// A subject owns exactly one live slot (digest + absolute expiry). Generate
// replaces the slot atomically, so rotation is the revocation mechanism; no
// separate revocation list exists. The raw token is returned to the caller
// exactly once and never stored.
package captoken

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/sentinel"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/secrets"
)

// Slot is the persisted half of a capability token.
type Slot struct {
	Digest    string
	ExpiresAt time.Time
}

// IsZero reports whether the slot has never been filled.
func (s Slot) IsZero() bool {
	return s.Digest == ""
}

// SlotStore persists a subject's single token slot. ReplaceSlot must swap
// digest and expiry as one atomic write. GetSlot is a point-in-time read; no
// locking is needed on the verify path because staleness only narrows the
// valid window, never widens it.
type SlotStore interface {
	ReplaceSlot(ctx context.Context, subject uuid.UUID, slot Slot) error
	GetSlot(ctx context.Context, subject uuid.UUID) (Slot, error)
}

// Service implements the token contract for one subject kind. Estimate
// portal slots and tenant display slots each get their own Service over
// their own SlotStore.
type Service struct {
	slots  SlotStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(slots SlotStore, opts ...Option) *Service {
	s := &Service{slots: slots, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate mints a fresh token for the subject, persists only its digest and
// expiry, and returns the raw token. Any previously issued token for the
// subject stops verifying immediately.
func (s *Service) Generate(ctx context.Context, subject uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "token ttl must be positive")
	}

	token, err := secrets.GenerateToken()
	if err != nil {
		return "", err
	}

	slot := Slot{
		Digest:    secrets.Digest(token),
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.slots.ReplaceSlot(ctx, subject, slot); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not store token slot")
	}
	return token, nil
}

// Verify reports whether candidate is the subject's live token. It fails
// closed: an empty slot, a past expiry, a store error, or a digest mismatch
// all yield false. The digest comparison is constant time.
func (s *Service) Verify(ctx context.Context, subject uuid.UUID, candidate string) bool {
	if candidate == "" {
		return false
	}

	slot, err := s.slots.GetSlot(ctx, subject)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.ErrorContext(ctx, "token slot read failed", "subject", subject, "error", err)
		}
		return false
	}
	if slot.IsZero() || s.now().After(slot.ExpiresAt) {
		return false
	}
	return secrets.DigestEqual(slot.Digest, secrets.Digest(candidate))
}
