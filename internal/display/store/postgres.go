package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"shopcore/internal/captoken"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// PostgresStore keeps display token slots in their own table, one row per
// tenant, replaced wholesale on rotation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ReplaceSlot implements captoken.SlotStore via an upsert keyed on tenant.
func (s *PostgresStore) ReplaceSlot(ctx context.Context, subject uuid.UUID, slot captoken.Slot) error {
	query := `
		INSERT INTO display_tokens (tenant_id, token_digest, token_expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE SET token_digest = $2, token_expires_at = $3
	`
	if _, err := s.db.ExecContext(ctx, query, subject, slot.Digest, slot.ExpiresAt); err != nil {
		return fmt.Errorf("replace display token slot: %w", err)
	}
	return nil
}

// GetSlot implements captoken.SlotStore.
func (s *PostgresStore) GetSlot(ctx context.Context, subject uuid.UUID) (captoken.Slot, error) {
	var slot captoken.Slot
	err := s.db.QueryRowContext(ctx,
		`SELECT token_digest, token_expires_at FROM display_tokens WHERE tenant_id = $1`,
		subject).Scan(&slot.Digest, &slot.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return captoken.Slot{}, nil
		}
		return captoken.Slot{}, fmt.Errorf("read display token slot: %w", err)
	}
	return slot, nil
}

func (s *PostgresStore) FindTenantByTokenDigest(ctx context.Context, digest string) (uuid.UUID, error) {
	if digest == "" {
		return uuid.Nil, sentinel.ErrNotFound
	}
	var tenantID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant_id FROM display_tokens WHERE token_digest = $1`, digest).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, sentinel.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("find display token: %w", err)
	}
	return tenantID, nil
}

func (s *PostgresStore) PurgeTenant(ctx context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM display_tokens WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge display tokens: %w", err)
	}
	return nil
}
