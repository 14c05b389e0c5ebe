package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/models"
)

// PostgresStore persists tenants in PostgreSQL. Scoped records reference
// tenants with ON DELETE CASCADE, so removing a tenant removes everything it
// owns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfSlugAvailable(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, slug, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, tenant.ID, tenant.Name, tenant.Slug, tenant.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant slug taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM tenants
		WHERE id = $1
	`
	return scanTenant(s.db.QueryRowContext(ctx, query, tenantID))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM tenants
		WHERE lower(slug) = lower($1)
	`
	return scanTenant(s.db.QueryRowContext(ctx, query, slug))
}

func (s *PostgresStore) Update(ctx context.Context, tenant *models.Tenant) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tenants SET name = $2 WHERE id = $1`, tenant.ID, tenant.Name)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, tenantID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	var t models.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
