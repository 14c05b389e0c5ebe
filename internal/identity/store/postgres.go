package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"shopcore/internal/identity/models"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// PostgresStore persists users. Roles are stored as a text array.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, name, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.TenantID, user.Email, user.Name, user.PasswordHash, joinRoles(user.Roles), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, tenant_id, email, name, password_hash, roles, created_at FROM users WHERE lower(email) = lower($1)`
	return scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `SELECT id, tenant_id, email, name, password_hash, roles, created_at FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, userID))
}

func (s *PostgresStore) PurgeTenant(ctx context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge users: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var roles string
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash, &roles, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	for _, r := range strings.Split(roles, ",") {
		if r != "" {
			u.Roles = append(u.Roles, models.Role(r))
		}
	}
	return &u, nil
}

// joinRoles flattens roles into the comma-separated text column.
func joinRoles(roles []models.Role) string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return strings.Join(out, ",")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
