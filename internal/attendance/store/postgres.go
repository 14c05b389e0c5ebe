package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/attendance/models"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// PostgresStore persists punches and time entries. The one-open-per-tech
// constraints are enforced with conditional INSERT ... WHERE NOT EXISTS.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) OpenPunch(ctx context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrInvalidState
	}
	punch := &models.ShiftPunch{ID: uuid.New(), TenantID: sc.TenantID, TechID: techID, ClockInAt: at}
	query := `
		INSERT INTO shift_punches (id, tenant_id, tech_id, clock_in_at)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM shift_punches WHERE tenant_id = $2 AND tech_id = $3 AND clock_out_at IS NULL
		)
	`
	res, err := s.db.ExecContext(ctx, query, punch.ID, sc.TenantID, techID, at)
	if err != nil {
		return nil, fmt.Errorf("open punch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sentinel.ErrAlreadyUsed
	}
	return punch, nil
}

func (s *PostgresStore) ClosePunch(ctx context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	query := `
		UPDATE shift_punches SET clock_out_at = $3
		WHERE tenant_id = $1 AND tech_id = $2 AND clock_out_at IS NULL
		RETURNING id, tenant_id, tech_id, clock_in_at, clock_out_at
	`
	punch, err := scanPunch(s.db.QueryRowContext(ctx, query, sc.TenantID, techID, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("close punch: %w", err)
	}
	return punch, nil
}

func (s *PostgresStore) ListOpenPunches(ctx context.Context, sc scope.Scope) ([]models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, nil
	}
	return s.queryPunches(ctx,
		`SELECT id, tenant_id, tech_id, clock_in_at, clock_out_at FROM shift_punches
		 WHERE tenant_id = $1 AND clock_out_at IS NULL`, sc.TenantID)
}

func (s *PostgresStore) ListPunchesTouching(ctx context.Context, sc scope.Scope, start, end time.Time) ([]models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, nil
	}
	return s.queryPunches(ctx,
		`SELECT id, tenant_id, tech_id, clock_in_at, clock_out_at FROM shift_punches
		 WHERE tenant_id = $1 AND clock_in_at < $3 AND (clock_out_at IS NULL OR clock_out_at > $2)`,
		sc.TenantID, start, end)
}

func (s *PostgresStore) StartEntry(ctx context.Context, sc scope.Scope, techID, orderID uuid.UUID, at time.Time) (*models.TimeEntry, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrInvalidState
	}
	entry := &models.TimeEntry{ID: uuid.New(), TenantID: sc.TenantID, TechID: techID, OrderID: orderID, StartedAt: at}
	query := `
		INSERT INTO time_entries (id, tenant_id, tech_id, service_order_id, started_at)
		SELECT $1, $2, $3, $4, $5
		WHERE NOT EXISTS (
			SELECT 1 FROM time_entries WHERE tenant_id = $2 AND tech_id = $3 AND stopped_at IS NULL
		)
	`
	res, err := s.db.ExecContext(ctx, query, entry.ID, sc.TenantID, techID, orderID, at)
	if err != nil {
		return nil, fmt.Errorf("start time entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sentinel.ErrAlreadyUsed
	}
	return entry, nil
}

func (s *PostgresStore) StopEntry(ctx context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.TimeEntry, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	query := `
		UPDATE time_entries SET stopped_at = $3
		WHERE tenant_id = $1 AND tech_id = $2 AND stopped_at IS NULL
		RETURNING id, tenant_id, tech_id, service_order_id, started_at, stopped_at
	`
	var e models.TimeEntry
	err := s.db.QueryRowContext(ctx, query, sc.TenantID, techID, at).
		Scan(&e.ID, &e.TenantID, &e.TechID, &e.OrderID, &e.StartedAt, &e.StoppedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("stop time entry: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) ListEntriesTouching(ctx context.Context, sc scope.Scope, start, end time.Time) ([]models.TimeEntry, error) {
	if sc.IsZero() {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, tech_id, service_order_id, started_at, stopped_at FROM time_entries
		 WHERE tenant_id = $1 AND started_at < $3 AND (stopped_at IS NULL OR stopped_at > $2)`,
		sc.TenantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	var out []models.TimeEntry
	for rows.Next() {
		var e models.TimeEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.TechID, &e.OrderID, &e.StartedAt, &e.StoppedAt); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PurgeTenant(ctx context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM time_entries WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge time entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shift_punches WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge shift punches: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryPunches(ctx context.Context, query string, args ...any) ([]models.ShiftPunch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shift punches: %w", err)
	}
	defer rows.Close()

	var out []models.ShiftPunch
	for rows.Next() {
		var p models.ShiftPunch
		if err := rows.Scan(&p.ID, &p.TenantID, &p.TechID, &p.ClockInAt, &p.ClockOutAt); err != nil {
			return nil, fmt.Errorf("scan shift punch: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPunch(row *sql.Row) (*models.ShiftPunch, error) {
	var p models.ShiftPunch
	if err := row.Scan(&p.ID, &p.TenantID, &p.TechID, &p.ClockInAt, &p.ClockOutAt); err != nil {
		return nil, err
	}
	return &p, nil
}
