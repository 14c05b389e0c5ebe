package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/sentinel"
	"shopcore/internal/serviceorder/models"
	"shopcore/internal/tenant/scope"
)

// PostgresStore persists service orders. Every statement filters on
// tenant_id from the scope; none accepts a tenant from the record payload.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orderColumns = `id, tenant_id, customer_name, unit_label, status, internal_notes, customer_notes, opened_at, in_progress_at, closed_at, is_comeback`

func (s *PostgresStore) Create(ctx context.Context, sc scope.Scope, order *models.ServiceOrder) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	query := `
		INSERT INTO service_orders (id, tenant_id, customer_name, unit_label, status, internal_notes, customer_notes, opened_at, is_comeback)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	// The tenant comes from the scope, never from the payload.
	_, err := s.db.ExecContext(ctx, query,
		order.ID, sc.TenantID, order.CustomerName, order.UnitLabel, string(order.Status),
		order.InternalNotes, order.CustomerNotes, order.OpenedAt, order.IsComeback,
	)
	if err != nil {
		return fmt.Errorf("create service order: %w", err)
	}
	order.TenantID = sc.TenantID
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sc scope.Scope, orderID uuid.UUID) (*models.ServiceOrder, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM service_orders WHERE id = $1 AND tenant_id = $2`, orderColumns)
	order, err := scanOrder(s.db.QueryRowContext(ctx, query, orderID, sc.TenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find service order: %w", err)
	}
	return order, nil
}

func (s *PostgresStore) List(ctx context.Context, sc scope.Scope) ([]models.ServiceOrder, error) {
	if sc.IsZero() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM service_orders WHERE tenant_id = $1 ORDER BY opened_at DESC`, orderColumns)
	return s.queryOrders(ctx, query, sc.TenantID)
}

// UpdateStatus is the conditional transition write: the row only changes
// while its status still equals from. RowsAffected 0 means either the order
// is not visible to this scope or a concurrent transition won; the follow-up
// read distinguishes the two.
func (s *PostgresStore) UpdateStatus(ctx context.Context, sc scope.Scope, orderID uuid.UUID, from, to models.Status, now time.Time) (*models.ServiceOrder, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	query := `
		UPDATE service_orders
		SET status = $4,
		    in_progress_at = CASE WHEN $4 = 'in_progress' THEN $5 ELSE in_progress_at END,
		    closed_at      = CASE WHEN $4 = 'closed' THEN $5 ELSE closed_at END
		WHERE id = $1 AND tenant_id = $2 AND status = $3
	`
	res, err := s.db.ExecContext(ctx, query, orderID, sc.TenantID, string(from), string(to), now)
	if err != nil {
		return nil, fmt.Errorf("transition service order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, ferr := s.FindByID(ctx, sc, orderID); ferr != nil {
			return nil, sentinel.ErrNotFound
		}
		return nil, sentinel.ErrStaleStatus
	}
	return s.FindByID(ctx, sc, orderID)
}

func (s *PostgresStore) ListClosedBetween(ctx context.Context, sc scope.Scope, start, end time.Time) ([]models.ServiceOrder, error) {
	if sc.IsZero() {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM service_orders
		WHERE tenant_id = $1 AND closed_at >= $2 AND closed_at < $3
	`, orderColumns)
	return s.queryOrders(ctx, query, sc.TenantID, start, end)
}

func (s *PostgresStore) CountByStatus(ctx context.Context, sc scope.Scope, status models.Status) (int, error) {
	if sc.IsZero() {
		return 0, nil
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM service_orders WHERE tenant_id = $1 AND status = $2`,
		sc.TenantID, string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count service orders: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AddLaborLine(ctx context.Context, sc scope.Scope, line *models.LaborLine) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	query := `
		INSERT INTO labor_lines (id, tenant_id, service_order_id, tech_id, description, hours, billed_hours, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE EXISTS (SELECT 1 FROM service_orders WHERE id = $3 AND tenant_id = $2)
	`
	res, err := s.db.ExecContext(ctx, query,
		line.ID, sc.TenantID, line.OrderID, line.TechID, line.Description, line.Hours, line.BilledHours, line.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add labor line: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	line.TenantID = sc.TenantID
	return nil
}

func (s *PostgresStore) SumBilledHours(ctx context.Context, sc scope.Scope, start time.Time) (float64, error) {
	if sc.IsZero() {
		return 0, nil
	}
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(billed_hours), 0) FROM labor_lines WHERE tenant_id = $1 AND created_at >= $2`,
		sc.TenantID, start,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum billed hours: %w", err)
	}
	return total, nil
}

// PurgeTenant is handled by ON DELETE CASCADE in the schema; this exists so
// both store flavors satisfy the same purger contract.
func (s *PostgresStore) PurgeTenant(ctx context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM service_orders WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge service orders: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryOrders(ctx context.Context, query string, args ...any) ([]models.ServiceOrder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query service orders: %w", err)
	}
	defer rows.Close()

	var out []models.ServiceOrder
	for rows.Next() {
		var o models.ServiceOrder
		var status string
		if err := rows.Scan(&o.ID, &o.TenantID, &o.CustomerName, &o.UnitLabel, &status,
			&o.InternalNotes, &o.CustomerNotes, &o.OpenedAt, &o.InProgressAt, &o.ClosedAt, &o.IsComeback); err != nil {
			return nil, fmt.Errorf("scan service order: %w", err)
		}
		o.Status = models.Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row *sql.Row) (*models.ServiceOrder, error) {
	var o models.ServiceOrder
	var status string
	if err := row.Scan(&o.ID, &o.TenantID, &o.CustomerName, &o.UnitLabel, &status,
		&o.InternalNotes, &o.CustomerNotes, &o.OpenedAt, &o.InProgressAt, &o.ClosedAt, &o.IsComeback); err != nil {
		return nil, err
	}
	o.Status = models.Status(status)
	return &o, nil
}
