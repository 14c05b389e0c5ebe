package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/billing/models"
	"shopcore/internal/captoken"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// PostgresStore persists estimates and invoices. The portal token digest and
// expiry live on the estimate row; verify-path reads go through GetSlot.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const estimateColumns = `id, tenant_id, service_order_id, status, total, token_digest, token_expires_at, decided_at, approver_name, approved_ip, approved_user_agent, created_at`

func (s *PostgresStore) CreateEstimate(ctx context.Context, sc scope.Scope, est *models.Estimate) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	query := `
		INSERT INTO estimates (id, tenant_id, service_order_id, status, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		est.ID, sc.TenantID, est.OrderID, string(est.Status), est.Total, est.CreatedAt)
	if err != nil {
		return fmt.Errorf("create estimate: %w", err)
	}
	est.TenantID = sc.TenantID
	return nil
}

func (s *PostgresStore) FindEstimateByID(ctx context.Context, sc scope.Scope, estimateID uuid.UUID) (*models.Estimate, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM estimates WHERE id = $1 AND tenant_id = $2`, estimateColumns)
	return scanEstimate(s.db.QueryRowContext(ctx, query, estimateID, sc.TenantID))
}

func (s *PostgresStore) ListEstimatesByOrder(ctx context.Context, sc scope.Scope, orderID uuid.UUID) ([]models.Estimate, error) {
	if sc.IsZero() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM estimates WHERE tenant_id = $1 AND service_order_id = $2 ORDER BY created_at`, estimateColumns)
	rows, err := s.db.QueryContext(ctx, query, sc.TenantID, orderID)
	if err != nil {
		return nil, fmt.Errorf("list estimates: %w", err)
	}
	defer rows.Close()

	var out []models.Estimate
	for rows.Next() {
		est, err := scanEstimateRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *est)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindEstimateByTokenDigest(ctx context.Context, digest string) (*models.Estimate, error) {
	if digest == "" {
		return nil, sentinel.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM estimates WHERE token_digest = $1`, estimateColumns)
	return scanEstimate(s.db.QueryRowContext(ctx, query, digest))
}

// ReplaceSlot implements captoken.SlotStore with the estimate ID as subject.
func (s *PostgresStore) ReplaceSlot(ctx context.Context, subject uuid.UUID, slot captoken.Slot) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE estimates SET token_digest = $2, token_expires_at = $3 WHERE id = $1`,
		subject, slot.Digest, slot.ExpiresAt)
	if err != nil {
		return fmt.Errorf("replace estimate token slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// GetSlot implements captoken.SlotStore.
func (s *PostgresStore) GetSlot(ctx context.Context, subject uuid.UUID) (captoken.Slot, error) {
	var digest sql.NullString
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT token_digest, token_expires_at FROM estimates WHERE id = $1`,
		subject).Scan(&digest, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return captoken.Slot{}, sentinel.ErrNotFound
		}
		return captoken.Slot{}, fmt.Errorf("read estimate token slot: %w", err)
	}
	return captoken.Slot{Digest: digest.String, ExpiresAt: expiresAt.Time}, nil
}

func (s *PostgresStore) RecordDecision(ctx context.Context, estimateID uuid.UUID, status models.EstimateStatus, meta models.ApprovalMetadata, decidedAt time.Time) (*models.Estimate, error) {
	query := fmt.Sprintf(`
		UPDATE estimates
		SET status = $2, decided_at = $3, approver_name = $4, approved_ip = $5, approved_user_agent = $6
		WHERE id = $1
		RETURNING %s
	`, estimateColumns)
	return scanEstimate(s.db.QueryRowContext(ctx, query,
		estimateID, string(status), decidedAt, meta.ApproverName, meta.IPAddress, meta.UserAgent))
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, sc scope.Scope, inv *models.Invoice) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	query := `
		INSERT INTO invoices (id, tenant_id, service_order_id, number, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		inv.ID, sc.TenantID, inv.OrderID, inv.Number, inv.Total, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	inv.TenantID = sc.TenantID
	return nil
}

func (s *PostgresStore) FindInvoiceByID(ctx context.Context, sc scope.Scope, invoiceID uuid.UUID) (*models.Invoice, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	var inv models.Invoice
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, service_order_id, number, total, created_at FROM invoices WHERE id = $1 AND tenant_id = $2`,
		invoiceID, sc.TenantID,
	).Scan(&inv.ID, &inv.TenantID, &inv.OrderID, &inv.Number, &inv.Total, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return &inv, nil
}

func (s *PostgresStore) NextInvoiceNumber(ctx context.Context, sc scope.Scope) (string, error) {
	if sc.IsZero() {
		return "", sentinel.ErrInvalidState
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE tenant_id = $1`, sc.TenantID).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("count invoices: %w", err)
	}
	return fmt.Sprintf("INV-%05d", count+1), nil
}

func (s *PostgresStore) PurgeTenant(ctx context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge invoices: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge estimates: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEstimate(row *sql.Row) (*models.Estimate, error) {
	est, err := scanEstimateRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return est, nil
}

func scanEstimateRow(row rowScanner) (*models.Estimate, error) {
	var est models.Estimate
	var status string
	var digest sql.NullString
	var tokenExpiresAt sql.NullTime
	var approver, ip, ua sql.NullString
	err := row.Scan(&est.ID, &est.TenantID, &est.OrderID, &status, &est.Total,
		&digest, &tokenExpiresAt, &est.DecidedAt, &approver, &ip, &ua, &est.CreatedAt)
	if err != nil {
		return nil, err
	}
	est.Status = models.EstimateStatus(status)
	est.TokenDigest = digest.String
	est.TokenExpiresAt = tokenExpiresAt.Time
	est.ApproverName = approver.String
	est.ApprovedIP = ip.String
	est.ApprovedUserAgent = ua.String
	return &est, nil
}
