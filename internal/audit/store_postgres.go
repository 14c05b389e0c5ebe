package audit

import (
	"context"
	"database/sql"
	"fmt"

	"shopcore/internal/tenant/scope"
)

// PostgresStore persists audit records. The table carries no UPDATE or
// DELETE path in this core.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	query := `
		INSERT INTO audit_log (id, tenant_id, actor_id, actor, action, description, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.TenantID,
		record.ActorID,
		record.Actor,
		record.Action,
		record.Description,
		record.IPAddress,
		record.UserAgent,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, sc scope.Scope, limit int) ([]Record, error) {
	if sc.IsZero() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, tenant_id, actor_id, actor, action, description, ip_address, user_agent, created_at
		FROM audit_log
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, sc.TenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.TenantID, &r.ActorID, &r.Actor, &r.Action, &r.Description, &r.IPAddress, &r.UserAgent, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PurgeTenant removes a deleted tenant's trail. ON DELETE CASCADE covers the
// schema path; this keeps both store flavors on the same purger contract.
func (s *PostgresStore) PurgeTenant(ctx context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE tenant_id = $1`, sc.TenantID); err != nil {
		return fmt.Errorf("purge audit records: %w", err)
	}
	return nil
}
