// Package audit captures the append-only trail of privileged and
// capability-gated mutations. Records are never updated or deleted.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// AnonymousActor marks records created through the unauthenticated gateway.
const AnonymousActor = "anonymous"

// Record is one immutable audit entry.
type Record struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"` // nil for anonymous capability-gated actions
	Actor       string     `json:"actor"`
	Action      string     `json:"action"`
	Description string     `json:"description"`
	IPAddress   string     `json:"ip_address"`
	UserAgent   string     `json:"user_agent"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Action codes emitted by the core.
const (
	ActionTenantCreated       = "tenant_created"
	ActionTenantRenamed       = "tenant_renamed"
	ActionTenantDeleted       = "tenant_deleted"
	ActionOrderTransition     = "service_order_transition"
	ActionEstimateTokenIssued = "estimate_token_issued"
	ActionEstimateDecision    = "estimate_portal_decision"
	ActionDisplayTokenRotated = "display_token_rotated"
	ActionInvoiceCreated      = "invoice_created"
	ActionClockIn             = "clock_in"
	ActionClockOut            = "clock_out"
	ActionTimeEntryStarted    = "time_entry_started"
	ActionTimeEntryStopped    = "time_entry_stopped"
)
