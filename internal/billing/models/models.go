package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "shopcore/pkg/domain-errors"
)

// EstimateStatus is the customer-facing decision state of an estimate.
type EstimateStatus string

const (
	EstimatePending  EstimateStatus = "pending"
	EstimateApproved EstimateStatus = "approved"
	EstimateDeclined EstimateStatus = "declined"
)

// Decision is the verb a portal visitor submits.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// ParseDecision validates a caller-supplied decision verb.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionDecline:
		return Decision(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown decision %q", s))
}

// Status returns the estimate status a decision resolves to.
func (d Decision) Status() EstimateStatus {
	if d == DecisionApprove {
		return EstimateApproved
	}
	return EstimateDeclined
}

// Estimate is a priced proposal attached to a service order. Its ID doubles
// as the capability-token subject for the customer approval portal; only the
// token digest and expiry are stored, never the raw token.
type Estimate struct {
	ID       uuid.UUID      `json:"id"`
	TenantID uuid.UUID      `json:"tenant_id"`
	OrderID  uuid.UUID      `json:"service_order_id"`
	Status   EstimateStatus `json:"status"`
	Total    float64        `json:"total"`

	TokenDigest    string    `json:"-"`
	TokenExpiresAt time.Time `json:"-"`

	DecidedAt         *time.Time `json:"decided_at,omitempty"`
	ApproverName      string     `json:"approver_name,omitempty"`
	ApprovedIP        string     `json:"approved_ip,omitempty"`
	ApprovedUserAgent string     `json:"approved_user_agent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewEstimate opens a pending estimate for an order.
func NewEstimate(orderID uuid.UUID, total float64, now time.Time) (*Estimate, error) {
	if total < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "estimate total cannot be negative")
	}
	return &Estimate{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    EstimatePending,
		Total:     total,
		CreatedAt: now,
	}, nil
}

// ApprovalMetadata is the provenance recorded alongside a portal decision.
type ApprovalMetadata struct {
	ApproverName string
	IPAddress    string
	UserAgent    string
}

// Invoice is the billing artifact cut when an order leaves READY_TO_INVOICE.
type Invoice struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	OrderID   uuid.UUID `json:"service_order_id"`
	Number    string    `json:"number"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}
