package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "shopcore/pkg/domain-errors"
)

// Status is the service order lifecycle state. The chain is strictly linear:
// each state has exactly one legal outgoing edge and CLOSED is terminal.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
	StatusInProgress       Status = "in_progress"
	StatusReadyToInvoice   Status = "ready_to_invoice"
	StatusInvoiced         Status = "invoiced"
	StatusClosed           Status = "closed"
)

// successor holds the single legal outgoing edge per state. CLOSED has none.
var successor = map[Status]Status{
	StatusDraft:            StatusAwaitingApproval,
	StatusAwaitingApproval: StatusApproved,
	StatusApproved:         StatusInProgress,
	StatusInProgress:       StatusReadyToInvoice,
	StatusReadyToInvoice:   StatusInvoiced,
	StatusInvoiced:         StatusClosed,
}

// ParseStatus validates a caller-supplied status value before the state
// machine is ever consulted.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	switch status {
	case StatusDraft, StatusAwaitingApproval, StatusApproved, StatusInProgress,
		StatusReadyToInvoice, StatusInvoiced, StatusClosed:
		return status, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown status %q", s))
}

// Next returns the sole state reachable from s. ok is false for CLOSED.
func (s Status) Next() (Status, bool) {
	next, ok := successor[s]
	return next, ok
}

// CanTransition reports whether target is the single declared successor of s.
// Skips, backward moves, and self-transitions all fail.
func (s Status) CanTransition(target Status) bool {
	next, ok := successor[s]
	return ok && next == target
}

// ServiceOrder is a tenant-scoped repair job moving through the workflow.
type ServiceOrder struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	CustomerName  string     `json:"customer_name"`
	UnitLabel     string     `json:"unit_label"` // vehicle/equipment identifier
	Status        Status     `json:"status"`
	InternalNotes string     `json:"internal_notes"`
	CustomerNotes string     `json:"customer_notes"`
	OpenedAt      time.Time  `json:"opened_at"`
	InProgressAt  *time.Time `json:"in_progress_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	IsComeback    bool       `json:"is_comeback"`
}

// NewServiceOrder opens an order in DRAFT.
func NewServiceOrder(customerName, unitLabel string, now time.Time) (*ServiceOrder, error) {
	if customerName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "customer name is required")
	}
	return &ServiceOrder{
		ID:           uuid.New(),
		CustomerName: customerName,
		UnitLabel:    unitLabel,
		Status:       StatusDraft,
		OpenedAt:     now,
	}, nil
}

// InvalidTransitionError builds the domain error naming the rejected target.
func InvalidTransitionError(current, target Status) error {
	return dErrors.New(dErrors.CodeInvalidTransition,
		fmt.Sprintf("cannot transition from %s to %s", current, target))
}

// LaborLine records technician hours booked against an order. BilledHours
// feeds the efficiency figure on the dashboard.
type LaborLine struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	OrderID     uuid.UUID `json:"service_order_id"`
	TechID      uuid.UUID `json:"tech_id"`
	Description string    `json:"description"`
	Hours       float64   `json:"hours"`
	BilledHours float64   `json:"billed_hours"`
	CreatedAt   time.Time `json:"created_at"`
}
