package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/billing/models"
	"shopcore/internal/captoken"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// InMemoryStore keeps estimates and invoices in maps. It also implements
// captoken.SlotStore with the estimate ID as the subject, so the portal token
// lives on the estimate row rather than in a separate table.
type InMemoryStore struct {
	mu        sync.RWMutex
	estimates map[uuid.UUID]*models.Estimate
	invoices  map[uuid.UUID]*models.Invoice
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		estimates: make(map[uuid.UUID]*models.Estimate),
		invoices:  make(map[uuid.UUID]*models.Invoice),
	}
}

func (s *InMemoryStore) CreateEstimate(_ context.Context, sc scope.Scope, est *models.Estimate) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *est
	clone.TenantID = sc.TenantID
	s.estimates[est.ID] = &clone
	est.TenantID = sc.TenantID
	return nil
}

func (s *InMemoryStore) FindEstimateByID(_ context.Context, sc scope.Scope, estimateID uuid.UUID) (*models.Estimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	est, ok := s.estimates[estimateID]
	if !ok || !sc.Covers(est.TenantID) {
		return nil, sentinel.ErrNotFound
	}
	clone := *est
	return &clone, nil
}

func (s *InMemoryStore) ListEstimatesByOrder(_ context.Context, sc scope.Scope, orderID uuid.UUID) ([]models.Estimate, error) {
	if sc.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Estimate
	for _, est := range s.estimates {
		if sc.Covers(est.TenantID) && est.OrderID == orderID {
			out = append(out, *est)
		}
	}
	return out, nil
}

// FindEstimateByTokenDigest is the gateway's entry point. It is deliberately
// unscoped: the token digest is the only credential an anonymous portal
// visitor has, and it identifies both the estimate and its tenant.
func (s *InMemoryStore) FindEstimateByTokenDigest(_ context.Context, digest string) (*models.Estimate, error) {
	if digest == "" {
		return nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, est := range s.estimates {
		if est.TokenDigest == digest {
			clone := *est
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ReplaceSlot implements captoken.SlotStore. The subject is the estimate ID.
func (s *InMemoryStore) ReplaceSlot(_ context.Context, subject uuid.UUID, slot captoken.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	est, ok := s.estimates[subject]
	if !ok {
		return sentinel.ErrNotFound
	}
	est.TokenDigest = slot.Digest
	est.TokenExpiresAt = slot.ExpiresAt
	return nil
}

// GetSlot implements captoken.SlotStore.
func (s *InMemoryStore) GetSlot(_ context.Context, subject uuid.UUID) (captoken.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	est, ok := s.estimates[subject]
	if !ok {
		return captoken.Slot{}, sentinel.ErrNotFound
	}
	return captoken.Slot{Digest: est.TokenDigest, ExpiresAt: est.TokenExpiresAt}, nil
}

// RecordDecision writes the decision outcome and approval provenance. A
// repeat decision overwrites the previous one; the portal token stays live
// until it expires or is rotated.
func (s *InMemoryStore) RecordDecision(_ context.Context, estimateID uuid.UUID, status models.EstimateStatus, meta models.ApprovalMetadata, decidedAt time.Time) (*models.Estimate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	est, ok := s.estimates[estimateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	est.Status = status
	ts := decidedAt
	est.DecidedAt = &ts
	est.ApproverName = meta.ApproverName
	est.ApprovedIP = meta.IPAddress
	est.ApprovedUserAgent = meta.UserAgent
	clone := *est
	return &clone, nil
}

func (s *InMemoryStore) CreateInvoice(_ context.Context, sc scope.Scope, inv *models.Invoice) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *inv
	clone.TenantID = sc.TenantID
	s.invoices[inv.ID] = &clone
	inv.TenantID = sc.TenantID
	return nil
}

func (s *InMemoryStore) FindInvoiceByID(_ context.Context, sc scope.Scope, invoiceID uuid.UUID) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[invoiceID]
	if !ok || !sc.Covers(inv.TenantID) {
		return nil, sentinel.ErrNotFound
	}
	clone := *inv
	return &clone, nil
}

// NextInvoiceNumber produces a per-tenant sequential invoice number.
func (s *InMemoryStore) NextInvoiceNumber(_ context.Context, sc scope.Scope) (string, error) {
	if sc.IsZero() {
		return "", sentinel.ErrInvalidState
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, inv := range s.invoices {
		if sc.Covers(inv.TenantID) {
			count++
		}
	}
	return fmt.Sprintf("INV-%05d", count+1), nil
}

func (s *InMemoryStore) PurgeTenant(_ context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, est := range s.estimates {
		if sc.Covers(est.TenantID) {
			delete(s.estimates, id)
		}
	}
	for id, inv := range s.invoices {
		if sc.Covers(inv.TenantID) {
			delete(s.invoices, id)
		}
	}
	return nil
}
