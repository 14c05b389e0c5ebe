package audit

import (
	"context"
	"sync"

	"shopcore/internal/tenant/scope"
)

// InMemoryStore keeps audit records per tenant. Append-only by construction:
// nothing here mutates or removes an existing record.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record // tenant id -> records in append order
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]Record)}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := record.TenantID.String()
	s.records[key] = append(s.records[key], record)
	return nil
}

// ListByTenant returns the scope's records, newest last. A zero scope reads
// nothing.
func (s *InMemoryStore) ListByTenant(_ context.Context, sc scope.Scope, limit int) ([]Record, error) {
	if sc.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.records[sc.TenantID.String()]
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return append([]Record{}, records...), nil
}

// PurgeTenant removes a deleted tenant's records, mirroring the cascade that
// tenant removal applies to every scoped table.
func (s *InMemoryStore) PurgeTenant(_ context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sc.TenantID.String())
	return nil
}
