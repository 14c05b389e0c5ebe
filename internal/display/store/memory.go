package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"shopcore/internal/captoken"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// InMemoryStore keeps one display token slot per tenant. The tenant ID is the
// capability-token subject.
type InMemoryStore struct {
	mu    sync.RWMutex
	slots map[uuid.UUID]captoken.Slot
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{slots: make(map[uuid.UUID]captoken.Slot)}
}

// ReplaceSlot implements captoken.SlotStore.
func (s *InMemoryStore) ReplaceSlot(_ context.Context, subject uuid.UUID, slot captoken.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[subject] = slot
	return nil
}

// GetSlot implements captoken.SlotStore. A tenant that never rotated a
// display token gets the zero slot, which never verifies.
func (s *InMemoryStore) GetSlot(_ context.Context, subject uuid.UUID) (captoken.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[subject], nil
}

// FindTenantByTokenDigest maps a digest back to the tenant that owns it.
// Unscoped on purpose: the token is the display's only credential.
func (s *InMemoryStore) FindTenantByTokenDigest(_ context.Context, digest string) (uuid.UUID, error) {
	if digest == "" {
		return uuid.Nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for tenantID, slot := range s.slots {
		if slot.Digest == digest {
			return tenantID, nil
		}
	}
	return uuid.Nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) PurgeTenant(_ context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, sc.TenantID)
	return nil
}
