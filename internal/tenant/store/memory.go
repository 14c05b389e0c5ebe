package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/models"
)

// InMemoryStore keeps tenants in a map. It intentionally favors clarity over
// performance and is the default wiring when no database is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*models.Tenant
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tenants: make(map[uuid.UUID]*models.Tenant)}
}

// CreateIfSlugAvailable atomically creates the tenant unless the slug is taken.
func (s *InMemoryStore) CreateIfSlugAvailable(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tenants {
		if strings.EqualFold(existing.Slug, tenant.Slug) {
			return sentinel.ErrAlreadyUsed
		}
	}
	clone := *tenant
	s.tenants[tenant.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *InMemoryStore) FindBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if strings.EqualFold(t.Slug, slug) {
			clone := *t
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenant.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *tenant
	s.tenants[tenant.ID] = &clone
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.tenants, tenantID)
	return nil
}
