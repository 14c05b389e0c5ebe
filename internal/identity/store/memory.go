package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"shopcore/internal/identity/models"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// InMemoryStore keeps users in a map. Email lookup is global because login
// happens before any tenant scope exists; the user row itself carries the
// tenant the session will be scoped to.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[uuid.UUID]*models.User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrAlreadyUsed
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemoryStore) PurgeTenant(_ context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if sc.Covers(u.TenantID) {
			delete(s.users, id)
		}
	}
	return nil
}
