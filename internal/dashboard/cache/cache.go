package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/dashboard/models"
)

// Cache holds computed snapshots per (tenant, range). A miss is (nil, nil);
// errors are reserved for backend failures, which callers treat as misses.
type Cache interface {
	Get(ctx context.Context, tenantID uuid.UUID, r models.Range) (*models.Snapshot, error)
	Set(ctx context.Context, tenantID uuid.UUID, r models.Range, snap *models.Snapshot, ttl time.Duration) error
}

// Key builds the cache key shared by both backends.
func Key(tenantID uuid.UUID, r models.Range) string {
	return fmt.Sprintf("dashboard:%s:%s", tenantID, r)
}

type entry struct {
	snap      models.Snapshot
	expiresAt time.Time
}

// Memory is the in-process TTL cache used when no Redis is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

// WithClock overrides the expiry clock, for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, tenantID uuid.UUID, r models.Range) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[Key(tenantID, r)]
	if !ok || m.now().After(e.expiresAt) {
		return nil, nil
	}
	snap := e.snap
	return &snap, nil
}

func (m *Memory) Set(_ context.Context, tenantID uuid.UUID, r models.Range, snap *models.Snapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(tenantID, r)] = entry{snap: *snap, expiresAt: m.now().Add(ttl)}
	return nil
}
