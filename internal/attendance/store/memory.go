package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/attendance/models"
	"shopcore/internal/sentinel"
	"shopcore/internal/tenant/scope"
)

// InMemoryStore keeps punches and time entries in maps. The one-open-per-tech
// constraints are enforced under the store mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	punches map[uuid.UUID]*models.ShiftPunch
	entries map[uuid.UUID]*models.TimeEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		punches: make(map[uuid.UUID]*models.ShiftPunch),
		entries: make(map[uuid.UUID]*models.TimeEntry),
	}
}

// OpenPunch creates a punch unless the tech already has one open.
func (s *InMemoryStore) OpenPunch(_ context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.punches {
		if sc.Covers(p.TenantID) && p.TechID == techID && p.Open() {
			return nil, sentinel.ErrAlreadyUsed
		}
	}
	punch := &models.ShiftPunch{ID: uuid.New(), TenantID: sc.TenantID, TechID: techID, ClockInAt: at}
	s.punches[punch.ID] = punch
	clone := *punch
	return &clone, nil
}

// ClosePunch stamps clock-out on the tech's open punch.
func (s *InMemoryStore) ClosePunch(_ context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.punches {
		if sc.Covers(p.TenantID) && p.TechID == techID && p.Open() {
			ts := at
			p.ClockOutAt = &ts
			clone := *p
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListOpenPunches returns every punch still accruing time, for the
// who-is-clocked-in panel.
func (s *InMemoryStore) ListOpenPunches(_ context.Context, sc scope.Scope) ([]models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ShiftPunch
	for _, p := range s.punches {
		if sc.Covers(p.TenantID) && p.Open() {
			out = append(out, *p)
		}
	}
	return out, nil
}

// ListPunchesTouching returns punches whose interval overlaps [start, end).
func (s *InMemoryStore) ListPunchesTouching(_ context.Context, sc scope.Scope, start, end time.Time) ([]models.ShiftPunch, error) {
	if sc.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ShiftPunch
	for _, p := range s.punches {
		if !sc.Covers(p.TenantID) || !p.ClockInAt.Before(end) {
			continue
		}
		if p.ClockOutAt != nil && !p.ClockOutAt.After(start) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// StartEntry creates a running time entry unless the tech already has one.
func (s *InMemoryStore) StartEntry(_ context.Context, sc scope.Scope, techID, orderID uuid.UUID, at time.Time) (*models.TimeEntry, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if sc.Covers(e.TenantID) && e.TechID == techID && e.Open() {
			return nil, sentinel.ErrAlreadyUsed
		}
	}
	entry := &models.TimeEntry{ID: uuid.New(), TenantID: sc.TenantID, TechID: techID, OrderID: orderID, StartedAt: at}
	s.entries[entry.ID] = entry
	clone := *entry
	return &clone, nil
}

// StopEntry stamps the tech's running entry.
func (s *InMemoryStore) StopEntry(_ context.Context, sc scope.Scope, techID uuid.UUID, at time.Time) (*models.TimeEntry, error) {
	if sc.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if sc.Covers(e.TenantID) && e.TechID == techID && e.Open() {
			ts := at
			e.StoppedAt = &ts
			clone := *e
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListEntriesTouching returns time entries overlapping [start, end).
func (s *InMemoryStore) ListEntriesTouching(_ context.Context, sc scope.Scope, start, end time.Time) ([]models.TimeEntry, error) {
	if sc.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TimeEntry
	for _, e := range s.entries {
		if !sc.Covers(e.TenantID) || !e.StartedAt.Before(end) {
			continue
		}
		if e.StoppedAt != nil && !e.StoppedAt.After(start) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *InMemoryStore) PurgeTenant(_ context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.punches {
		if sc.Covers(p.TenantID) {
			delete(s.punches, id)
		}
	}
	for id, e := range s.entries {
		if sc.Covers(e.TenantID) {
			delete(s.entries, id)
		}
	}
	return nil
}
