package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopcore/internal/sentinel"
	"shopcore/internal/serviceorder/models"
	"shopcore/internal/tenant/scope"
)

// InMemoryStore keeps service orders and labor lines in maps. The status
// compare-and-set runs under the store mutex, which gives the same guarantee
// the Postgres store gets from its conditional UPDATE.
type InMemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*models.ServiceOrder
	labor  map[uuid.UUID]*models.LaborLine
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders: make(map[uuid.UUID]*models.ServiceOrder),
		labor:  make(map[uuid.UUID]*models.LaborLine),
	}
}

// Create stamps the acting tenant onto the order. Whatever tenant value the
// caller put on the struct is overwritten, never trusted.
func (s *InMemoryStore) Create(_ context.Context, sc scope.Scope, order *models.ServiceOrder) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *order
	clone.TenantID = sc.TenantID
	s.orders[order.ID] = &clone
	order.TenantID = sc.TenantID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sc scope.Scope, orderID uuid.UUID) (*models.ServiceOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	if !ok || !sc.Covers(order.TenantID) {
		return nil, sentinel.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *InMemoryStore) List(_ context.Context, sc scope.Scope) ([]models.ServiceOrder, error) {
	if sc.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ServiceOrder
	for _, order := range s.orders {
		if sc.Covers(order.TenantID) {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

// UpdateStatus performs the conditional transition write. The update only
// applies while the stored status still equals from; a concurrent writer that
// got there first surfaces as ErrStaleStatus. Timestamps are stamped on the
// edges that define them: in_progress_at entering IN_PROGRESS, closed_at
// entering CLOSED. The linear chain guarantees each edge is taken at most
// once per order.
func (s *InMemoryStore) UpdateStatus(_ context.Context, sc scope.Scope, orderID uuid.UUID, from, to models.Status, now time.Time) (*models.ServiceOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok || !sc.Covers(order.TenantID) {
		return nil, sentinel.ErrNotFound
	}
	if order.Status != from {
		return nil, sentinel.ErrStaleStatus
	}

	order.Status = to
	switch to {
	case models.StatusInProgress:
		ts := now
		order.InProgressAt = &ts
	case models.StatusClosed:
		ts := now
		order.ClosedAt = &ts
	}
	clone := *order
	return &clone, nil
}

// ListClosedBetween returns orders whose closed_at falls in [start, end).
func (s *InMemoryStore) ListClosedBetween(_ context.Context, sc scope.Scope, start, end time.Time) ([]models.ServiceOrder, error) {
	if sc.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ServiceOrder
	for _, order := range s.orders {
		if !sc.Covers(order.TenantID) || order.ClosedAt == nil {
			continue
		}
		if order.ClosedAt.Before(start) || !order.ClosedAt.Before(end) {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, sc scope.Scope, status models.Status) (int, error) {
	if sc.IsZero() {
		return 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, order := range s.orders {
		if sc.Covers(order.TenantID) && order.Status == status {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) AddLaborLine(_ context.Context, sc scope.Scope, line *models.LaborLine) error {
	if sc.IsZero() {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.orders[line.OrderID]; !ok || !sc.Covers(order.TenantID) {
		return sentinel.ErrNotFound
	}
	clone := *line
	clone.TenantID = sc.TenantID
	s.labor[line.ID] = &clone
	line.TenantID = sc.TenantID
	return nil
}

// SumBilledHours totals billed labor hours recorded since start.
func (s *InMemoryStore) SumBilledHours(_ context.Context, sc scope.Scope, start time.Time) (float64, error) {
	if sc.IsZero() {
		return 0, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, line := range s.labor {
		if sc.Covers(line.TenantID) && !line.CreatedAt.Before(start) {
			total += line.BilledHours
		}
	}
	return total, nil
}

// PurgeTenant removes everything the tenant owns, the cascade half of tenant
// deletion for the in-memory wiring.
func (s *InMemoryStore) PurgeTenant(_ context.Context, sc scope.Scope) error {
	if sc.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, order := range s.orders {
		if sc.Covers(order.TenantID) {
			delete(s.orders, id)
		}
	}
	for id, line := range s.labor {
		if sc.Covers(line.TenantID) {
			delete(s.labor, id)
		}
	}
	return nil
}
