package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/sentinel"
	"shopcore/internal/serviceorder/models"
	"shopcore/internal/tenant/scope"
)

func newOrder(t *testing.T, customer string) *models.ServiceOrder {
	t.Helper()
	order, err := models.NewServiceOrder(customer, "unit-1", time.Now().UTC())
	require.NoError(t, err)
	return order
}

func TestCreateStampsScopeTenant(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	tenantID := uuid.New()
	otherID := uuid.New()

	order := newOrder(t, "Acme Trucking")
	order.TenantID = otherID // payload tenant must be ignored

	require.NoError(t, s.Create(ctx, scope.ForTenant(tenantID), order))
	assert.Equal(t, tenantID, order.TenantID)

	got, err := s.FindByID(ctx, scope.ForTenant(tenantID), order.ID)
	require.NoError(t, err)
	assert.Equal(t, tenantID, got.TenantID)
}

func TestCrossTenantReadsAreNotFound(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	ownerScope := scope.ForTenant(uuid.New())
	strangerScope := scope.ForTenant(uuid.New())

	order := newOrder(t, "Acme Trucking")
	require.NoError(t, s.Create(ctx, ownerScope, order))

	_, err := s.FindByID(ctx, strangerScope, order.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	orders, err := s.List(ctx, strangerScope)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestZeroScopeReadsEmpty(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	order := newOrder(t, "Acme Trucking")
	require.NoError(t, s.Create(ctx, scope.ForTenant(uuid.New()), order))

	orders, err := s.List(ctx, scope.Scope{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = s.FindByID(ctx, scope.Scope{}, order.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	sc := scope.ForTenant(uuid.New())
	now := time.Now().UTC()

	order := newOrder(t, "Acme Trucking")
	require.NoError(t, s.Create(ctx, sc, order))

	updated, err := s.UpdateStatus(ctx, sc, order.ID, models.StatusDraft, models.StatusAwaitingApproval, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingApproval, updated.Status)

	// A second writer that still believes the order is in DRAFT loses.
	_, err = s.UpdateStatus(ctx, sc, order.ID, models.StatusDraft, models.StatusAwaitingApproval, now)
	assert.ErrorIs(t, err, sentinel.ErrStaleStatus)
}

func TestUpdateStatusStampsTimestampsOnTheirEdges(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	sc := scope.ForTenant(uuid.New())

	order := newOrder(t, "Acme Trucking")
	require.NoError(t, s.Create(ctx, sc, order))

	steps := []struct {
		from, to models.Status
	}{
		{models.StatusDraft, models.StatusAwaitingApproval},
		{models.StatusAwaitingApproval, models.StatusApproved},
		{models.StatusApproved, models.StatusInProgress},
		{models.StatusInProgress, models.StatusReadyToInvoice},
		{models.StatusReadyToInvoice, models.StatusInvoiced},
		{models.StatusInvoiced, models.StatusClosed},
	}

	var current *models.ServiceOrder
	for i, step := range steps {
		now := time.Date(2026, 8, 1, 10, i, 0, 0, time.UTC)
		var err error
		current, err = s.UpdateStatus(ctx, sc, order.ID, step.from, step.to, now)
		require.NoError(t, err, "%s -> %s", step.from, step.to)
	}

	require.NotNil(t, current.InProgressAt)
	require.NotNil(t, current.ClosedAt)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 2, 0, 0, time.UTC), *current.InProgressAt)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC), *current.ClosedAt)
	assert.True(t, current.InProgressAt.Before(*current.ClosedAt))
}

func TestUpdateStatusCrossTenantIsNotFound(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	sc := scope.ForTenant(uuid.New())

	order := newOrder(t, "Acme Trucking")
	require.NoError(t, s.Create(ctx, sc, order))

	_, err := s.UpdateStatus(ctx, scope.ForTenant(uuid.New()), order.ID,
		models.StatusDraft, models.StatusAwaitingApproval, time.Now().UTC())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListClosedBetweenHalfOpenInterval(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	sc := scope.ForTenant(uuid.New())

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

	closeAt := func(ts time.Time) uuid.UUID {
		order := newOrder(t, "Acme Trucking")
		require.NoError(t, s.Create(ctx, sc, order))
		chain := []models.Status{
			models.StatusAwaitingApproval, models.StatusApproved, models.StatusInProgress,
			models.StatusReadyToInvoice, models.StatusInvoiced, models.StatusClosed,
		}
		from := models.StatusDraft
		for _, to := range chain {
			_, err := s.UpdateStatus(ctx, sc, order.ID, from, to, ts)
			require.NoError(t, err)
			from = to
		}
		return order.ID
	}

	inside := closeAt(start.Add(6 * time.Hour))
	closeAt(start.Add(-time.Second)) // before window
	closeAt(end)                     // exactly at end, excluded

	closed, err := s.ListClosedBetween(ctx, sc, start, end)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, inside, closed[0].ID)
}

func TestAddLaborLineRequiresVisibleOrder(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	sc := scope.ForTenant(uuid.New())

	order := newOrder(t, "Acme Trucking")
	require.NoError(t, s.Create(ctx, sc, order))

	line := &models.LaborLine{ID: uuid.New(), OrderID: order.ID, Hours: 2, BilledHours: 1.5, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.AddLaborLine(ctx, sc, line))
	assert.Equal(t, sc.TenantID, line.TenantID)

	foreign := &models.LaborLine{ID: uuid.New(), OrderID: order.ID, Hours: 1, CreatedAt: time.Now().UTC()}
	err := s.AddLaborLine(ctx, scope.ForTenant(uuid.New()), foreign)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	total, err := s.SumBilledHours(ctx, sc, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1.5, total)
}

func TestPurgeTenantRemovesOnlyThatTenant(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	scA := scope.ForTenant(uuid.New())
	scB := scope.ForTenant(uuid.New())

	orderA := newOrder(t, "Tenant A")
	orderB := newOrder(t, "Tenant B")
	require.NoError(t, s.Create(ctx, scA, orderA))
	require.NoError(t, s.Create(ctx, scB, orderB))

	require.NoError(t, s.PurgeTenant(ctx, scA))

	_, err := s.FindByID(ctx, scA, orderA.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	got, err := s.FindByID(ctx, scB, orderB.ID)
	require.NoError(t, err)
	assert.Equal(t, orderB.ID, got.ID)
}
