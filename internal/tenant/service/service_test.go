package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/audit"
	"shopcore/internal/tenant/scope"
	"shopcore/internal/tenant/store"
	dErrors "shopcore/pkg/domain-errors"
)

type recordingAuditor struct {
	records []audit.Record
}

func (r *recordingAuditor) Emit(_ context.Context, record audit.Record) error {
	r.records = append(r.records, record)
	return nil
}

type recordingPurger struct {
	purged []scope.Scope
}

func (p *recordingPurger) PurgeTenant(_ context.Context, sc scope.Scope) error {
	p.purged = append(p.purged, sc)
	return nil
}

func TestCreateTenant(t *testing.T) {
	auditor := &recordingAuditor{}
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	svc := New(store.NewInMemoryStore(), auditor,
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	tenant, err := svc.Create(ctx, "Northside Repair", "northside-repair")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.Equal(t, now, tenant.CreatedAt)

	require.Len(t, auditor.records, 1)
	assert.Equal(t, audit.ActionTenantCreated, auditor.records[0].Action)
	assert.Equal(t, tenant.ID, auditor.records[0].TenantID)
}

func TestCreateTenantSlugConflict(t *testing.T) {
	svc := New(store.NewInMemoryStore(), &recordingAuditor{})
	ctx := context.Background()

	_, err := svc.Create(ctx, "First", "shared-slug")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "Second", "shared-slug")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreateTenantInvalidSlug(t *testing.T) {
	svc := New(store.NewInMemoryStore(), &recordingAuditor{})
	_, err := svc.Create(context.Background(), "Bad Slug Shop", "Bad Slug!")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRenameTenant(t *testing.T) {
	auditor := &recordingAuditor{}
	svc := New(store.NewInMemoryStore(), auditor)
	ctx := context.Background()

	tenant, err := svc.Create(ctx, "Old Name", "old-name")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, tenant.ID, "New Name")
	require.NoError(t, err)
	assert.Equal(t, "New Name", renamed.Name)
	assert.Equal(t, "old-name", renamed.Slug, "slug is immutable")

	require.Len(t, auditor.records, 2)
	assert.Equal(t, audit.ActionTenantRenamed, auditor.records[1].Action)
}

func TestDeleteCascadesThroughPurgers(t *testing.T) {
	auditor := &recordingAuditor{}
	purgerA := &recordingPurger{}
	purgerB := &recordingPurger{}
	svc := New(store.NewInMemoryStore(), auditor, WithPurgers(purgerA, purgerB))
	ctx := context.Background()

	tenant, err := svc.Create(ctx, "Doomed Shop", "doomed-shop")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, tenant.ID))

	require.Len(t, purgerA.purged, 1)
	require.Len(t, purgerB.purged, 1)
	assert.Equal(t, tenant.ID, purgerA.purged[0].TenantID)

	_, err = svc.Get(ctx, tenant.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDeleteUnknownTenant(t *testing.T) {
	svc := New(store.NewInMemoryStore(), &recordingAuditor{})
	err := svc.Delete(context.Background(), uuid.New())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
