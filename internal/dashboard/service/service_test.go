package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	attstore "shopcore/internal/attendance/store"
	"shopcore/internal/dashboard/cache"
	"shopcore/internal/dashboard/models"
	ordermodels "shopcore/internal/serviceorder/models"
	orderstore "shopcore/internal/serviceorder/store"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
)

type DashboardSuite struct {
	suite.Suite

	svc        *Service
	attendance *attstore.InMemoryStore
	orders     *orderstore.InMemoryStore
	tenantID   uuid.UUID
	sc         scope.Scope
	ctx        context.Context
	now        time.Time
}

func (s *DashboardSuite) SetupTest() {
	s.attendance = attstore.NewInMemoryStore()
	s.orders = orderstore.NewInMemoryStore()
	s.tenantID = uuid.New()
	s.sc = scope.ForTenant(s.tenantID)
	s.ctx = scope.WithScope(context.Background(), s.sc)
	// A Wednesday, 12:00 UTC.
	s.now = time.Date(2026, 8, 12, 12, 0, 0, 0, time.UTC)
	s.svc = New(s.attendance, s.orders, nil, WithClock(func() time.Time { return s.now }))
}

func TestDashboardSuite(t *testing.T) {
	suite.Run(t, new(DashboardSuite))
}

func (s *DashboardSuite) TestZeroActivityYieldsZeroRatios() {
	snap, err := s.svc.Snapshot(s.ctx, models.RangeToday)
	s.Require().NoError(err)
	s.Zero(snap.ClockedHours)
	s.Zero(snap.WrenchHours)
	s.Zero(snap.Utilization, "no clocked time means utilization 0, not NaN")
	s.Zero(snap.Efficiency, "no wrench time means efficiency 0, not NaN")
	s.Empty(snap.ClockedIn)
}

func (s *DashboardSuite) TestHoursAndRatios() {
	techID := uuid.New()
	dayStart := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)

	// 8h punch, closed.
	in := dayStart.Add(2 * time.Hour)
	out := in.Add(8 * time.Hour)
	_, err := s.attendance.OpenPunch(s.ctx, s.sc, techID, in)
	s.Require().NoError(err)
	_, err = s.attendance.ClosePunch(s.ctx, s.sc, techID, out)
	s.Require().NoError(err)

	// 4h wrench time inside the punch.
	order, err := ordermodels.NewServiceOrder("Acme", "truck-7", dayStart)
	s.Require().NoError(err)
	s.Require().NoError(s.orders.Create(s.ctx, s.sc, order))
	_, err = s.attendance.StartEntry(s.ctx, s.sc, techID, order.ID, in)
	s.Require().NoError(err)
	_, err = s.attendance.StopEntry(s.ctx, s.sc, techID, in.Add(4*time.Hour))
	s.Require().NoError(err)

	// 3 billed hours.
	line := &ordermodels.LaborLine{ID: uuid.New(), OrderID: order.ID, TechID: techID, Hours: 4, BilledHours: 3, CreatedAt: in}
	s.Require().NoError(s.orders.AddLaborLine(s.ctx, s.sc, line))

	snap, err := s.svc.Snapshot(s.ctx, models.RangeToday)
	s.Require().NoError(err)
	s.InDelta(8.0, snap.ClockedHours, 1e-9)
	s.InDelta(4.0, snap.WrenchHours, 1e-9)
	s.InDelta(3.0, snap.BilledHours, 1e-9)
	s.InDelta(0.5, snap.Utilization, 1e-9)
	s.InDelta(0.75, snap.Efficiency, 1e-9)
}

func (s *DashboardSuite) TestOpenPunchAccruesToNow() {
	techID := uuid.New()
	_, err := s.attendance.OpenPunch(s.ctx, s.sc, techID, s.now.Add(-3*time.Hour))
	s.Require().NoError(err)

	snap, err := s.svc.Snapshot(s.ctx, models.RangeToday)
	s.Require().NoError(err)
	s.InDelta(3.0, snap.ClockedHours, 1e-9)
	s.Require().Len(snap.ClockedIn, 1)
	s.Equal(techID, snap.ClockedIn[0].TechID)
}

func (s *DashboardSuite) TestThroughputCountsWindowedCloses() {
	closeOrder := func(comeback bool, inProgressAt, closedAt time.Time) {
		order, err := ordermodels.NewServiceOrder("Acme", "unit", inProgressAt)
		s.Require().NoError(err)
		order.IsComeback = comeback
		s.Require().NoError(s.orders.Create(s.ctx, s.sc, order))
		from := ordermodels.StatusDraft
		for from != ordermodels.StatusClosed {
			to, _ := from.Next()
			ts := inProgressAt
			if to == ordermodels.StatusClosed {
				ts = closedAt
			}
			_, err := s.orders.UpdateStatus(s.ctx, s.sc, order.ID, from, to, ts)
			s.Require().NoError(err)
			from = to
		}
	}

	dayStart := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
	closeOrder(false, dayStart.Add(1*time.Hour), dayStart.Add(5*time.Hour))
	closeOrder(true, dayStart.Add(2*time.Hour), dayStart.Add(4*time.Hour))
	// Closed yesterday: outside the today window.
	closeOrder(false, dayStart.Add(-10*time.Hour), dayStart.Add(-5*time.Hour))

	snap, err := s.svc.Snapshot(s.ctx, models.RangeToday)
	s.Require().NoError(err)
	s.Equal(2, snap.Throughput.ClosedCount)
	s.Equal(1, snap.Throughput.ComebackCount)
	s.InDelta(3.0, snap.Throughput.AvgHoursToClose, 1e-9)
}

func (s *DashboardSuite) TestSnapshotIsCached() {
	c := cache.NewMemory().WithClock(func() time.Time { return s.now })
	s.svc = New(s.attendance, s.orders, c, WithClock(func() time.Time { return s.now }))

	first, err := s.svc.Snapshot(s.ctx, models.RangeToday)
	s.Require().NoError(err)

	// New activity inside the TTL is not reflected.
	_, err = s.attendance.OpenPunch(s.ctx, s.sc, uuid.New(), s.now.Add(-time.Hour))
	s.Require().NoError(err)

	second, err := s.svc.Snapshot(s.ctx, models.RangeToday)
	s.Require().NoError(err)
	s.Equal(first.ClockedHours, second.ClockedHours)
	s.Empty(second.ClockedIn)

	// Past the TTL the snapshot is recomputed.
	s.now = s.now.Add(31 * time.Second)
	third, err := s.svc.Snapshot(s.ctx, models.RangeToday)
	s.Require().NoError(err)
	s.Len(third.ClockedIn, 1)
}

func (s *DashboardSuite) TestSnapshotWithoutScopeIsForbidden() {
	_, err := s.svc.Snapshot(context.Background(), models.RangeToday)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestRangeStart(t *testing.T) {
	// Wednesday.
	now := time.Date(2026, 8, 12, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC), models.RangeToday.Start(now))
	assert.Equal(t, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), models.RangeWeek.Start(now), "week opens Monday")

	// Sunday still belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 8, 16, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), models.RangeWeek.Start(sunday))

	// Monday opens a fresh week.
	monday := time.Date(2026, 8, 17, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), models.RangeWeek.Start(monday))
}

func TestParseRange(t *testing.T) {
	r, err := models.ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, models.RangeToday, r)

	_, err = models.ParseRange("month")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
