package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	attmodels "shopcore/internal/attendance/models"
	"shopcore/internal/dashboard/cache"
	"shopcore/internal/dashboard/models"
	ordermodels "shopcore/internal/serviceorder/models"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
)

// Attendance is the slice of the attendance store the aggregator reads.
type Attendance interface {
	ListOpenPunches(ctx context.Context, sc scope.Scope) ([]attmodels.ShiftPunch, error)
	ListPunchesTouching(ctx context.Context, sc scope.Scope, start, end time.Time) ([]attmodels.ShiftPunch, error)
	ListEntriesTouching(ctx context.Context, sc scope.Scope, start, end time.Time) ([]attmodels.TimeEntry, error)
}

// Orders is the slice of the service order store the aggregator reads.
type Orders interface {
	ListClosedBetween(ctx context.Context, sc scope.Scope, start, end time.Time) ([]ordermodels.ServiceOrder, error)
	CountByStatus(ctx context.Context, sc scope.Scope, status ordermodels.Status) (int, error)
	SumBilledHours(ctx context.Context, sc scope.Scope, start time.Time) (float64, error)
}

// Service computes dashboard snapshots, fanning the five reads out
// concurrently and caching the result per (tenant, range).
type Service struct {
	attendance Attendance
	orders     Orders
	cache      cache.Cache
	logger     *slog.Logger
	now        func() time.Time
	cacheTTL   time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCacheTTL overrides the default 30s snapshot lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

func New(attendance Attendance, orders Orders, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		attendance: attendance,
		orders:     orders,
		cache:      c,
		now:        time.Now,
		cacheTTL:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the dashboard for the scoped tenant and range. A cache
// backend failure degrades to a recompute, never to an error.
func (s *Service) Snapshot(ctx context.Context, r models.Range) (*models.Snapshot, error) {
	sc := scope.FromContext(ctx)
	if sc.IsZero() {
		return nil, dErrors.New(dErrors.CodeForbidden, "no tenant scope")
	}

	if s.cache != nil {
		snap, err := s.cache.Get(ctx, sc.TenantID, r)
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "dashboard cache read failed", "error", err)
		}
		if snap != nil {
			return snap, nil
		}
	}

	snap, err := s.compute(ctx, sc, r)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sc.TenantID, r, snap, s.cacheTTL); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "dashboard cache write failed", "error", err)
		}
	}
	return snap, nil
}

func (s *Service) compute(ctx context.Context, sc scope.Scope, r models.Range) (*models.Snapshot, error) {
	now := s.now().UTC()
	start := r.Start(now)

	var (
		punches     []attmodels.ShiftPunch
		entries     []attmodels.TimeEntry
		openPunches []attmodels.ShiftPunch
		closed      []ordermodels.ServiceOrder
		billed      float64
		active      int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		punches, err = s.attendance.ListPunchesTouching(gctx, sc, start, now)
		return err
	})
	g.Go(func() (err error) {
		entries, err = s.attendance.ListEntriesTouching(gctx, sc, start, now)
		return err
	})
	g.Go(func() (err error) {
		openPunches, err = s.attendance.ListOpenPunches(gctx, sc)
		return err
	})
	g.Go(func() (err error) {
		closed, err = s.orders.ListClosedBetween(gctx, sc, start, now)
		return err
	})
	g.Go(func() (err error) {
		billed, err = s.orders.SumBilledHours(gctx, sc, start)
		return err
	})
	g.Go(func() (err error) {
		active, err = s.orders.CountByStatus(gctx, sc, ordermodels.StatusInProgress)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute dashboard")
	}

	var clocked time.Duration
	for _, p := range punches {
		clocked += attmodels.Overlap(p.ClockInAt, p.ClockOutAt, start, now)
	}
	var wrench time.Duration
	for _, e := range entries {
		wrench += attmodels.Overlap(e.StartedAt, e.StoppedAt, start, now)
	}

	snap := &models.Snapshot{
		Range:            r,
		WindowStart:      start,
		GeneratedAt:      now,
		ClockedHours:     clocked.Hours(),
		WrenchHours:      wrench.Hours(),
		BilledHours:      billed,
		Throughput:       throughput(closed),
		ClockedIn:        presence(openPunches),
		ActiveOrderCount: active,
	}
	// Both ratios collapse to 0 instead of dividing by zero.
	if snap.ClockedHours > 0 {
		snap.Utilization = snap.WrenchHours / snap.ClockedHours
	}
	if snap.WrenchHours > 0 {
		snap.Efficiency = snap.BilledHours / snap.WrenchHours
	}
	return snap, nil
}

func throughput(closed []ordermodels.ServiceOrder) models.Throughput {
	t := models.Throughput{ClosedCount: len(closed)}
	var total time.Duration
	counted := 0
	for _, o := range closed {
		if o.IsComeback {
			t.ComebackCount++
		}
		if o.InProgressAt != nil && o.ClosedAt != nil {
			total += o.ClosedAt.Sub(*o.InProgressAt)
			counted++
		}
	}
	if counted > 0 {
		t.AvgHoursToClose = (total / time.Duration(counted)).Hours()
	}
	return t
}

func presence(open []attmodels.ShiftPunch) []models.TechPresence {
	out := make([]models.TechPresence, 0, len(open))
	for _, p := range open {
		out = append(out, models.TechPresence{TechID: p.TechID, ClockInAt: p.ClockInAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockInAt.Before(out[j].ClockInAt) })
	return out
}
