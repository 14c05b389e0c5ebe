package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "shopcore/pkg/domain-errors"
)

// Range selects the aggregation window.
type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
)

// ParseRange validates a caller-supplied range name.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case RangeToday, RangeWeek:
		return Range(s), nil
	case "":
		return RangeToday, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown range %q", s))
}

// Start returns the window's inclusive lower bound: midnight UTC for today,
// Monday midnight UTC for week.
func (r Range) Start(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if r == RangeToday {
		return midnight
	}
	// time.Weekday numbers Sunday as 0; shift so Monday opens the week.
	offset := (int(now.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}

// TechPresence is one row of the who-is-clocked-in panel.
type TechPresence struct {
	TechID    uuid.UUID `json:"tech_id"`
	ClockInAt time.Time `json:"clock_in_at"`
}

// Throughput summarizes closed work in the window.
type Throughput struct {
	ClosedCount     int     `json:"closed_count"`
	AvgHoursToClose float64 `json:"avg_hours_to_close"` // in-progress to closed
	ComebackCount   int     `json:"comeback_count"`
}

// Snapshot is one computed dashboard, cacheable per (tenant, range).
type Snapshot struct {
	Range       Range     `json:"range"`
	WindowStart time.Time `json:"window_start"`
	GeneratedAt time.Time `json:"generated_at"`

	ClockedHours float64 `json:"clocked_hours"`
	WrenchHours  float64 `json:"wrench_hours"`
	BilledHours  float64 `json:"billed_hours"`
	Utilization  float64 `json:"utilization"` // wrench / clocked, 0 when clocked is 0
	Efficiency   float64 `json:"efficiency"`  // billed / wrench, 0 when wrench is 0

	Throughput       Throughput     `json:"throughput"`
	ClockedIn        []TechPresence `json:"clocked_in"`
	ActiveOrderCount int            `json:"active_order_count"`
}
