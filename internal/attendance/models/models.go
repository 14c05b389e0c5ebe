package models

import (
	"time"

	"github.com/google/uuid"
)

// ShiftPunch is a technician's presence interval: clock-in to clock-out.
// An open punch has no ClockOutAt and accrues clocked time up to "now".
type ShiftPunch struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	TechID     uuid.UUID  `json:"tech_id"`
	ClockInAt  time.Time  `json:"clock_in_at"`
	ClockOutAt *time.Time `json:"clock_out_at,omitempty"`
}

// Open reports whether the punch is still accruing time.
func (p ShiftPunch) Open() bool {
	return p.ClockOutAt == nil
}

// TimeEntry is wrench time: a technician actively working one order.
type TimeEntry struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	TechID    uuid.UUID  `json:"tech_id"`
	OrderID   uuid.UUID  `json:"service_order_id"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// Open reports whether the entry is still running.
func (e TimeEntry) Open() bool {
	return e.StoppedAt == nil
}

// Overlap returns the duration of [start, end) covered by the interval
// [from, to), clamping an open interval (to == nil) at end.
func Overlap(from time.Time, to *time.Time, start, end time.Time) time.Duration {
	stop := end
	if to != nil && to.Before(end) {
		stop = *to
	}
	begin := start
	if from.After(start) {
		begin = from
	}
	if !stop.After(begin) {
		return 0
	}
	return stop.Sub(begin)
}
