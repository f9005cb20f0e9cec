package sla

import "time"

// Status is the deadline state of an approval stage
type Status string

const (
	StatusOnTrack  Status = "ON_TRACK"
	StatusDueSoon  Status = "DUE_SOON"
	StatusBreached Status = "BREACHED"
)

// DefaultDueSoonRatio marks a stage as due soon once less than a quarter of its window is left
const DefaultDueSoonRatio = 0.25

// Clock computes stage deadlines. It holds no state besides the due-soon ratio.
type Clock struct {
	dueSoonRatio float64
}

// NewClock creates a clock; a ratio outside (0,1) falls back to DefaultDueSoonRatio
func NewClock(dueSoonRatio float64) *Clock {
	if dueSoonRatio <= 0 || dueSoonRatio >= 1 {
		dueSoonRatio = DefaultDueSoonRatio
	}
	return &Clock{dueSoonRatio: dueSoonRatio}
}

// DueDate returns when a stage entered at entered must be acted on
func (c *Clock) DueDate(entered time.Time, windowHours int) time.Time {
	return entered.Add(time.Duration(windowHours) * time.Hour)
}

// Status classifies now against due for a stage with the given window
func (c *Clock) Status(now, due time.Time, windowHours int) Status {
	if now.After(due) {
		return StatusBreached
	}
	window := time.Duration(windowHours) * time.Hour
	remaining := due.Sub(now)
	if float64(remaining) < c.dueSoonRatio*float64(window) {
		return StatusDueSoon
	}
	return StatusOnTrack
}

// View is the SLA picture of a stage at a point in time
type View struct {
	DueDate   time.Time     `json:"due_date"`
	Status    Status        `json:"status"`
	Remaining time.Duration `json:"remaining_ns"`
}

// Evaluate returns the full SLA view of a stage
func (c *Clock) Evaluate(now, entered time.Time, windowHours int) View {
	due := c.DueDate(entered, windowHours)
	return View{
		DueDate:   due,
		Status:    c.Status(now, due, windowHours),
		Remaining: due.Sub(now),
	}
}
