// Package calendar computes the immutable per-run dates that key log files
// and artifacts.
package calendar

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the fixed-width ddmmyyyy form embedded in file names
const DateLayout = "02012006"

// RunContext holds the values fixed at the start of one execution
type RunContext struct {
	ID        uuid.UUID
	RunDate   time.Time
	QuoteDate time.Time
}

// NewRunContext derives the run context from the current time.
// The quote date is the calendar day before the run date.
func NewRunContext(now time.Time) RunContext {
	runDate := truncateToDay(now)
	return RunContext{
		ID:        uuid.New(),
		RunDate:   runDate,
		QuoteDate: runDate.AddDate(0, 0, -1),
	}
}

// MarketClosed reports whether the quote date falls on a weekend
func (rc RunContext) MarketClosed() bool {
	return IsWeekend(rc.QuoteDate)
}

// RunStamp is the run date formatted for log file names
func (rc RunContext) RunStamp() string {
	return Format(rc.RunDate)
}

// QuoteStamp is the quote date formatted for artifact names
func (rc RunContext) QuoteStamp() string {
	return Format(rc.QuoteDate)
}

// Format renders t as ddmmyyyy
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// IsWeekend reports whether t is a Saturday or Sunday
func IsWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
