// Package scheduling decides which time ranges of the provider's calendar can
// be offered and booked. It reads the calendar through CalendarReader and
// never writes; callers own the transaction that makes a decision and its
// resulting write atomic.
package scheduling

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// Policy carries the booking rules. It is built once at startup and passed by
// value to every constructor in this package.
type Policy struct {
	SlotGranularity    time.Duration
	MinAdvance         time.Duration
	MaxAdvanceDays     int
	CancellationWindow time.Duration
	Location           *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		SlotGranularity:    15 * time.Minute,
		MinAdvance:         12 * time.Hour,
		MaxAdvanceDays:     90,
		CancellationWindow: 24 * time.Hour,
		Location:           time.UTC,
	}
}

func (p Policy) Validate() error {
	if p.SlotGranularity < time.Minute {
		return errors.New("slot granularity must be at least one minute")
	}
	if p.MinAdvance < 0 {
		return errors.New("min advance must not be negative")
	}
	if p.MaxAdvanceDays < 0 {
		return errors.New("max advance days must not be negative")
	}
	if p.CancellationWindow < 0 {
		return errors.New("cancellation window must not be negative")
	}
	return nil
}

func (p Policy) Loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// EarliestStart is the first instant a booking may start at.
func (p Policy) EarliestStart(now time.Time) time.Time {
	return now.Add(p.MinAdvance)
}

// LatestStart is the last instant a booking may start at.
func (p Policy) LatestStart(now time.Time) time.Time {
	return now.In(p.Loc()).AddDate(0, 0, p.MaxAdvanceDays)
}

// BookingDates returns the first and last calendar dates that may hold slots.
func (p Policy) BookingDates(now time.Time) (first, last civil.Date) {
	return p.DateOf(p.EarliestStart(now)), p.DateOf(p.LatestStart(now))
}

// DateOf returns the calendar date of t in the policy location.
func (p Policy) DateOf(t time.Time) civil.Date {
	return civil.DateOf(t.In(p.Loc()))
}

func (p Policy) granularity() time.Duration {
	if p.SlotGranularity < time.Minute {
		return 15 * time.Minute
	}
	return p.SlotGranularity
}
