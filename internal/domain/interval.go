package domain

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("end must be after start")

// TimeInterval is a half-open range [Start, End).
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (TimeInterval, error) {
	iv := TimeInterval{Start: start, End: end}
	if !iv.Valid() {
		return TimeInterval{}, ErrInvalidInterval
	}
	return iv, nil
}

// IntervalOf returns [start, start+d).
func IntervalOf(start time.Time, d time.Duration) TimeInterval {
	return TimeInterval{Start: start, End: start.Add(d)}
}

func (i TimeInterval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether the two intervals share any instant. Intervals that
// only touch (one ends exactly when the other starts) do not overlap.
func (i TimeInterval) Overlaps(o TimeInterval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies fully inside i, both edges included.
func (i TimeInterval) Contains(o TimeInterval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i TimeInterval) UTC() TimeInterval {
	return TimeInterval{Start: i.Start.UTC(), End: i.End.UTC()}
}
