package scheduling

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"agenda/backend/internal/domain"
)

var (
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidRange    = errors.New("end date is before start date")
)

type Slot struct {
	Time      domain.TimeOfDay `json:"time"`
	Start     time.Time        `json:"start"`
	End       time.Time        `json:"end"`
	Available bool             `json:"available"`
}

func (s Slot) Interval() domain.TimeInterval {
	return domain.TimeInterval{Start: s.Start, End: s.End}
}

type DaySlots struct {
	Date  civil.Date `json:"date"`
	Slots []Slot     `json:"slots"`
}

// SlotGenerator projects the calendar into candidate slots for display. Its
// output is advisory; Admission makes the binding decision.
type SlotGenerator struct {
	policy   Policy
	calendar CalendarReader
}

func NewSlotGenerator(policy Policy, calendar CalendarReader) *SlotGenerator {
	return &SlotGenerator{policy: policy, calendar: calendar}
}

// GenerateDaySlots walks each active window of date's weekday in steps of the
// policy granularity and returns one slot per position where a session of
// duration d still fits. Dates outside the booking window yield no slots.
func (g *SlotGenerator) GenerateDaySlots(ctx context.Context, date civil.Date, d time.Duration, now time.Time) ([]Slot, error) {
	if d <= 0 {
		return nil, ErrInvalidDuration
	}
	first, last := g.policy.BookingDates(now)
	if date.Before(first) || date.After(last) {
		return []Slot{}, nil
	}

	entries, err := g.calendar.FindActiveAvailability(ctx, domain.WeekdayOf(date))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []Slot{}, nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].StartTime < entries[j].StartTime })

	loc := g.policy.Loc()
	day := domain.TimeInterval{Start: date.In(loc), End: date.AddDays(1).In(loc)}
	for _, e := range entries {
		if w := e.Window(date, loc); w.End.After(day.End) {
			day.End = w.End
		}
	}
	appointments, err := g.calendar.FindActiveAppointmentsInRange(ctx, day)
	if err != nil {
		return nil, err
	}
	blocks, err := g.calendar.FindBlocksOverlapping(ctx, day)
	if err != nil {
		return nil, err
	}

	earliest := g.policy.EarliestStart(now)
	step := g.policy.granularity()
	slots := make([]Slot, 0, 32)
	for _, e := range entries {
		if !e.Active {
			continue
		}
		for cur := e.StartTime; cur.Add(d) <= e.EndTime; cur = cur.Add(step) {
			start := cur.On(date, loc)
			iv := domain.IntervalOf(start, d)
			slots = append(slots, Slot{
				Time:      cur,
				Start:     iv.Start,
				End:       iv.End,
				Available: start.After(earliest) && !overlapsAppointment(iv, appointments) && !overlapsBlock(iv, blocks),
			})
		}
	}
	return slots, nil
}

// GenerateRangeSlots concatenates GenerateDaySlots over [start, end], skipping
// days without slots.
func (g *SlotGenerator) GenerateRangeSlots(ctx context.Context, start, end civil.Date, d time.Duration, now time.Time) ([]DaySlots, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	if _, last := g.policy.BookingDates(now); end.After(last) {
		end = last
	}

	out := make([]DaySlots, 0)
	for date := start; !date.After(end); date = date.AddDays(1) {
		slots, err := g.GenerateDaySlots(ctx, date, d, now)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}
		out = append(out, DaySlots{Date: date, Slots: slots})
	}
	return out, nil
}

func overlapsAppointment(iv domain.TimeInterval, appointments []domain.Appointment) bool {
	for _, a := range appointments {
		if a.IsActive() && iv.Overlaps(a.Interval()) {
			return true
		}
	}
	return false
}

func overlapsBlock(iv domain.TimeInterval, blocks []domain.Block) bool {
	for _, b := range blocks {
		if iv.Overlaps(b.Interval()) {
			return true
		}
	}
	return false
}
