package domain

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RecurrenceFrequency string

const (
	RecurrenceFrequencyWeekly   RecurrenceFrequency = "weekly"
	RecurrenceFrequencyBiweekly RecurrenceFrequency = "biweekly"
)

func (f RecurrenceFrequency) StepDays() int {
	switch f {
	case RecurrenceFrequencyWeekly:
		return 7
	case RecurrenceFrequencyBiweekly:
		return 14
	}
	return 0
}

type RecurringSeries struct {
	bun.BaseModel `bun:"table:recurring_series"`

	ID              uuid.UUID           `bun:"id,pk,type:uuid"`
	PatientRef      string              `bun:"patient_ref,notnull"`
	SessionTypeRef  string              `bun:"session_type_ref,notnull"`
	DurationMinutes int                 `bun:"duration_minutes,notnull"`
	DayOfWeek       time.Weekday        `bun:"day_of_week,notnull"`
	StartTime       TimeOfDay           `bun:"start_minute,notnull"`
	Frequency       RecurrenceFrequency `bun:"frequency,notnull"`
	StartDate       time.Time           `bun:"start_date,notnull,type:date"`
	EndDate         *time.Time          `bun:"end_date,type:date"`
	Active          bool                `bun:"active,notnull"`
	CreatedAt       time.Time           `bun:"created_at,notnull"`
	UpdatedAt       time.Time           `bun:"updated_at,notnull"`
}

func (s *RecurringSeries) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// Rule returns the expansion template of the series in loc.
func (s RecurringSeries) Rule(loc *time.Location) RecurrenceRule {
	r := RecurrenceRule{
		StartDate: civil.DateOf(s.StartDate),
		DayOfWeek: s.DayOfWeek,
		StartTime: s.StartTime,
		Frequency: s.Frequency,
		Duration:  time.Duration(s.DurationMinutes) * time.Minute,
		Location:  loc,
	}
	if s.EndDate != nil {
		end := civil.DateOf(*s.EndDate)
		r.EndDate = &end
	}
	return r
}

// DateColumn converts a calendar date into the value stored in a date column.
func DateColumn(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// RecurrenceRule describes which dates a series lands on. EndDate is optional;
// the booking horizon always bounds the expansion.
type RecurrenceRule struct {
	StartDate civil.Date
	EndDate   *civil.Date
	DayOfWeek time.Weekday
	StartTime TimeOfDay
	Frequency RecurrenceFrequency
	Duration  time.Duration
	Location  *time.Location
}

func (r RecurrenceRule) Validate() error {
	if r.Frequency.StepDays() == 0 {
		return errors.New("unsupported recurrence frequency")
	}
	if r.Duration <= 0 {
		return errors.New("invalid duration")
	}
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return errors.New("invalid weekday")
	}
	if !r.StartTime.Valid() || r.StartTime >= EndOfDay {
		return errors.New("invalid start time")
	}
	if !r.StartDate.IsValid() {
		return errors.New("invalid start date")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return errors.New("end date is before start date")
	}
	return nil
}

// ExpandOccurrences returns the ordered occurrence starts of rule. The last
// date emitted is the earlier of the rule's end date and today plus
// maxAdvanceDays, today being now's date in the rule's location. The result
// depends only on the arguments.
func ExpandOccurrences(rule RecurrenceRule, now time.Time, maxAdvanceDays int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	loc := rule.Location
	if loc == nil {
		loc = time.UTC
	}

	effectiveEnd := civil.DateOf(now.In(loc)).AddDays(maxAdvanceDays)
	if rule.EndDate != nil && rule.EndDate.Before(effectiveEnd) {
		effectiveEnd = *rule.EndDate
	}

	first := rule.StartDate
	for i := 0; i < 6 && WeekdayOf(first) != rule.DayOfWeek; i++ {
		first = first.AddDays(1)
	}

	step := rule.Frequency.StepDays()
	out := make([]time.Time, 0, 16)
	for d := first; !d.After(effectiveEnd); d = d.AddDays(step) {
		out = append(out, rule.StartTime.On(d, loc))
	}
	return out, nil
}

// OccurrenceIntervals pairs each start with its end.
func OccurrenceIntervals(starts []time.Time, d time.Duration) []TimeInterval {
	out := make([]TimeInterval, 0, len(starts))
	for _, s := range starts {
		out = append(out, IntervalOf(s, d))
	}
	return out
}
