package domain

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WeeklyAvailability is one open-hours window on a day of the week. Several
// entries may exist for the same day; they are evaluated independently.
type WeeklyAvailability struct {
	bun.BaseModel `bun:"table:weekly_availability"`

	ID        uuid.UUID    `bun:"id,pk,type:uuid"`
	DayOfWeek time.Weekday `bun:"day_of_week,notnull"`
	StartTime TimeOfDay    `bun:"start_minute,notnull"`
	EndTime   TimeOfDay    `bun:"end_minute,notnull"`
	Active    bool         `bun:"active,notnull"`
	CreatedAt time.Time    `bun:"created_at,notnull"`
	UpdatedAt time.Time    `bun:"updated_at,notnull"`
}

func (a *WeeklyAvailability) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (a WeeklyAvailability) Valid() bool {
	return a.DayOfWeek >= time.Sunday && a.DayOfWeek <= time.Saturday &&
		a.StartTime.Valid() && a.EndTime.Valid() && a.StartTime < a.EndTime
}

// Window anchors the entry to a concrete date.
func (a WeeklyAvailability) Window(date civil.Date, loc *time.Location) TimeInterval {
	return TimeInterval{Start: a.StartTime.On(date, loc), End: a.EndTime.On(date, loc)}
}

// Admits reports whether a session of duration d starting at wall-clock
// start fits entirely inside the entry.
func (a WeeklyAvailability) Admits(start TimeOfDay, d time.Duration) bool {
	return start >= a.StartTime && start.Add(d) <= a.EndTime
}

// WeekdayOf returns the day of the week of a calendar date.
func WeekdayOf(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}
