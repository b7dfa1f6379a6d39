package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
)

// Admission is the authoritative booking gate. Build one per transaction so
// that every read goes through the transaction's snapshot.
type Admission struct {
	policy   Policy
	calendar CalendarReader
}

func NewAdmission(policy Policy, calendar CalendarReader) *Admission {
	return &Admission{policy: policy, calendar: calendar}
}

// Evaluate runs every admission rule against iv in order and reports the
// first one that refuses it. Appointment excludeID is ignored by the overlap
// check; pass uuid.Nil to consider all appointments.
func (a *Admission) Evaluate(ctx context.Context, iv domain.TimeInterval, now time.Time, excludeID uuid.UUID) (Decision, error) {
	if !iv.Valid() {
		return reject(KindInvalidRange, ""), nil
	}
	if iv.Start.Before(a.policy.EarliestStart(now)) {
		return reject(KindOutOfWindow, "requested time is too soon"), nil
	}
	if iv.Start.After(a.policy.LatestStart(now)) {
		return reject(KindOutOfWindow, "requested time is too far in advance"), nil
	}

	within, err := a.WithinAvailability(ctx, iv)
	if err != nil {
		return Decision{}, err
	}
	if !within {
		return reject(KindOutsideAvailability, ""), nil
	}

	return a.CheckOverlaps(ctx, iv, excludeID)
}

func (a *Admission) IsBookable(ctx context.Context, iv domain.TimeInterval, now time.Time) (bool, error) {
	d, err := a.Evaluate(ctx, iv, now, uuid.Nil)
	if err != nil {
		return false, err
	}
	return d.Admitted(), nil
}

// IsBookableExcluding is IsBookable for moving the appointment excludeID: its
// current range does not count as a conflict.
func (a *Admission) IsBookableExcluding(ctx context.Context, iv domain.TimeInterval, now time.Time, excludeID uuid.UUID) (bool, error) {
	d, err := a.Evaluate(ctx, iv, now, excludeID)
	if err != nil {
		return false, err
	}
	return d.Admitted(), nil
}

// WithinAvailability reports whether iv lies fully inside at least one
// active weekly window of the day it starts on.
func (a *Admission) WithinAvailability(ctx context.Context, iv domain.TimeInterval) (bool, error) {
	loc := a.policy.Loc()
	date := a.policy.DateOf(iv.Start)
	entries, err := a.calendar.FindActiveAvailability(ctx, domain.WeekdayOf(date))
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.Active {
			continue
		}
		if e.Window(date, loc).Contains(iv) {
			return true, nil
		}
	}
	return false, nil
}

// CheckOverlaps reports whether iv collides with an active appointment or a
// block, appointments first. Advance window and working hours are not checked.
func (a *Admission) CheckOverlaps(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (Decision, error) {
	if !iv.Valid() {
		return reject(KindInvalidRange, ""), nil
	}
	busy, err := a.calendar.ExistsActiveAppointmentOverlapping(ctx, iv, excludeID)
	if err != nil {
		return Decision{}, err
	}
	if busy {
		return reject(KindSlotConflict, ""), nil
	}
	blocks, err := a.calendar.FindBlocksOverlapping(ctx, iv)
	if err != nil {
		return Decision{}, err
	}
	if len(blocks) > 0 {
		return reject(KindBlockConflict, ""), nil
	}
	return Decision{}, nil
}

// OccurrenceConflict describes one refused interval of a bulk check.
type OccurrenceConflict struct {
	Index    int
	Interval domain.TimeInterval
	Kind     Kind
	Reason   string
}

type BulkReport struct {
	Total        int
	HasConflicts bool
	Conflicts    []OccurrenceConflict
}

func (r BulkReport) ConflictCount() int {
	return len(r.Conflicts)
}

// CheckBulkConflicts checks every interval against appointments and blocks
// and reports all conflicts found.
func (a *Admission) CheckBulkConflicts(ctx context.Context, intervals []domain.TimeInterval) (BulkReport, error) {
	report := BulkReport{Total: len(intervals)}
	for i, iv := range intervals {
		d, err := a.CheckOverlaps(ctx, iv, uuid.Nil)
		if err != nil {
			return BulkReport{}, err
		}
		if d.Admitted() {
			continue
		}
		report.Conflicts = append(report.Conflicts, OccurrenceConflict{
			Index:    i,
			Interval: iv,
			Kind:     d.Kind,
			Reason:   d.Reason(),
		})
	}
	report.HasConflicts = len(report.Conflicts) > 0
	return report, nil
}
