package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
)

type memCalendar struct {
	availability []domain.WeeklyAvailability
	blocks       []domain.Block
	appointments []domain.Appointment
}

func (m *memCalendar) FindActiveAvailability(ctx context.Context, day time.Weekday) ([]domain.WeeklyAvailability, error) {
	var out []domain.WeeklyAvailability
	for _, a := range m.availability {
		if a.Active && a.DayOfWeek == day {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memCalendar) FindBlocksOverlapping(ctx context.Context, iv domain.TimeInterval) ([]domain.Block, error) {
	var out []domain.Block
	for _, b := range m.blocks {
		if b.Interval().Overlaps(iv) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memCalendar) ExistsActiveAppointmentOverlapping(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (bool, error) {
	for _, a := range m.appointments {
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if a.IsActive() && a.Interval().Overlaps(iv) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCalendar) FindActiveAppointmentsInRange(ctx context.Context, iv domain.TimeInterval) ([]domain.Appointment, error) {
	var out []domain.Appointment
	for _, a := range m.appointments {
		if a.IsActive() && a.Interval().Overlaps(iv) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memCalendar) open(day time.Weekday, from, to domain.TimeOfDay) {
	m.availability = append(m.availability, domain.WeeklyAvailability{
		ID:        uuid.New(),
		DayOfWeek: day,
		StartTime: from,
		EndTime:   to,
		Active:    true,
	})
}

func (m *memCalendar) book(start time.Time, d time.Duration, status domain.AppointmentStatus) domain.Appointment {
	a := domain.Appointment{
		ID:        uuid.New(),
		StartTime: start,
		EndTime:   start.Add(d),
		Status:    status,
	}
	m.appointments = append(m.appointments, a)
	return a
}

func (m *memCalendar) block(start, end time.Time) {
	m.blocks = append(m.blocks, domain.Block{ID: uuid.New(), StartTime: start, EndTime: end, Type: domain.BlockTypeOther})
}

func hm(h, m int) domain.TimeOfDay { return domain.MustTimeOfDay(h, m) }

// monday is 2024-01-08 at h:m UTC.
func monday(h, m int) time.Time {
	return time.Date(2024, 1, 8, h, m, 0, 0, time.UTC)
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.Location = time.UTC
	return p
}
