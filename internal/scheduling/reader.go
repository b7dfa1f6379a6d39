package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
)

// CalendarReader is the read side of the calendar store. Appointments returned
// or matched are always active ones. ExistsActiveAppointmentOverlapping
// ignores excludeID unless it is uuid.Nil.
type CalendarReader interface {
	FindActiveAvailability(ctx context.Context, day time.Weekday) ([]domain.WeeklyAvailability, error)
	FindBlocksOverlapping(ctx context.Context, iv domain.TimeInterval) ([]domain.Block, error)
	ExistsActiveAppointmentOverlapping(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (bool, error)
	FindActiveAppointmentsInRange(ctx context.Context, iv domain.TimeInterval) ([]domain.Appointment, error)
}
