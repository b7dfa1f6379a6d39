package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
)

type AppointmentRepository interface {
	TxRunner
	// Snapshot reads for advisory checks outside a transaction.
	scheduling.CalendarReader

	ListAppointments(ctx context.Context, windowStart, windowEnd time.Time, includeCancelled bool) ([]domain.Appointment, error)
	GetAppointmentByToken(ctx context.Context, token string) (domain.Appointment, error)
	ListSeriesAppointments(ctx context.Context, seriesID uuid.UUID) ([]domain.Appointment, error)
	ListRecurringSeries(ctx context.Context, activeOnly bool) ([]domain.RecurringSeries, error)
	GetRecurringSeries(ctx context.Context, id uuid.UUID) (domain.RecurringSeries, error)
}

type AvailabilityRepository interface {
	TxRunner
	scheduling.CalendarReader

	ListAvailability(ctx context.Context) ([]domain.WeeklyAvailability, error)
	CreateAvailability(ctx context.Context, a domain.WeeklyAvailability) (domain.WeeklyAvailability, error)
	UpdateAvailability(ctx context.Context, a domain.WeeklyAvailability) (domain.WeeklyAvailability, error)
	DeleteAvailability(ctx context.Context, id uuid.UUID) error

	ListBlocks(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Block, error)
	DeleteBlock(ctx context.Context, id uuid.UUID) error
}

type ReminderRepository interface {
	// ListUpcoming returns scheduled or confirmed appointments starting in
	// [from, to).
	ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
	// ListStalePatientRefs returns patients whose latest appointment started
	// before cutoff.
	ListStalePatientRefs(ctx context.Context, cutoff time.Time) ([]string, error)
}

type NotificationLogRepository interface {
	HasNotification(ctx context.Context, appointmentID uuid.UUID, trigger domain.NotificationTrigger, channel string) (bool, error)
	RecordNotification(ctx context.Context, entry domain.NotificationLog) error
}
