package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
)

// CalendarTx is the calendar as seen from inside one serialized transaction.
// Admission reads and the writes they justify must go through the same tx.
type CalendarTx interface {
	scheduling.CalendarReader

	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	GetAppointmentByToken(ctx context.Context, token string) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	ListActiveSeriesAppointments(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]domain.Appointment, error)

	CreateRecurringSeries(ctx context.Context, series domain.RecurringSeries) (domain.RecurringSeries, error)
	GetRecurringSeries(ctx context.Context, id uuid.UUID) (domain.RecurringSeries, error)
	UpdateRecurringSeries(ctx context.Context, series domain.RecurringSeries) (domain.RecurringSeries, error)

	CreateBlock(ctx context.Context, block domain.Block) (domain.Block, error)
	UpdateBlock(ctx context.Context, block domain.Block) (domain.Block, error)
	GetBlock(ctx context.Context, id uuid.UUID) (domain.Block, error)
}

// TxRunner runs fn inside a calendar transaction. Conflicts detected by the
// store itself surface as ErrConflict.
type TxRunner interface {
	InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx CalendarTx) error) error
}
