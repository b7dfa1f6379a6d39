package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

type AppointmentRepo struct {
	calendarReader
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{calendarReader: calendarReader{db: db}, db: db}
}

func (r *AppointmentRepo) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return runCalendarTx(ctx, r.db, fn)
}

func (r *AppointmentRepo) ListAppointments(ctx context.Context, windowStart, windowEnd time.Time, includeCancelled bool) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC")
	if !includeCancelled {
		q = q.Where("status NOT IN (?)", bun.In(domain.InactiveStatuses))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) GetAppointmentByToken(ctx context.Context, token string) (domain.Appointment, error) {
	return appointmentByToken(ctx, r.db, token, false)
}

func (r *AppointmentRepo) ListSeriesAppointments(ctx context.Context, seriesID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("series_id = ?", seriesID).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListRecurringSeries(ctx context.Context, activeOnly bool) ([]domain.RecurringSeries, error) {
	var rows []domain.RecurringSeries
	q := r.db.NewSelect().
		Model(&rows).
		OrderExpr("start_date ASC, created_at ASC")
	if activeOnly {
		q = q.Where("active = TRUE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) GetRecurringSeries(ctx context.Context, id uuid.UUID) (domain.RecurringSeries, error) {
	return recurringSeriesByID(ctx, r.db, id)
}
