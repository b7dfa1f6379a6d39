package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

// calendarLockKey serializes every calendar mutation of the provider.
const calendarLockKey = "agenda:calendar"

// calendarReader implements scheduling.CalendarReader over a database handle
// or a transaction.
type calendarReader struct {
	db bun.IDB
}

func (r calendarReader) FindActiveAvailability(ctx context.Context, day time.Weekday) ([]domain.WeeklyAvailability, error) {
	var rows []domain.WeeklyAvailability
	err := r.db.NewSelect().
		Model(&rows).
		Where("day_of_week = ?", int(day)).
		Where("active = TRUE").
		OrderExpr("start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r calendarReader) FindBlocksOverlapping(ctx context.Context, iv domain.TimeInterval) ([]domain.Block, error) {
	var rows []domain.Block
	err := r.db.NewSelect().
		Model(&rows).
		Where("start_time < ?", iv.End).
		Where("end_time > ?", iv.Start).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r calendarReader) ExistsActiveAppointmentOverlapping(ctx context.Context, iv domain.TimeInterval, excludeID uuid.UUID) (bool, error) {
	q := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("start_time < ?", iv.End).
		Where("end_time > ?", iv.Start).
		Where("status NOT IN (?)", bun.In(domain.InactiveStatuses))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Exists(ctx)
}

func (r calendarReader) FindActiveAppointmentsInRange(ctx context.Context, iv domain.TimeInterval) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("start_time < ?", iv.End).
		Where("end_time > ?", iv.Start).
		Where("status NOT IN (?)", bun.In(domain.InactiveStatuses)).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type calendarTx struct {
	calendarReader
	tx bun.Tx
}

func newCalendarTx(tx bun.Tx) calendarTx {
	return calendarTx{calendarReader: calendarReader{db: tx}, tx: tx}
}

// runCalendarTx runs fn in a serializable transaction holding the calendar
// advisory lock. Exclusion and serialization failures become store.ErrConflict.
func runCalendarTx(ctx context.Context, db *bun.DB, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	err := db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		return fn(ctx, newCalendarTx(tx))
	})
	return mapError(err)
}

func lockCalendar(ctx context.Context, tx bun.Tx) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", calendarLockKey).Exec(ctx)
	return err
}

func (r calendarTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if appt.ID != uuid.Nil {
		existing, err := r.GetAppointment(ctx, appt.ID)
		switch {
		case err == nil:
			if !sameBooking(existing, appt) {
				return domain.Appointment{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		case !errors.Is(err, store.ErrNotFound):
			return domain.Appointment{}, err
		}
	}

	m := domain.Appointment{
		ID:                 appt.ID,
		PatientRef:         appt.PatientRef,
		SessionTypeRef:     appt.SessionTypeRef,
		DurationMinutes:    appt.DurationMinutes,
		StartTime:          appt.StartTime.UTC(),
		EndTime:            appt.EndTime.UTC(),
		Status:             appt.Status,
		SeriesID:           appt.SeriesID,
		CancellationToken:  appt.CancellationToken,
		SessionLink:        appt.SessionLink,
		CancelledAt:        appt.CancelledAt,
		CancelledBy:        appt.CancelledBy,
		CancellationReason: appt.CancellationReason,
		CreatedAt:          appt.CreatedAt,
		UpdatedAt:          appt.UpdatedAt,
	}

	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Appointment{}, store.ErrIdempotencyConflict
		}
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

// sameBooking compares the fields an idempotent retry must repeat.
func sameBooking(existing, appt domain.Appointment) bool {
	return existing.PatientRef == appt.PatientRef &&
		existing.SessionTypeRef == appt.SessionTypeRef &&
		existing.StartTime.Equal(appt.StartTime) &&
		existing.EndTime.Equal(appt.EndTime)
}

func (r calendarTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.tx.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Appointment{}, notFound(err)
	}
	return m, nil
}

func (r calendarTx) GetAppointmentByToken(ctx context.Context, token string) (domain.Appointment, error) {
	return appointmentByToken(ctx, r.tx, token, true)
}

func appointmentByToken(ctx context.Context, db bun.IDB, token string, forUpdate bool) (domain.Appointment, error) {
	var m domain.Appointment
	q := db.NewSelect().Model(&m).Where("cancellation_token = ?", token).Limit(1)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.Appointment{}, notFound(err)
	}
	return m, nil
}

func (r calendarTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.StartTime = appt.StartTime.UTC()
	appt.EndTime = appt.EndTime.UTC()
	res, err := r.tx.NewUpdate().
		Model(&appt).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r calendarTx) ListActiveSeriesAppointments(ctx context.Context, seriesID uuid.UUID, from time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("series_id = ?", seriesID).
		Where("start_time > ?", from).
		Where("status NOT IN (?)", bun.In(domain.InactiveStatuses)).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r calendarTx) CreateRecurringSeries(ctx context.Context, series domain.RecurringSeries) (domain.RecurringSeries, error) {
	m := series
	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.RecurringSeries{}, err
	}
	return m, nil
}

func (r calendarTx) GetRecurringSeries(ctx context.Context, id uuid.UUID) (domain.RecurringSeries, error) {
	return recurringSeriesByID(ctx, r.tx, id)
}

func recurringSeriesByID(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.RecurringSeries, error) {
	var m domain.RecurringSeries
	err := db.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.RecurringSeries{}, notFound(err)
	}
	return m, nil
}

func (r calendarTx) UpdateRecurringSeries(ctx context.Context, series domain.RecurringSeries) (domain.RecurringSeries, error) {
	res, err := r.tx.NewUpdate().
		Model(&series).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.RecurringSeries{}, err
	}
	if err := requireAffected(res); err != nil {
		return domain.RecurringSeries{}, err
	}
	return series, nil
}

func (r calendarTx) CreateBlock(ctx context.Context, block domain.Block) (domain.Block, error) {
	m := block
	m.StartTime = m.StartTime.UTC()
	m.EndTime = m.EndTime.UTC()
	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Block{}, err
	}
	return m, nil
}

func (r calendarTx) UpdateBlock(ctx context.Context, block domain.Block) (domain.Block, error) {
	block.StartTime = block.StartTime.UTC()
	block.EndTime = block.EndTime.UTC()
	res, err := r.tx.NewUpdate().
		Model(&block).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Block{}, err
	}
	if err := requireAffected(res); err != nil {
		return domain.Block{}, err
	}
	return block, nil
}

func (r calendarTx) GetBlock(ctx context.Context, id uuid.UUID) (domain.Block, error) {
	var m domain.Block
	err := r.tx.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Block{}, notFound(err)
	}
	return m, nil
}
