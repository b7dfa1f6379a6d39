package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
)

type ReminderRepo struct {
	db *bun.DB
}

func NewReminderRepo(db *bun.DB) *ReminderRepo {
	return &ReminderRepo{db: db}
}

func (r *ReminderRepo) ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("start_time >= ?", from).
		Where("start_time < ?", to).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.StatusScheduled, domain.StatusConfirmed})).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ReminderRepo) ListStalePatientRefs(ctx context.Context, cutoff time.Time) ([]string, error) {
	var refs []string
	err := r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Column("patient_ref").
		Group("patient_ref").
		Having("MAX(start_time) < ?", cutoff).
		OrderExpr("patient_ref ASC").
		Scan(ctx, &refs)
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *ReminderRepo) HasNotification(ctx context.Context, appointmentID uuid.UUID, trigger domain.NotificationTrigger, channel string) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.NotificationLog)(nil)).
		Where("appointment_id = ?", appointmentID).
		Where("trigger = ?", trigger).
		Where("channel = ?", channel).
		Where("status = ?", domain.NotificationSent).
		Exists(ctx)
}

func (r *ReminderRepo) RecordNotification(ctx context.Context, entry domain.NotificationLog) error {
	_, err := r.db.NewInsert().Model(&entry).Exec(ctx)
	return err
}
