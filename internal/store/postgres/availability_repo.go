package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

type AvailabilityRepo struct {
	calendarReader
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{calendarReader: calendarReader{db: db}, db: db}
}

func (r *AvailabilityRepo) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return runCalendarTx(ctx, r.db, fn)
}

func (r *AvailabilityRepo) ListAvailability(ctx context.Context) ([]domain.WeeklyAvailability, error) {
	var rows []domain.WeeklyAvailability
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("day_of_week ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) CreateAvailability(ctx context.Context, a domain.WeeklyAvailability) (domain.WeeklyAvailability, error) {
	m := a
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.WeeklyAvailability{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) UpdateAvailability(ctx context.Context, a domain.WeeklyAvailability) (domain.WeeklyAvailability, error) {
	res, err := r.db.NewUpdate().
		Model(&a).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.WeeklyAvailability{}, err
	}
	if err := requireAffected(res); err != nil {
		return domain.WeeklyAvailability{}, err
	}
	return a, nil
}

func (r *AvailabilityRepo) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.WeeklyAvailability)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *AvailabilityRepo) ListBlocks(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Block, error) {
	var rows []domain.Block
	err := r.db.NewSelect().
		Model(&rows).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Block)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res)
}
