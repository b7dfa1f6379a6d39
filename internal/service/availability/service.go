package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/store"
)

// ErrBlockOverlapsAppointments rejects a block over booked time. Cancel or
// move those appointments first.
var ErrBlockOverlapsAppointments = fmt.Errorf("active appointments exist in the blocked period: %w", store.ErrConflict)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// SlotCache stores generated day slots per date and session duration.
type SlotCache interface {
	Get(ctx context.Context, date civil.Date, d time.Duration) ([]scheduling.Slot, bool, error)
	Set(ctx context.Context, date civil.Date, d time.Duration, slots []scheduling.Slot) error
	InvalidateDate(ctx context.Context, date civil.Date) error
	InvalidateAll(ctx context.Context) error
}

type Service struct {
	repo   store.AvailabilityRepository
	policy scheduling.Policy
	cache  SlotCache
	now    func() time.Time
	log    *slog.Logger
}

type Option func(*Service)

func WithCache(c SlotCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(repo store.AvailabilityRepository, policy scheduling.Policy, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		policy: policy,
		cache:  noopCache{},
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.availability"))
	return s
}

type WindowInput struct {
	DayOfWeek time.Weekday
	StartTime domain.TimeOfDay
	EndTime   domain.TimeOfDay
	Active    *bool
}

func (in WindowInput) model() (domain.WeeklyAvailability, error) {
	a := domain.WeeklyAvailability{
		DayOfWeek: in.DayOfWeek,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Active:    true,
	}
	if in.Active != nil {
		a.Active = *in.Active
	}
	if a.DayOfWeek < time.Sunday || a.DayOfWeek > time.Saturday {
		return domain.WeeklyAvailability{}, validationError("invalid day_of_week")
	}
	if !a.Valid() {
		return domain.WeeklyAvailability{}, validationError("end_time must be after start_time")
	}
	return a, nil
}

func (s *Service) ListAvailability(ctx context.Context) ([]domain.WeeklyAvailability, error) {
	return s.repo.ListAvailability(ctx)
}

func (s *Service) CreateAvailability(ctx context.Context, in WindowInput) (domain.WeeklyAvailability, error) {
	a, err := in.model()
	if err != nil {
		return domain.WeeklyAvailability{}, err
	}
	out, err := s.repo.CreateAvailability(ctx, a)
	if err != nil {
		return domain.WeeklyAvailability{}, err
	}
	s.invalidateAll(ctx)
	return out, nil
}

func (s *Service) UpdateAvailability(ctx context.Context, id uuid.UUID, in WindowInput) (domain.WeeklyAvailability, error) {
	if id == uuid.Nil {
		return domain.WeeklyAvailability{}, validationError("availability_id is required")
	}
	a, err := in.model()
	if err != nil {
		return domain.WeeklyAvailability{}, err
	}
	a.ID = id
	out, err := s.repo.UpdateAvailability(ctx, a)
	if err != nil {
		return domain.WeeklyAvailability{}, err
	}
	s.invalidateAll(ctx)
	return out, nil
}

func (s *Service) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("availability_id is required")
	}
	if err := s.repo.DeleteAvailability(ctx, id); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

type BlockInput struct {
	StartTime time.Time
	EndTime   time.Time
	Type      domain.BlockType
	Reason    string
}

func (in BlockInput) model() (domain.Block, error) {
	b := domain.Block{
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		Type:      in.Type,
		Reason:    strings.TrimSpace(in.Reason),
	}
	if b.Type == "" {
		b.Type = domain.BlockTypeOther
	}
	if !b.Type.Valid() {
		return domain.Block{}, validationError("invalid block type")
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return domain.Block{}, validationError("start_time and end_time are required")
	}
	if !b.Interval().Valid() {
		return domain.Block{}, validationError("end_time must be after start_time")
	}
	return b, nil
}

func (s *Service) ListBlocks(ctx context.Context, windowStart, windowEnd time.Time) ([]domain.Block, error) {
	if !windowEnd.After(windowStart) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListBlocks(ctx, windowStart.UTC(), windowEnd.UTC())
}

// CreateBlock blacks out a period. It fails with ErrBlockOverlapsAppointments
// when active appointments fall inside it.
func (s *Service) CreateBlock(ctx context.Context, in BlockInput) (domain.Block, error) {
	b, err := in.model()
	if err != nil {
		return domain.Block{}, err
	}

	var out domain.Block
	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		busy, err := tx.ExistsActiveAppointmentOverlapping(ctx, b.Interval(), uuid.Nil)
		if err != nil {
			return err
		}
		if busy {
			return ErrBlockOverlapsAppointments
		}
		out, err = tx.CreateBlock(ctx, b)
		return err
	})
	if err != nil {
		return domain.Block{}, err
	}
	s.invalidateSpan(ctx, out.Interval())
	return out, nil
}

func (s *Service) UpdateBlock(ctx context.Context, id uuid.UUID, in BlockInput) (domain.Block, error) {
	if id == uuid.Nil {
		return domain.Block{}, validationError("block_id is required")
	}
	b, err := in.model()
	if err != nil {
		return domain.Block{}, err
	}
	b.ID = id

	var before, out domain.Block
	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		var err error
		before, err = tx.GetBlock(ctx, id)
		if err != nil {
			return err
		}
		busy, err := tx.ExistsActiveAppointmentOverlapping(ctx, b.Interval(), uuid.Nil)
		if err != nil {
			return err
		}
		if busy {
			return ErrBlockOverlapsAppointments
		}
		out, err = tx.UpdateBlock(ctx, b)
		return err
	})
	if err != nil {
		return domain.Block{}, err
	}
	s.invalidateSpan(ctx, before.Interval())
	s.invalidateSpan(ctx, out.Interval())
	return out, nil
}

func (s *Service) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("block_id is required")
	}
	if err := s.repo.DeleteBlock(ctx, id); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// DaySlots lists the display slots of date. Results may come from the cache
// and are advisory.
func (s *Service) DaySlots(ctx context.Context, date civil.Date, durationMinutes int) ([]scheduling.Slot, error) {
	d, err := slotDuration(date, durationMinutes)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.Get(ctx, date, d); err != nil {
		s.log.WarnContext(ctx, "slot cache read failed", slog.String("date", date.String()), slog.Any("err", err))
	} else if ok {
		return cached, nil
	}

	slots, err := scheduling.NewSlotGenerator(s.policy, s.repo).GenerateDaySlots(ctx, date, d, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, date, d, slots); err != nil {
		s.log.WarnContext(ctx, "slot cache write failed", slog.String("date", date.String()), slog.Any("err", err))
	}
	return slots, nil
}

// RangeSlots lists display slots for every date in [start, end] that has any.
func (s *Service) RangeSlots(ctx context.Context, start, end civil.Date, durationMinutes int) ([]scheduling.DaySlots, error) {
	if _, err := slotDuration(start, durationMinutes); err != nil {
		return nil, err
	}
	if !end.IsValid() {
		return nil, validationError("end_date is required")
	}
	if end.Before(start) {
		return nil, validationError("end_date must not be before start_date")
	}
	if _, last := s.policy.BookingDates(s.now()); end.After(last) {
		end = last
	}

	out := make([]scheduling.DaySlots, 0)
	for date := start; !date.After(end); date = date.AddDays(1) {
		slots, err := s.DaySlots(ctx, date, durationMinutes)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}
		out = append(out, scheduling.DaySlots{Date: date, Slots: slots})
	}
	return out, nil
}

func slotDuration(date civil.Date, durationMinutes int) (time.Duration, error) {
	if !date.IsValid() {
		return 0, validationError("date is required")
	}
	if durationMinutes <= 0 {
		return 0, validationError("duration_minutes must be positive")
	}
	if durationMinutes > 24*60 {
		return 0, validationError("duration too long")
	}
	return time.Duration(durationMinutes) * time.Minute, nil
}

// maxInvalidatedDays bounds per-date invalidation; longer spans drop the
// whole cache.
const maxInvalidatedDays = 31

func (s *Service) invalidateSpan(ctx context.Context, iv domain.TimeInterval) {
	first := s.policy.DateOf(iv.Start)
	last := s.policy.DateOf(iv.End)
	if last.DaysSince(first) > maxInvalidatedDays {
		s.invalidateAll(ctx)
		return
	}
	for d := first; !d.After(last); d = d.AddDays(1) {
		if err := s.cache.InvalidateDate(ctx, d); err != nil {
			s.log.WarnContext(ctx, "slot cache invalidation failed", slog.String("date", d.String()), slog.Any("err", err))
		}
	}
}

func (s *Service) invalidateAll(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.WarnContext(ctx, "slot cache invalidation failed", slog.Any("err", err))
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, civil.Date, time.Duration) ([]scheduling.Slot, bool, error) {
	return nil, false, nil
}

func (noopCache) Set(context.Context, civil.Date, time.Duration, []scheduling.Slot) error {
	return nil
}

func (noopCache) InvalidateDate(context.Context, civil.Date) error { return nil }

func (noopCache) InvalidateAll(context.Context) error { return nil }
