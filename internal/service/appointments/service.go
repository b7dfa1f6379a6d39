package appointments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/store"
)

const maxSessionMinutes = 24 * 60

// Notifier receives booking lifecycle events after they are committed.
type Notifier interface {
	Dispatch(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger) error
}

// SlotInvalidator drops cached slot listings of a date.
type SlotInvalidator interface {
	InvalidateDate(ctx context.Context, date civil.Date) error
}

type Service struct {
	repo     store.AppointmentRepository
	policy   scheduling.Policy
	notifier Notifier
	slots    SlotInvalidator
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithSlotInvalidator(c SlotInvalidator) Option {
	return func(s *Service) { s.slots = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(repo store.AppointmentRepository, policy scheduling.Policy, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		policy:   policy,
		notifier: noopNotifier{},
		slots:    noopInvalidator{},
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "service.appointments"))
	return s
}

type BookInput struct {
	PatientRef      string
	SessionTypeRef  string
	DurationMinutes int
	StartTime       time.Time
	IdempotencyKey  string
}

// Book admits and records a patient booking. The admission check and the
// insert share one calendar transaction.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	appt, err := newAppointment(in.PatientRef, in.SessionTypeRef, in.DurationMinutes, in.StartTime)
	if err != nil {
		return domain.Appointment{}, err
	}
	appt.Status = domain.StatusConfirmed

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError("idempotency_key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("agenda:book_appointment:"+appt.PatientRef+":"+key))
	}

	now := s.now()
	var (
		out      domain.Appointment
		replayed bool
	)
	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		if appt.ID != uuid.Nil {
			existing, err := tx.GetAppointment(ctx, appt.ID)
			switch {
			case err == nil:
				if existing.PatientRef != appt.PatientRef || !existing.StartTime.Equal(appt.StartTime) || !existing.EndTime.Equal(appt.EndTime) {
					return store.ErrIdempotencyConflict
				}
				out, replayed = existing, true
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		d, err := scheduling.NewAdmission(s.policy, tx).Evaluate(ctx, appt.Interval(), now, uuid.Nil)
		if err != nil {
			return err
		}
		if !d.Admitted() {
			return rejection(d)
		}
		out, err = tx.CreateAppointment(ctx, appt)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}
	if !replayed {
		s.afterCommit(ctx, out, domain.TriggerBookingConfirmation, out.Interval())
	}
	return out, nil
}

type AdminBookInput struct {
	PatientRef      string
	SessionTypeRef  string
	DurationMinutes int
	StartTime       time.Time
	Status          domain.AppointmentStatus
	SessionLink     string
}

// AdminBook records an appointment on behalf of the provider. Working hours
// and the advance window do not apply; overlaps still do.
func (s *Service) AdminBook(ctx context.Context, in AdminBookInput) (domain.Appointment, error) {
	appt, err := newAppointment(in.PatientRef, in.SessionTypeRef, in.DurationMinutes, in.StartTime)
	if err != nil {
		return domain.Appointment{}, err
	}
	appt.Status = in.Status
	if appt.Status == "" {
		appt.Status = domain.StatusScheduled
	}
	if !appt.Status.Valid() || !appt.Status.Active() {
		return domain.Appointment{}, validationError("invalid status")
	}
	appt.SessionLink = strings.TrimSpace(in.SessionLink)

	var out domain.Appointment
	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		d, err := scheduling.NewAdmission(s.policy, tx).CheckOverlaps(ctx, appt.Interval(), uuid.Nil)
		if err != nil {
			return err
		}
		if !d.Admitted() {
			return rejection(d)
		}
		out, err = tx.CreateAppointment(ctx, appt)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}
	s.afterCommit(ctx, out, domain.TriggerBookingConfirmation, out.Interval())
	return out, nil
}

// Reschedule moves the appointment identified by token to newStart, keeping
// its duration, and issues a new token.
func (s *Service) Reschedule(ctx context.Context, token string, newStart time.Time) (domain.Appointment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Appointment{}, validationError("cancellation_token is required")
	}
	if newStart.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}

	now := s.now()
	var out, before domain.Appointment
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		a, err := tx.GetAppointmentByToken(ctx, token)
		if err != nil {
			return err
		}
		if d := s.policy.CanReschedule(a, now); !d.Admitted() {
			return rejection(d)
		}

		iv := domain.IntervalOf(newStart.UTC(), a.EndTime.Sub(a.StartTime))
		d, err := scheduling.NewAdmission(s.policy, tx).Evaluate(ctx, iv, now, a.ID)
		if err != nil {
			return err
		}
		if !d.Admitted() {
			return rejection(d)
		}

		before = a
		a.StartTime = iv.Start
		a.EndTime = iv.End
		a.CancellationToken = domain.NewCancellationToken()
		out, err = tx.UpdateAppointment(ctx, a)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}
	s.afterCommit(ctx, out, domain.TriggerReschedule, before.Interval(), out.Interval())
	return out, nil
}

// CancelByToken cancels a patient booking. Cancelling inside the
// cancellation window marks it cancelled_late.
func (s *Service) CancelByToken(ctx context.Context, token, reason string) (domain.Appointment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Appointment{}, validationError("cancellation_token is required")
	}

	now := s.now()
	var out domain.Appointment
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		a, err := tx.GetAppointmentByToken(ctx, token)
		if err != nil {
			return err
		}
		status, d := s.policy.CancellationOutcome(a, now)
		if !d.Admitted() {
			return rejection(d)
		}
		markCancelled(&a, status, now, "patient", reason)
		out, err = tx.UpdateAppointment(ctx, a)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}
	s.afterCommit(ctx, out, domain.TriggerCancellation, out.Interval())
	return out, nil
}

type StatusUpdate struct {
	Status      domain.AppointmentStatus
	Reason      string
	SessionLink *string
}

// UpdateStatus applies a provider status change. Reactivating a cancelled
// appointment is admitted only if its range is still free.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, in StatusUpdate) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if !in.Status.Valid() {
		return domain.Appointment{}, validationError("invalid status")
	}

	now := s.now()
	var (
		out       domain.Appointment
		cancelled bool
	)
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		a, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case in.Status.Cancelled() && a.IsActive():
			markCancelled(&a, in.Status, now, "admin", in.Reason)
			cancelled = true
		case in.Status.Active() && !a.IsActive():
			d, err := scheduling.NewAdmission(s.policy, tx).CheckOverlaps(ctx, a.Interval(), a.ID)
			if err != nil {
				return err
			}
			if !d.Admitted() {
				return rejection(d)
			}
			a.Status = in.Status
			a.CancelledAt = nil
			a.CancelledBy = ""
			a.CancellationReason = ""
		default:
			a.Status = in.Status
		}
		if in.SessionLink != nil {
			a.SessionLink = strings.TrimSpace(*in.SessionLink)
		}

		out, err = tx.UpdateAppointment(ctx, a)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}

	var trigger domain.NotificationTrigger
	if cancelled {
		trigger = domain.TriggerCancellation
	}
	s.afterCommit(ctx, out, trigger, out.Interval())
	return out, nil
}

func (s *Service) GetByToken(ctx context.Context, token string) (domain.Appointment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Appointment{}, validationError("cancellation_token is required")
	}
	return s.repo.GetAppointmentByToken(ctx, token)
}

func (s *Service) List(ctx context.Context, windowStart, windowEnd time.Time, includeCancelled bool) ([]domain.Appointment, error) {
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if !end.After(start) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListAppointments(ctx, start, end, includeCancelled)
}

func newAppointment(patientRef, sessionTypeRef string, durationMinutes int, start time.Time) (domain.Appointment, error) {
	patientRef = strings.TrimSpace(patientRef)
	if patientRef == "" {
		return domain.Appointment{}, validationError("patient_ref is required")
	}
	sessionTypeRef = strings.TrimSpace(sessionTypeRef)
	if sessionTypeRef == "" {
		return domain.Appointment{}, validationError("session_type_ref is required")
	}
	if durationMinutes <= 0 {
		return domain.Appointment{}, validationError("duration_minutes must be positive")
	}
	if durationMinutes > maxSessionMinutes {
		return domain.Appointment{}, validationError("duration too long")
	}
	if start.IsZero() {
		return domain.Appointment{}, validationError("start_time is required")
	}

	start = start.UTC()
	return domain.Appointment{
		PatientRef:        patientRef,
		SessionTypeRef:    sessionTypeRef,
		DurationMinutes:   durationMinutes,
		StartTime:         start,
		EndTime:           start.Add(time.Duration(durationMinutes) * time.Minute),
		CancellationToken: domain.NewCancellationToken(),
	}, nil
}

func markCancelled(a *domain.Appointment, status domain.AppointmentStatus, now time.Time, by, reason string) {
	at := now.UTC()
	a.Status = status
	a.CancelledAt = &at
	a.CancelledBy = by
	a.CancellationReason = strings.TrimSpace(reason)
}

// afterCommit invalidates the slot cache for every local date the touched
// intervals cover and sends trigger when set. Failures are logged; the booking
// is already durable.
func (s *Service) afterCommit(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger, touched ...domain.TimeInterval) {
	seen := make(map[civil.Date]struct{}, len(touched))
	for _, iv := range touched {
		first, last := s.policy.DateOf(iv.Start), s.policy.DateOf(iv.End.Add(-time.Nanosecond))
		if last.Before(first) {
			last = first
		}
		for d := first; !d.After(last); d = d.AddDays(1) {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			if err := s.slots.InvalidateDate(ctx, d); err != nil {
				s.log.WarnContext(ctx, "slot cache invalidation failed", slog.String("date", d.String()), slog.Any("err", err))
			}
		}
	}
	if trigger == "" {
		return
	}
	if err := s.notifier.Dispatch(ctx, appt, trigger); err != nil {
		s.log.WarnContext(ctx, "notification dispatch failed",
			slog.String("appointment_id", appt.ID.String()),
			slog.String("trigger", string(trigger)),
			slog.Any("err", err),
		)
	}
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(context.Context, domain.Appointment, domain.NotificationTrigger) error {
	return nil
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateDate(context.Context, civil.Date) error {
	return nil
}
