// Package reminders finds appointments due for a reminder and patients whose
// data is past the retention period. Both sweeps are driven by an external
// scheduler.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

type Notifier interface {
	Dispatch(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger) error
}

// Window selects appointments starting in [now+From, now+To). The windows are
// wider than the sweep interval so a late run still catches every appointment;
// the notification log drops the duplicates.
type Window struct {
	Trigger domain.NotificationTrigger
	From    time.Duration
	To      time.Duration
}

var (
	Window24h = Window{Trigger: domain.TriggerReminder24h, From: 23 * time.Hour, To: 25 * time.Hour}
	Window2h  = Window{Trigger: domain.TriggerReminder2h, From: 105 * time.Minute, To: 135 * time.Minute}
)

func WindowFor(trigger domain.NotificationTrigger) (Window, error) {
	switch trigger {
	case domain.TriggerReminder24h:
		return Window24h, nil
	case domain.TriggerReminder2h:
		return Window2h, nil
	}
	return Window{}, fmt.Errorf("no reminder window for trigger %q", trigger)
}

type Service struct {
	repo     store.ReminderRepository
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(repo store.ReminderRepository, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "reminders"))
	return s
}

func (s *Service) DueSoon(ctx context.Context, w Window) ([]domain.Appointment, error) {
	now := s.now()
	return s.repo.ListUpcoming(ctx, now.Add(w.From), now.Add(w.To))
}

type SweepResult struct {
	Due    int
	Failed int
}

// SendDue dispatches w.Trigger for every appointment in the window. Failures
// are counted and logged; the sweep continues with the next appointment.
func (s *Service) SendDue(ctx context.Context, w Window) (SweepResult, error) {
	due, err := s.DueSoon(ctx, w)
	if err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{Due: len(due)}
	for _, appt := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.notifier.Dispatch(ctx, appt, w.Trigger); err != nil {
			res.Failed++
			s.log.WarnContext(ctx, "reminder dispatch failed",
				slog.String("appointment_id", appt.ID.String()),
				slog.String("trigger", string(w.Trigger)),
				slog.Any("err", err),
			)
		}
	}
	s.log.InfoContext(ctx, "reminder sweep finished",
		slog.String("trigger", string(w.Trigger)),
		slog.Int("due", res.Due),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}

// StalePatients lists patients whose most recent appointment started more
// than months ago. It only reports; deletion is left to the operator.
func (s *Service) StalePatients(ctx context.Context, months int) ([]string, error) {
	if months <= 0 {
		return nil, errors.New("retention months must be positive")
	}
	cutoff := s.now().AddDate(0, -months, 0)
	refs, err := s.repo.ListStalePatientRefs(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "retention sweep finished",
		slog.Time("cutoff", cutoff),
		slog.Int("patients", len(refs)),
	)
	return refs, nil
}
