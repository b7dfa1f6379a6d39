// Package notify delivers appointment lifecycle events to the configured
// channels and keeps a per-channel delivery log.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/store"
)

// Channel is one delivery capability (email, WhatsApp, an event bus). Send
// must be safe for concurrent use.
type Channel interface {
	Name() string
	Send(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger) error
}

// Dispatcher fans a trigger out to every channel. Triggers that fire at most
// once per appointment are skipped on channels that already delivered them.
type Dispatcher struct {
	log      store.NotificationLogRepository
	channels []Channel
	logger   *slog.Logger
}

func NewDispatcher(log store.NotificationLogRepository, logger *slog.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		log:      log,
		channels: channels,
		logger:   logger.With(slog.String("component", "notify.dispatcher")),
	}
}

// Dispatch sends to all channels and returns the joined channel failures.
// A failing channel does not stop the others.
func (d *Dispatcher) Dispatch(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger) error {
	var errs []error
	for _, ch := range d.channels {
		if err := d.deliver(ctx, ch, appt, trigger); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, appt domain.Appointment, trigger domain.NotificationTrigger) error {
	logger := d.logger.With(
		slog.String("appointment_id", appt.ID.String()),
		slog.String("trigger", string(trigger)),
		slog.String("channel", ch.Name()),
	)

	if onceOnly(trigger) {
		sent, err := d.log.HasNotification(ctx, appt.ID, trigger, ch.Name())
		if err != nil {
			return err
		}
		if sent {
			logger.DebugContext(ctx, "notification already sent")
			return nil
		}
	}

	entry := domain.NotificationLog{
		AppointmentID: appt.ID,
		Trigger:       trigger,
		Channel:       ch.Name(),
		Status:        domain.NotificationSent,
	}
	sendErr := ch.Send(ctx, appt, trigger)
	if sendErr != nil {
		entry.Status = domain.NotificationFailed
		entry.Error = sendErr.Error()
		logger.WarnContext(ctx, "notification failed", slog.Any("err", sendErr))
	} else {
		logger.InfoContext(ctx, "notification sent")
	}

	if err := d.log.RecordNotification(ctx, entry); err != nil {
		logger.ErrorContext(ctx, "record notification", slog.Any("err", err))
		if sendErr == nil {
			return err
		}
	}
	return sendErr
}

// onceOnly reports whether trigger is delivered at most once per appointment.
// An appointment may be rescheduled several times.
func onceOnly(trigger domain.NotificationTrigger) bool {
	return trigger != domain.TriggerReschedule
}
