package notify

import (
	"context"
	"log/slog"

	"agenda/backend/internal/domain"
)

// LogChannel writes notifications to the process log. It is used when no
// broker is configured.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger) error {
	c.logger.InfoContext(ctx, "notification",
		slog.String("trigger", string(trigger)),
		slog.String("appointment_id", appt.ID.String()),
		slog.String("patient_ref", appt.PatientRef),
		slog.Time("start_time", appt.StartTime),
	)
	return nil
}
