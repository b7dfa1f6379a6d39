package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"agenda/backend/internal/config"
	"agenda/backend/internal/domain"
	"agenda/backend/internal/service/reminders"
)

const sweepTimeout = 5 * time.Minute

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, slog.Any("err", err))...)
}

// newScheduler registers the reminder and retention sweeps. Each sweep runs
// with its own timeout and is skipped while a previous run is still going.
func newScheduler(ctx context.Context, log *slog.Logger, cfg config.Config, loc *time.Location, svc *reminders.Service) (*cron.Cron, error) {
	log = log.With(slog.String("component", "jobs"))
	logger := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if cfg.NotificationsEnabled {
		sweeps := []struct {
			spec    string
			trigger domain.NotificationTrigger
		}{
			{cfg.Reminder24hCron, domain.TriggerReminder24h},
			{cfg.Reminder2hCron, domain.TriggerReminder2h},
		}
		for _, sw := range sweeps {
			w, err := reminders.WindowFor(sw.trigger)
			if err != nil {
				return nil, err
			}
			if _, err := c.AddFunc(sw.spec, func() {
				runSweep(ctx, log, string(w.Trigger), func(ctx context.Context) error {
					_, err := svc.SendDue(ctx, w)
					return err
				})
			}); err != nil {
				return nil, fmt.Errorf("schedule %s sweep: %w", w.Trigger, err)
			}
		}
	}

	if cfg.RetentionEnabled {
		months := cfg.RetentionMonths
		if _, err := c.AddFunc(cfg.RetentionCron, func() {
			runSweep(ctx, log, "retention", func(ctx context.Context) error {
				refs, err := svc.StalePatients(ctx, months)
				if err != nil {
					return err
				}
				for _, ref := range refs {
					log.Info("patient past retention period", slog.String("patient_ref", ref))
				}
				return nil
			})
		}); err != nil {
			return nil, fmt.Errorf("schedule retention sweep: %w", err)
		}
	}

	return c, nil
}

func runSweep(ctx context.Context, log *slog.Logger, name string, fn func(ctx context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		log.Error("sweep failed", slog.String("job", name), slog.Any("err", err))
		return
	}
	log.Debug("sweep done", slog.String("job", name), slog.Duration("took", time.Since(start)))
}
