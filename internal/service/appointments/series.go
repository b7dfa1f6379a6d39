package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/store"
)

type SeriesInput struct {
	PatientRef      string
	SessionTypeRef  string
	DurationMinutes int
	DayOfWeek       time.Weekday
	StartTime       domain.TimeOfDay
	Frequency       domain.RecurrenceFrequency
	StartDate       civil.Date
	EndDate         *civil.Date
}

// SeriesPreview is the expansion of a series request together with its
// conflict report.
type SeriesPreview struct {
	Occurrences []domain.TimeInterval
	Report      scheduling.BulkReport
}

// CheckSeriesConflicts expands the series and reports every occurrence that
// collides with an appointment or block. Nothing is written.
func (s *Service) CheckSeriesConflicts(ctx context.Context, in SeriesInput) (SeriesPreview, error) {
	_, occs, err := s.prepareSeries(ctx, s.repo, in, s.now())
	if err != nil {
		return SeriesPreview{}, err
	}
	report, err := scheduling.NewAdmission(s.policy, s.repo).CheckBulkConflicts(ctx, occs)
	if err != nil {
		return SeriesPreview{}, err
	}
	return SeriesPreview{Occurrences: occs, Report: report}, nil
}

// CreateSeries records the series and all of its occurrences, or nothing if
// any occurrence conflicts.
func (s *Service) CreateSeries(ctx context.Context, in SeriesInput) (domain.RecurringSeries, []domain.Appointment, error) {
	now := s.now()
	var (
		series domain.RecurringSeries
		appts  []domain.Appointment
	)
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		template, occs, err := s.prepareSeries(ctx, tx, in, now)
		if err != nil {
			return err
		}

		report, err := scheduling.NewAdmission(s.policy, tx).CheckBulkConflicts(ctx, occs)
		if err != nil {
			return err
		}
		if report.HasConflicts {
			return &ConflictError{
				Kind:        report.Conflicts[0].Kind,
				Message:     fmt.Sprintf("%d of %d occurrences conflict", report.ConflictCount(), report.Total),
				Occurrences: report.Conflicts,
			}
		}

		series, err = tx.CreateRecurringSeries(ctx, template)
		if err != nil {
			return err
		}
		appts = make([]domain.Appointment, 0, len(occs))
		for _, iv := range occs {
			a, err := tx.CreateAppointment(ctx, domain.Appointment{
				PatientRef:        series.PatientRef,
				SessionTypeRef:    series.SessionTypeRef,
				DurationMinutes:   series.DurationMinutes,
				StartTime:         iv.Start,
				EndTime:           iv.End,
				Status:            domain.StatusConfirmed,
				SeriesID:          &series.ID,
				CancellationToken: domain.NewCancellationToken(),
			})
			if err != nil {
				return err
			}
			appts = append(appts, a)
		}
		return nil
	})
	if err != nil {
		return domain.RecurringSeries{}, nil, translate(err)
	}

	for _, a := range appts {
		s.afterCommit(ctx, a, domain.TriggerBookingConfirmation, a.Interval())
	}
	return series, appts, nil
}

// CancelSeries deactivates the series and cancels its future active
// occurrences. Past occurrences keep their status.
func (s *Service) CancelSeries(ctx context.Context, id uuid.UUID, reason string) (int, error) {
	if id == uuid.Nil {
		return 0, validationError("series_id is required")
	}

	now := s.now()
	var cancelled []domain.Appointment
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		series, err := tx.GetRecurringSeries(ctx, id)
		if err != nil {
			return err
		}
		future, err := tx.ListActiveSeriesAppointments(ctx, id, now)
		if err != nil {
			return err
		}
		for _, a := range future {
			markCancelled(&a, domain.StatusCancelled, now, "admin", reason)
			updated, err := tx.UpdateAppointment(ctx, a)
			if err != nil {
				return err
			}
			cancelled = append(cancelled, updated)
		}
		series.Active = false
		_, err = tx.UpdateRecurringSeries(ctx, series)
		return err
	})
	if err != nil {
		return 0, translate(err)
	}

	for _, a := range cancelled {
		s.afterCommit(ctx, a, domain.TriggerCancellation, a.Interval())
	}
	return len(cancelled), nil
}

// CancelOccurrence cancels a single appointment of a series on behalf of the
// provider. The series stays active.
func (s *Service) CancelOccurrence(ctx context.Context, appointmentID uuid.UUID, reason string) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	now := s.now()
	var out domain.Appointment
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		a, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if a.SeriesID == nil {
			return validationError("appointment does not belong to a series")
		}
		if !scheduling.IsCancellable(a) {
			return rejection(scheduling.Decision{Kind: scheduling.KindNotCancellable})
		}
		markCancelled(&a, domain.StatusCancelled, now, "admin", reason)
		out, err = tx.UpdateAppointment(ctx, a)
		return err
	})
	if err != nil {
		return domain.Appointment{}, translate(err)
	}
	s.afterCommit(ctx, out, domain.TriggerCancellation, out.Interval())
	return out, nil
}

// SeriesDetail is a series together with every appointment it generated,
// cancelled ones included.
type SeriesDetail struct {
	Series       domain.RecurringSeries
	Appointments []domain.Appointment
}

func (s *Service) ListSeries(ctx context.Context, activeOnly bool) ([]domain.RecurringSeries, error) {
	return s.repo.ListRecurringSeries(ctx, activeOnly)
}

func (s *Service) GetSeries(ctx context.Context, id uuid.UUID) (SeriesDetail, error) {
	if id == uuid.Nil {
		return SeriesDetail{}, validationError("series_id is required")
	}
	series, err := s.repo.GetRecurringSeries(ctx, id)
	if err != nil {
		return SeriesDetail{}, err
	}
	appts, err := s.repo.ListSeriesAppointments(ctx, id)
	if err != nil {
		return SeriesDetail{}, err
	}
	return SeriesDetail{Series: series, Appointments: appts}, nil
}

// prepareSeries validates in against the calendar read through reader and
// returns the series template with its occurrence intervals.
func (s *Service) prepareSeries(ctx context.Context, reader scheduling.CalendarReader, in SeriesInput, now time.Time) (domain.RecurringSeries, []domain.TimeInterval, error) {
	patientRef := strings.TrimSpace(in.PatientRef)
	if patientRef == "" {
		return domain.RecurringSeries{}, nil, validationError("patient_ref is required")
	}
	sessionTypeRef := strings.TrimSpace(in.SessionTypeRef)
	if sessionTypeRef == "" {
		return domain.RecurringSeries{}, nil, validationError("session_type_ref is required")
	}
	if in.DurationMinutes <= 0 {
		return domain.RecurringSeries{}, nil, validationError("duration_minutes must be positive")
	}
	if in.DurationMinutes > maxSessionMinutes {
		return domain.RecurringSeries{}, nil, validationError("duration too long")
	}
	frequency := in.Frequency
	if frequency == "" {
		frequency = domain.RecurrenceFrequencyWeekly
	}
	if frequency.StepDays() == 0 {
		return domain.RecurringSeries{}, nil, validationError("unsupported frequency")
	}
	if in.DayOfWeek < time.Sunday || in.DayOfWeek > time.Saturday {
		return domain.RecurringSeries{}, nil, validationError("invalid weekday")
	}
	if !in.StartTime.Valid() || in.StartTime >= domain.EndOfDay {
		return domain.RecurringSeries{}, nil, validationError("invalid start_time")
	}
	if !in.StartDate.IsValid() {
		return domain.RecurringSeries{}, nil, validationError("start_date is required")
	}
	if in.StartDate.Before(s.policy.DateOf(now)) {
		return domain.RecurringSeries{}, nil, validationError("start_date cannot be in the past")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return domain.RecurringSeries{}, nil, &ConflictError{
			Kind:    scheduling.KindInvalidRange,
			Message: "end_date must not be before start_date",
		}
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute
	entries, err := reader.FindActiveAvailability(ctx, in.DayOfWeek)
	if err != nil {
		return domain.RecurringSeries{}, nil, err
	}
	within := false
	for _, e := range entries {
		if e.Active && e.Admits(in.StartTime, duration) {
			within = true
			break
		}
	}
	if !within {
		return domain.RecurringSeries{}, nil, rejection(scheduling.Decision{Kind: scheduling.KindOutsideAvailability})
	}

	series := domain.RecurringSeries{
		PatientRef:      patientRef,
		SessionTypeRef:  sessionTypeRef,
		DurationMinutes: in.DurationMinutes,
		DayOfWeek:       in.DayOfWeek,
		StartTime:       in.StartTime,
		Frequency:       frequency,
		StartDate:       domain.DateColumn(in.StartDate),
		Active:          true,
	}
	if in.EndDate != nil {
		end := domain.DateColumn(*in.EndDate)
		series.EndDate = &end
	}

	starts, err := domain.ExpandOccurrences(series.Rule(s.policy.Loc()), now, s.policy.MaxAdvanceDays)
	if err != nil {
		return domain.RecurringSeries{}, nil, validationError(err.Error())
	}
	if len(starts) == 0 {
		return domain.RecurringSeries{}, nil, validationError("recurrence rule produces no occurrences")
	}
	return series, domain.OccurrenceIntervals(starts, duration), nil
}
