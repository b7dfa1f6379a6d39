package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/service/appointments"
)

type BookingServer struct {
	appts appointmentsService
	slots slotsService
	log   *slog.Logger
}

type appointmentsService interface {
	Book(ctx context.Context, in appointments.BookInput) (domain.Appointment, error)
	AdminBook(ctx context.Context, in appointments.AdminBookInput) (domain.Appointment, error)
	GetByToken(ctx context.Context, token string) (domain.Appointment, error)
	Reschedule(ctx context.Context, token string, newStart time.Time) (domain.Appointment, error)
	CancelByToken(ctx context.Context, token, reason string) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, in appointments.StatusUpdate) (domain.Appointment, error)
	List(ctx context.Context, windowStart, windowEnd time.Time, includeCancelled bool) ([]domain.Appointment, error)
	CheckSeriesConflicts(ctx context.Context, in appointments.SeriesInput) (appointments.SeriesPreview, error)
	CreateSeries(ctx context.Context, in appointments.SeriesInput) (domain.RecurringSeries, []domain.Appointment, error)
	CancelSeries(ctx context.Context, id uuid.UUID, reason string) (int, error)
	CancelOccurrence(ctx context.Context, appointmentID uuid.UUID, reason string) (domain.Appointment, error)
	ListSeries(ctx context.Context, activeOnly bool) ([]domain.RecurringSeries, error)
	GetSeries(ctx context.Context, id uuid.UUID) (appointments.SeriesDetail, error)
}

type slotsService interface {
	DaySlots(ctx context.Context, date civil.Date, durationMinutes int) ([]scheduling.Slot, error)
	RangeSlots(ctx context.Context, start, end civil.Date, durationMinutes int) ([]scheduling.DaySlots, error)
}

func NewBookingServer(appts appointmentsService, slots slotsService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		appts: appts,
		slots: slots,
		log:   log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) GetDaySlots(ctx context.Context, req *GetDaySlotsRequest) (*GetDaySlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetDaySlots"))

	date, ok := parseDate(req.Date)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_date", "date must be YYYY-MM-DD")
	}
	slots, err := s.slots.DaySlots(ctx, date, int(req.DurationMinutes))
	if err != nil {
		return nil, toStatus(ctx, log, "day slots", err, slog.String("date", req.Date))
	}

	log.DebugContext(ctx, "slots listed", slog.String("date", req.Date), slog.Int("count", len(slots)))
	return &GetDaySlotsResponse{Date: date.String(), Slots: toProtoSlots(slots)}, nil
}

func (s *BookingServer) GetRangeSlots(ctx context.Context, req *GetRangeSlotsRequest) (*GetRangeSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "GetRangeSlots"))

	start, ok := parseDate(req.StartDate)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_start_date", "start_date must be YYYY-MM-DD")
	}
	end, ok := parseDate(req.EndDate)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_end_date", "end_date must be YYYY-MM-DD")
	}
	days, err := s.slots.RangeSlots(ctx, start, end, int(req.DurationMinutes))
	if err != nil {
		return nil, toStatus(ctx, log, "range slots", err, slog.String("start_date", req.StartDate), slog.String("end_date", req.EndDate))
	}

	out := make([]*GetDaySlotsResponse, 0, len(days))
	for _, d := range days {
		out = append(out, &GetDaySlotsResponse{Date: d.Date.String(), Slots: toProtoSlots(d.Slots)})
	}
	return &GetRangeSlotsResponse{Days: out}, nil
}

func (s *BookingServer) BookAppointment(ctx context.Context, req *BookAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "BookAppointment"))

	start, ok := asTime(req.StartTime)
	if !ok {
		return nil, invalidArgument(ctx, log, "missing_start_time", "start_time is required")
	}

	appt, err := s.appts.Book(ctx, appointments.BookInput{
		PatientRef:      req.PatientRef,
		SessionTypeRef:  req.SessionTypeRef,
		DurationMinutes: int(req.DurationMinutes),
		StartTime:       start,
		IdempotencyKey:  idempotencyKey(ctx),
	})
	if err != nil {
		return nil, toStatus(ctx, log, "appointment booking", err,
			slog.String("patient_ref", req.PatientRef),
			slog.Time("start_time", start),
		)
	}

	log.InfoContext(ctx, "appointment booked",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("patient_ref", appt.PatientRef),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.EndTime),
	)
	return &AppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *BookingServer) AdminBookAppointment(ctx context.Context, req *AdminBookAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "AdminBookAppointment"))

	start, ok := asTime(req.StartTime)
	if !ok {
		return nil, invalidArgument(ctx, log, "missing_start_time", "start_time is required")
	}

	appt, err := s.appts.AdminBook(ctx, appointments.AdminBookInput{
		PatientRef:      req.PatientRef,
		SessionTypeRef:  req.SessionTypeRef,
		DurationMinutes: int(req.DurationMinutes),
		StartTime:       start,
		Status:          domain.AppointmentStatus(req.Status),
		SessionLink:     req.SessionLink,
	})
	if err != nil {
		return nil, toStatus(ctx, log, "admin booking", err,
			slog.String("patient_ref", req.PatientRef),
			slog.Time("start_time", start),
		)
	}

	log.InfoContext(ctx, "appointment booked by admin",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_time", appt.StartTime),
	)
	return &AppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *BookingServer) GetAppointment(ctx context.Context, req *GetAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAppointment"))

	appt, err := s.appts.GetByToken(ctx, req.CancellationToken)
	if err != nil {
		return nil, toStatus(ctx, log, "appointment lookup", err)
	}
	return &AppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *BookingServer) RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "RescheduleAppointment"))

	start, ok := asTime(req.StartTime)
	if !ok {
		return nil, invalidArgument(ctx, log, "missing_start_time", "start_time is required")
	}

	appt, err := s.appts.Reschedule(ctx, req.CancellationToken, start)
	if err != nil {
		return nil, toStatus(ctx, log, "reschedule", err, slog.Time("start_time", start))
	}

	log.InfoContext(ctx, "appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.Time("start_time", appt.StartTime),
	)
	return &AppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *BookingServer) CancelAppointment(ctx context.Context, req *CancelAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	appt, err := s.appts.CancelByToken(ctx, req.CancellationToken, req.Reason)
	if err != nil {
		return nil, toStatus(ctx, log, "cancellation", err)
	}

	log.InfoContext(ctx, "appointment cancelled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("status", string(appt.Status)),
	)
	return &AppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *BookingServer) UpdateAppointmentStatus(ctx context.Context, req *UpdateAppointmentStatusRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateAppointmentStatus"))

	id, ok := parseID(req.AppointmentID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "appointment_id must be a UUID")
	}

	appt, err := s.appts.UpdateStatus(ctx, id, appointments.StatusUpdate{
		Status:      domain.AppointmentStatus(req.Status),
		Reason:      req.Reason,
		SessionLink: req.SessionLink,
	})
	if err != nil {
		return nil, toStatus(ctx, log, "status update", err, slog.String("appointment_id", id.String()))
	}

	log.InfoContext(ctx, "appointment status updated",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("status", string(appt.Status)),
	)
	return &AppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *BookingServer) ListAppointments(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListAppointments"))

	windowStart, okStart := asTime(req.WindowStart)
	windowEnd, okEnd := asTime(req.WindowEnd)
	if !okStart || !okEnd {
		return nil, invalidArgument(ctx, log, "missing_window", "window_start and window_end are required")
	}

	appts, err := s.appts.List(ctx, windowStart, windowEnd, req.IncludeCancelled)
	if err != nil {
		return nil, toStatus(ctx, log, "appointments list", err)
	}

	log.DebugContext(ctx, "appointments listed",
		slog.Int("count", len(appts)),
		slog.Time("window_start", windowStart),
		slog.Time("window_end", windowEnd),
	)
	return &ListAppointmentsResponse{Appointments: toProtoAppointments(appts)}, nil
}

func (s *BookingServer) CheckSeriesConflicts(ctx context.Context, req *SeriesRequest) (*CheckSeriesConflictsResponse, error) {
	log := s.log.With(slog.String("rpc", "CheckSeriesConflicts"))

	in, msg := seriesInput(req)
	if msg != "" {
		return nil, invalidArgument(ctx, log, "invalid_series", msg)
	}
	preview, err := s.appts.CheckSeriesConflicts(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, log, "series check", err, slog.String("patient_ref", req.PatientRef))
	}

	out := &CheckSeriesConflictsResponse{
		Total:         int32(preview.Report.Total),
		HasConflicts:  preview.Report.HasConflicts,
		ConflictCount: int32(preview.Report.ConflictCount()),
		Occurrences:   make([]*Occurrence, 0, len(preview.Occurrences)),
		Conflicts:     make([]*OccurrenceConflict, 0, len(preview.Report.Conflicts)),
	}
	for _, iv := range preview.Occurrences {
		out.Occurrences = append(out.Occurrences, &Occurrence{
			StartTime: NewTimestamp(iv.Start),
			EndTime:   NewTimestamp(iv.End),
		})
	}
	for _, c := range preview.Report.Conflicts {
		out.Conflicts = append(out.Conflicts, &OccurrenceConflict{
			Index:     int32(c.Index),
			StartTime: NewTimestamp(c.Interval.Start),
			EndTime:   NewTimestamp(c.Interval.End),
			Kind:      string(c.Kind),
			Reason:    c.Reason,
		})
	}
	return out, nil
}

func (s *BookingServer) CreateSeries(ctx context.Context, req *SeriesRequest) (*CreateSeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateSeries"))

	in, msg := seriesInput(req)
	if msg != "" {
		return nil, invalidArgument(ctx, log, "invalid_series", msg)
	}
	series, appts, err := s.appts.CreateSeries(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, log, "series create", err, slog.String("patient_ref", req.PatientRef))
	}

	log.InfoContext(ctx, "recurring series created",
		slog.String("series_id", series.ID.String()),
		slog.String("patient_ref", series.PatientRef),
		slog.Int("occurrences", len(appts)),
	)
	return &CreateSeriesResponse{Series: toProtoSeries(series), Appointments: toProtoAppointments(appts)}, nil
}

func (s *BookingServer) CancelSeries(ctx context.Context, req *CancelSeriesRequest) (*CancelSeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelSeries"))

	id, ok := parseID(req.SeriesID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "series_id must be a UUID")
	}
	n, err := s.appts.CancelSeries(ctx, id, req.Reason)
	if err != nil {
		return nil, toStatus(ctx, log, "series cancel", err, slog.String("series_id", id.String()))
	}

	log.InfoContext(ctx, "recurring series cancelled", slog.String("series_id", id.String()), slog.Int("cancelled", n))
	return &CancelSeriesResponse{CancelledCount: int32(n)}, nil
}

func (s *BookingServer) CancelOccurrence(ctx context.Context, req *CancelOccurrenceRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "CancelOccurrence"))

	id, ok := parseID(req.AppointmentID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "appointment_id must be a UUID")
	}
	appt, err := s.appts.CancelOccurrence(ctx, id, req.Reason)
	if err != nil {
		return nil, toStatus(ctx, log, "occurrence cancel", err, slog.String("appointment_id", id.String()))
	}

	log.InfoContext(ctx, "series occurrence cancelled", slog.String("appointment_id", appt.ID.String()))
	return &AppointmentResponse{Appointment: toProtoAppointment(appt)}, nil
}

func (s *BookingServer) ListSeries(ctx context.Context, req *ListSeriesRequest) (*ListSeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "ListSeries"))

	series, err := s.appts.ListSeries(ctx, req.ActiveOnly)
	if err != nil {
		return nil, toStatus(ctx, log, "series list", err)
	}

	out := &ListSeriesResponse{Series: make([]*RecurringSeries, 0, len(series))}
	for _, sr := range series {
		out.Series = append(out.Series, toProtoSeries(sr))
	}
	log.DebugContext(ctx, "recurring series listed", slog.Bool("active_only", req.ActiveOnly), slog.Int("count", len(series)))
	return out, nil
}

func (s *BookingServer) GetSeries(ctx context.Context, req *GetSeriesRequest) (*GetSeriesResponse, error) {
	log := s.log.With(slog.String("rpc", "GetSeries"))

	id, ok := parseID(req.SeriesID)
	if !ok {
		return nil, invalidArgument(ctx, log, "invalid_uuid", "series_id must be a UUID")
	}
	detail, err := s.appts.GetSeries(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, log, "series get", err, slog.String("series_id", id.String()))
	}
	return &GetSeriesResponse{
		Series:       toProtoSeries(detail.Series),
		Appointments: toProtoAppointments(detail.Appointments),
	}, nil
}

// seriesInput parses the wire form of a series. A non-empty message reports
// the first malformed field.
func seriesInput(req *SeriesRequest) (appointments.SeriesInput, string) {
	day, ok := parseWeekday(req.DayOfWeek)
	if !ok {
		return appointments.SeriesInput{}, "day_of_week must be between 0 (Sunday) and 6"
	}
	start, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return appointments.SeriesInput{}, "start_time must be HH:MM"
	}
	startDate, ok := parseDate(req.StartDate)
	if !ok {
		return appointments.SeriesInput{}, "start_date must be YYYY-MM-DD"
	}

	in := appointments.SeriesInput{
		PatientRef:      req.PatientRef,
		SessionTypeRef:  req.SessionTypeRef,
		DurationMinutes: int(req.DurationMinutes),
		DayOfWeek:       day,
		StartTime:       start,
		Frequency:       domain.RecurrenceFrequency(strings.ToLower(strings.TrimSpace(req.Frequency))),
		StartDate:       startDate,
	}
	if strings.TrimSpace(req.EndDate) != "" {
		end, ok := parseDate(req.EndDate)
		if !ok {
			return appointments.SeriesInput{}, "end_date must be YYYY-MM-DD"
		}
		in.EndDate = &end
	}
	return in, ""
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
