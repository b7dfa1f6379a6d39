package grpc

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"agenda/backend/internal/domain"
	"agenda/backend/internal/scheduling"
)

func toProtoAppointment(a domain.Appointment) *Appointment {
	out := &Appointment{
		ID:                 a.ID.String(),
		PatientRef:         a.PatientRef,
		SessionTypeRef:     a.SessionTypeRef,
		DurationMinutes:    int32(a.DurationMinutes),
		StartTime:          NewTimestamp(a.StartTime),
		EndTime:            NewTimestamp(a.EndTime),
		Status:             string(a.Status),
		CancellationToken:  a.CancellationToken,
		SessionLink:        a.SessionLink,
		CancelledBy:        a.CancelledBy,
		CancellationReason: a.CancellationReason,
		CreatedAt:          NewTimestamp(a.CreatedAt),
		UpdatedAt:          NewTimestamp(a.UpdatedAt),
	}
	if a.SeriesID != nil {
		out.SeriesID = a.SeriesID.String()
	}
	if a.CancelledAt != nil {
		out.CancelledAt = NewTimestamp(*a.CancelledAt)
	}
	return out
}

func toProtoAppointments(appts []domain.Appointment) []*Appointment {
	out := make([]*Appointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, toProtoAppointment(a))
	}
	return out
}

func toProtoSlots(slots []scheduling.Slot) []*Slot {
	out := make([]*Slot, 0, len(slots))
	for _, s := range slots {
		out = append(out, &Slot{
			Time:      s.Time.String(),
			StartTime: NewTimestamp(s.Start),
			EndTime:   NewTimestamp(s.End),
			Available: s.Available,
		})
	}
	return out
}

func toProtoSeries(s domain.RecurringSeries) *RecurringSeries {
	out := &RecurringSeries{
		ID:              s.ID.String(),
		PatientRef:      s.PatientRef,
		SessionTypeRef:  s.SessionTypeRef,
		DurationMinutes: int32(s.DurationMinutes),
		DayOfWeek:       int32(s.DayOfWeek),
		StartTime:       s.StartTime.String(),
		Frequency:       string(s.Frequency),
		StartDate:       civil.DateOf(s.StartDate).String(),
		Active:          s.Active,
	}
	if s.EndDate != nil {
		out.EndDate = civil.DateOf(*s.EndDate).String()
	}
	return out
}

func toProtoAvailability(a domain.WeeklyAvailability) *Availability {
	return &Availability{
		ID:        a.ID.String(),
		DayOfWeek: int32(a.DayOfWeek),
		StartTime: a.StartTime.String(),
		EndTime:   a.EndTime.String(),
		Active:    a.Active,
	}
}

func toProtoBlock(b domain.Block) *Block {
	return &Block{
		ID:        b.ID.String(),
		StartTime: NewTimestamp(b.StartTime),
		EndTime:   NewTimestamp(b.EndTime),
		Type:      string(b.Type),
		Reason:    b.Reason,
	}
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (civil.Date, bool) {
	d, err := civil.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

func parseWeekday(v int32) (time.Weekday, bool) {
	if v < 0 || v > 6 {
		return 0, false
	}
	return time.Weekday(v), true
}

func asTime(ts *Timestamp) (time.Time, bool) {
	if ts == nil || ts.Timestamp == nil {
		return time.Time{}, false
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, false
	}
	return ts.AsTime(), true
}
