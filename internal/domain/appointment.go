package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	StatusScheduled     AppointmentStatus = "scheduled"
	StatusConfirmed     AppointmentStatus = "confirmed"
	StatusCancelled     AppointmentStatus = "cancelled"
	StatusCancelledLate AppointmentStatus = "cancelled_late"
	StatusAttended      AppointmentStatus = "attended"
	StatusNoShow        AppointmentStatus = "no_show"
)

// InactiveStatuses release the appointment's time range back to the calendar.
var InactiveStatuses = []AppointmentStatus{StatusCancelled, StatusCancelledLate}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCancelledLate, StatusAttended, StatusNoShow:
		return true
	}
	return false
}

func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled && s != StatusCancelledLate
}

func (s AppointmentStatus) Cancelled() bool {
	return !s.Active()
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID                 uuid.UUID         `bun:"id,pk,type:uuid"`
	PatientRef         string            `bun:"patient_ref,notnull"`
	SessionTypeRef     string            `bun:"session_type_ref,notnull"`
	DurationMinutes    int               `bun:"duration_minutes,notnull"`
	StartTime          time.Time         `bun:"start_time,notnull"`
	EndTime            time.Time         `bun:"end_time,notnull"`
	Status             AppointmentStatus `bun:"status,notnull"`
	SeriesID           *uuid.UUID        `bun:"series_id,type:uuid"`
	CancellationToken  string            `bun:"cancellation_token,notnull,unique"`
	SessionLink        string            `bun:"session_link"`
	CancelledAt        *time.Time        `bun:"cancelled_at"`
	CancelledBy        string            `bun:"cancelled_by"`
	CancellationReason string            `bun:"cancellation_reason"`
	CreatedAt          time.Time         `bun:"created_at,notnull"`
	UpdatedAt          time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (a Appointment) Interval() TimeInterval {
	return TimeInterval{Start: a.StartTime, End: a.EndTime}
}

func (a Appointment) IsActive() bool {
	return a.Status.Active()
}

// NewCancellationToken returns an opaque token that lets the patient manage
// a booking without authenticating.
func NewCancellationToken() string {
	return uuid.NewString()
}
