package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type NotificationTrigger string

const (
	TriggerBookingConfirmation NotificationTrigger = "booking_confirmation"
	TriggerReminder24h         NotificationTrigger = "reminder_24h"
	TriggerReminder2h          NotificationTrigger = "reminder_2h"
	TriggerCancellation        NotificationTrigger = "cancellation"
	TriggerReschedule          NotificationTrigger = "reschedule"
)

type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// NotificationLog records one delivery attempt per appointment, trigger and channel.
type NotificationLog struct {
	bun.BaseModel `bun:"table:notification_log"`

	ID            uuid.UUID           `bun:"id,pk,type:uuid"`
	AppointmentID uuid.UUID           `bun:"appointment_id,notnull,type:uuid"`
	Trigger       NotificationTrigger `bun:"trigger,notnull"`
	Channel       string              `bun:"channel,notnull"`
	Status        NotificationStatus  `bun:"status,notnull"`
	Error         string              `bun:"error"`
	CreatedAt     time.Time           `bun:"created_at,notnull"`
	UpdatedAt     time.Time           `bun:"updated_at,notnull"`
}

func (n *NotificationLog) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stamp(query, &n.ID, &n.CreatedAt, &n.UpdatedAt)
}
