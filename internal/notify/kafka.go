package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"agenda/backend/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Event is the payload published for every trigger. Downstream workers turn
// it into emails or chat messages.
type Event struct {
	Trigger           domain.NotificationTrigger `json:"trigger"`
	AppointmentID     string                     `json:"appointment_id"`
	PatientRef        string                     `json:"patient_ref"`
	SessionTypeRef    string                     `json:"session_type_ref"`
	Status            domain.AppointmentStatus   `json:"status"`
	StartTime         time.Time                  `json:"start_time"`
	EndTime           time.Time                  `json:"end_time"`
	CancellationToken string                     `json:"cancellation_token"`
	SessionLink       string                     `json:"session_link,omitempty"`
	OccurredAt        time.Time                  `json:"occurred_at"`
}

func NewEvent(appt domain.Appointment, trigger domain.NotificationTrigger, now time.Time) Event {
	return Event{
		Trigger:           trigger,
		AppointmentID:     appt.ID.String(),
		PatientRef:        appt.PatientRef,
		SessionTypeRef:    appt.SessionTypeRef,
		Status:            appt.Status,
		StartTime:         appt.StartTime.UTC(),
		EndTime:           appt.EndTime.UTC(),
		CancellationToken: appt.CancellationToken,
		SessionLink:       appt.SessionLink,
		OccurredAt:        now.UTC(),
	}
}

// KafkaChannel publishes one message per trigger, keyed by appointment id so
// events of one appointment stay ordered within a partition.
type KafkaChannel struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaChannel(w messageWriter) *KafkaChannel {
	return &KafkaChannel{writer: w, now: time.Now}
}

func (c *KafkaChannel) Name() string { return "kafka" }

func (c *KafkaChannel) Send(ctx context.Context, appt domain.Appointment, trigger domain.NotificationTrigger) error {
	payload, err := json.Marshal(NewEvent(appt, trigger, c.now()))
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(appt.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(trigger)},
		},
	})
}

// NewKafkaWriter returns a writer for topic, or nil when no brokers are set.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(list...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
