package model

import "time"

// Lifecycle event kinds published to Kafka through the outbox.
const (
	EventMessageCreated   = "message.created"
	EventMessageDelivered = "message.delivered"
	EventMessageSent      = "message.sent"
	EventMessageFailed    = "message.failed"
	EventMessageCancelled = "message.cancelled"
)

// EnvelopeFor builds the lifecycle envelope for a message snapshot.
func EnvelopeFor(event string, m Message, at time.Time) Envelope {
	return Envelope{
		Event:      event,
		MessageID:  m.ID,
		ContactID:  m.ContactID,
		Channel:    m.Channel,
		Direction:  m.Direction,
		Status:     m.Status,
		OccurredAt: at,
	}
}

// Envelope is the payload relayed from the outbox to Kafka and archived
// into ClickHouse by the event archiver.
type Envelope struct {
	Event      string        `json:"event"`
	MessageID  string        `json:"message_id"`
	ContactID  string        `json:"contact_id"`
	Channel    Channel       `json:"channel"`
	Direction  Direction     `json:"direction"`
	Status     MessageStatus `json:"status"`
	OccurredAt time.Time     `json:"occurred_at"`
}
