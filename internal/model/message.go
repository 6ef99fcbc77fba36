package model

import (
	"database/sql"
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

func (d Direction) String() string { return string(d) }

func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

type MessageStatus string

const (
	StatusScheduled MessageStatus = "scheduled"
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
	StatusCancelled MessageStatus = "cancelled"
)

func (s MessageStatus) String() string { return string(s) }

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusSending, StatusSent, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further status transition is legal.
func (s MessageStatus) Terminal() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is a legal move on the
// outbound state machine: scheduled -> sending -> {sent, failed},
// scheduled -> cancelled.
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	switch s {
	case StatusScheduled:
		return to == StatusSending || to == StatusCancelled
	case StatusSending:
		return to == StatusSent || to == StatusFailed
	default:
		return false
	}
}

// Message is the DB entity persisted in the messages table.
type Message struct {
	ID                string         `db:"id" json:"id"`
	ContactID         string         `db:"contact_id" json:"contact_id"`
	Channel           Channel        `db:"channel" json:"channel"`
	Direction         Direction      `db:"direction" json:"direction"`
	Content           string         `db:"content" json:"content"`
	MediaURL          sql.NullString `db:"media_url" json:"media_url,omitempty"`
	Status            MessageStatus  `db:"status" json:"status"`
	ScheduledFor      sql.NullTime   `db:"scheduled_for" json:"scheduled_for,omitempty"`
	IsRead            bool           `db:"is_read" json:"is_read"`
	SentBy            sql.NullInt64  `db:"sent_by" json:"sent_by,omitempty"`
	ProviderMessageID sql.NullString `db:"provider_message_id" json:"provider_message_id,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
