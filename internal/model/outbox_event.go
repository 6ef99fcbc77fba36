package model

import (
	"database/sql"
	"time"
)

// OutboxEvent is a lifecycle event row written in the same transaction
// as the message mutation it describes. The relay worker publishes rows
// to Kafka and stamps published_at.
type OutboxEvent struct {
	ID          int64        `db:"id"`
	Aggregate   string       `db:"aggregate"`    // e.g. "message"
	AggregateID string       `db:"aggregate_id"` // message ULID
	Topic       string       `db:"topic"`
	Payload     []byte       `db:"payload"`
	PublishedAt sql.NullTime `db:"published_at"`
	CreatedAt   time.Time    `db:"created_at"`
}
