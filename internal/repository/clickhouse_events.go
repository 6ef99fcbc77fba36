package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

// StatusCount is a grouped rollup row from the events table.
type StatusCount struct {
	Key   string `db:"k" json:"key"`
	Count int64  `db:"cnt" json:"count"`
}

// DayCount is a per-day message volume row.
type DayCount struct {
	Day   time.Time `db:"day" json:"day"`
	Count int64     `db:"cnt" json:"count"`
}

// CHEventsRepository is the ClickHouse side of the lifecycle event
// pipeline: the archiver inserts envelopes, the analytics endpoint reads
// rollups.
type CHEventsRepository interface {
	InsertBatch(ctx context.Context, envs []model.Envelope) error
	CountBy(ctx context.Context, column string, since time.Time) ([]StatusCount, error)
	PerDay(ctx context.Context, since time.Time) ([]DayCount, error)
}

type chEventsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHEventsRepository(ch *sqlx.DB) CHEventsRepository {
	return &chEventsRepository{ch: ch}
}

func (r *chEventsRepository) InsertBatch(ctx context.Context, envs []model.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	const q = `
		INSERT INTO inboxgw.message_events
		    (event, message_id, contact_id, channel, direction, status, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range envs {
		if _, err := tx.ExecContext(ctx, q,
			e.Event, e.MessageID, e.ContactID, e.Channel.String(),
			e.Direction.String(), e.Status.String(), e.OccurredAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountBy groups created-events by channel, direction or status.
func (r *chEventsRepository) CountBy(ctx context.Context, column string, since time.Time) ([]StatusCount, error) {
	switch column {
	case "channel", "direction", "status":
	default:
		column = "channel"
	}

	q := `
		SELECT ` + column + ` AS k, count() AS cnt
		FROM inboxgw.message_events
		WHERE occurred_at >= ?
		GROUP BY k
		ORDER BY cnt DESC
	`
	var rows []StatusCount
	if err := r.ch.SelectContext(ctx, &rows, q, since); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chEventsRepository) PerDay(ctx context.Context, since time.Time) ([]DayCount, error) {
	const q = `
		SELECT toStartOfDay(occurred_at) AS day, count() AS cnt
		FROM inboxgw.message_events
		WHERE occurred_at >= ?
		GROUP BY day
		ORDER BY day ASC
	`
	var rows []DayCount
	if err := r.ch.SelectContext(ctx, &rows, q, since); err != nil {
		return nil, err
	}
	return rows, nil
}
