package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("not found")

// MessageFilter narrows List results.
type MessageFilter struct {
	ContactID string
	Channel   model.Channel
	Limit     int
	Offset    int
}

// MessagesRepository defines persistence for the messages table. The
// conditional TransitionStatus update is the claim primitive that keeps
// overlapping scheduler ticks from dispatching the same row twice.
type MessagesRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, m model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	List(ctx context.Context, f MessageFilter) ([]model.Message, error)

	// DueScheduled returns rows with status=scheduled and scheduled_for <= now.
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Message, error)
	// ListScheduledAfter returns upcoming scheduled rows, soonest first.
	ListScheduledAfter(ctx context.Context, now time.Time) ([]model.Message, error)

	// TransitionStatus performs the guarded single-row update
	// "SET status=to WHERE id=? AND status=from" and reports whether a
	// row was actually changed.
	TransitionStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.MessageStatus) (bool, error)
	// MarkTerminal writes a terminal status plus the provider message id
	// when available.
	MarkTerminal(ctx context.Context, tx *sqlx.Tx, id string, status model.MessageStatus, providerMessageID string) error

	UnreadCount(ctx context.Context) (int64, error)
	UnreadByContact(ctx context.Context) (map[string]int64, error)
	MarkRead(ctx context.Context, ids []string) error
	MarkContactRead(ctx context.Context, contactID string) error
}

type MessagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMessagesRepository(db *sqlx.DB) *MessagesRepositoryImpl {
	return &MessagesRepositoryImpl{db: db}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

func (r *MessagesRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *MessagesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, m model.Message) error {
	const q = `
		INSERT INTO messages
		    (id, contact_id, channel, direction, content, media_url, status,
		     scheduled_for, is_read, sent_by, provider_message_id, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			m.ID, m.ContactID, m.Channel.String(), m.Direction.String(), m.Content,
			m.MediaURL, m.Status.String(), m.ScheduledFor, m.IsRead, m.SentBy, m.ProviderMessageID,
		)
		return err
	})
}

func (r *MessagesRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := r.db.GetContext(ctx, &m, `SELECT * FROM messages WHERE id = ? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessagesRepositoryImpl) List(ctx context.Context, f MessageFilter) ([]model.Message, error) {
	q := `SELECT * FROM messages WHERE 1=1`
	args := []any{}
	if f.ContactID != "" {
		q += ` AND contact_id = ?`
		args = append(args, f.ContactID)
	}
	if f.Channel != "" {
		q += ` AND channel = ?`
		args = append(args, f.Channel.String())
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	msgs := []model.Message{}
	if err := r.db.SelectContext(ctx, &msgs, q, args...); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MessagesRepositoryImpl) DueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	msgs := []model.Message{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		 WHERE status = 'scheduled' AND scheduled_for <= ?
		 ORDER BY scheduled_for ASC
		 LIMIT ?
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MessagesRepositoryImpl) ListScheduledAfter(ctx context.Context, now time.Time) ([]model.Message, error) {
	msgs := []model.Message{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		 WHERE status = 'scheduled' AND scheduled_for > ?
		 ORDER BY scheduled_for ASC
	`, now)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MessagesRepositoryImpl) TransitionStatus(ctx context.Context, tx *sqlx.Tx, id string, from, to model.MessageStatus) (bool, error) {
	const q = `UPDATE messages SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?`
	var affected int64
	err := r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, to.String(), id, from.String())
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *MessagesRepositoryImpl) MarkTerminal(ctx context.Context, tx *sqlx.Tx, id string, status model.MessageStatus, providerMessageID string) error {
	const q = `
		UPDATE messages
		   SET status = ?,
		       provider_message_id = COALESCE(NULLIF(?, ''), provider_message_id),
		       updated_at = NOW()
		 WHERE id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, status.String(), providerMessageID, id)
		return err
	})
}

func (r *MessagesRepositoryImpl) UnreadCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM messages
		 WHERE direction = 'inbound' AND is_read = 0
	`)
	return n, err
}

func (r *MessagesRepositoryImpl) UnreadByContact(ctx context.Context) (map[string]int64, error) {
	rows := []struct {
		ContactID string `db:"contact_id"`
		Count     int64  `db:"cnt"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT contact_id, COUNT(*) AS cnt
		  FROM messages
		 WHERE direction = 'inbound' AND is_read = 0
		 GROUP BY contact_id
	`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ContactID] = row.Count
	}
	return out, nil
}

func (r *MessagesRepositoryImpl) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `UPDATE messages SET is_read = 1, updated_at = NOW() WHERE id IN (?)`
	query, args, err := sqlx.In(base, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *MessagesRepositoryImpl) MarkContactRead(ctx context.Context, contactID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1, updated_at = NOW()
		 WHERE contact_id = ? AND direction = 'inbound' AND is_read = 0
	`, contactID)
	return err
}
