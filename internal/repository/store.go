package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

// EventsTopic is the Kafka topic lifecycle envelopes are relayed to.
const EventsTopic = "messages.events"

// Store bundles the message and outbox repositories behind the
// transactions the lifecycle needs: every message mutation and its
// lifecycle event land atomically, so the relay can never publish an
// event for a write that was rolled back.
type Store struct {
	db       *sqlx.DB
	messages MessagesRepository
	outbox   OutboxRepository
}

func NewStore(db *sqlx.DB, messages MessagesRepository, outbox OutboxRepository) *Store {
	return &Store{db: db, messages: messages, outbox: outbox}
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) appendEvent(ctx context.Context, tx *sqlx.Tx, event string, m model.Message) error {
	payload, err := json.Marshal(model.EnvelopeFor(event, m, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return s.outbox.Insert(ctx, tx, "message", m.ID, EventsTopic, payload)
}

// CreateMessage inserts the row and its lifecycle event in one transaction.
func (s *Store) CreateMessage(ctx context.Context, m model.Message, event string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.messages.Insert(ctx, tx, m); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return s.appendEvent(ctx, tx, event, m)
	})
}

// FinishMessage writes a terminal status plus its lifecycle event.
func (s *Store) FinishMessage(ctx context.Context, m model.Message, status model.MessageStatus, providerMessageID, event string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.messages.MarkTerminal(ctx, tx, m.ID, status, providerMessageID); err != nil {
			return fmt.Errorf("mark terminal: %w", err)
		}
		m.Status = status
		return s.appendEvent(ctx, tx, event, m)
	})
}

// ClaimScheduled attempts the guarded scheduled -> sending transition.
// False means another invocation already claimed the row.
func (s *Store) ClaimScheduled(ctx context.Context, id string) (bool, error) {
	return s.messages.TransitionStatus(ctx, nil, id, model.StatusScheduled, model.StatusSending)
}

// CancelScheduled cancels a message only while it is still scheduled.
// The cancelled event is written in the same transaction as the
// transition so a concurrent claim cannot produce a phantom event.
func (s *Store) CancelScheduled(ctx context.Context, m model.Message) (bool, error) {
	var ok bool
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		ok, err = s.messages.TransitionStatus(ctx, tx, m.ID, model.StatusScheduled, model.StatusCancelled)
		if err != nil || !ok {
			return err
		}
		m.Status = model.StatusCancelled
		return s.appendEvent(ctx, tx, model.EventMessageCancelled, m)
	})
	return ok, err
}

func (s *Store) DueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Message, error) {
	return s.messages.DueScheduled(ctx, now, limit)
}

func (s *Store) ListScheduledAfter(ctx context.Context, now time.Time) ([]model.Message, error) {
	return s.messages.ListScheduledAfter(ctx, now)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	return s.messages.GetByID(ctx, id)
}
