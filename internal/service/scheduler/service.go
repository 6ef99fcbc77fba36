package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/metrics"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"go.uber.org/zap"
)

// ErrNotScheduled is returned when cancelling a message that already
// left the scheduled state (claimed, terminal, or unknown transition).
var ErrNotScheduled = errors.New("message is not scheduled")

// Store is the slice of the message store the scheduler needs.
// Satisfied by *repository.Store.
type Store interface {
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Message, error)
	ListScheduledAfter(ctx context.Context, now time.Time) ([]model.Message, error)
	ClaimScheduled(ctx context.Context, id string) (bool, error)
	CancelScheduled(ctx context.Context, m model.Message) (bool, error)
	GetMessage(ctx context.Context, id string) (*model.Message, error)
}

// Deliverer runs capability check, adapter call and terminal persist for
// a claimed message. Satisfied by *dispatch.Service.
type Deliverer interface {
	Deliver(ctx context.Context, m model.Message) (model.Message, error)
}

// Service drains due scheduled messages. Tick is invoked by an external
// periodic trigger and is safe under overlapping invocation: the
// conditional claim guarantees each row is dispatched at most once.
type Service struct {
	store      Store
	deliverer  Deliverer
	batchLimit int
	log        *zap.Logger
}

func New(store Store, deliverer Deliverer, batchLimit int, log *zap.Logger) *Service {
	if batchLimit <= 0 {
		batchLimit = 100
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, deliverer: deliverer, batchLimit: batchLimit, log: log}
}

// Tick processes every scheduled message due at now and returns the
// number of candidates this invocation claimed. A failure on one message
// never aborts the rest of the batch.
func (s *Service) Tick(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.DueScheduled(ctx, now, s.batchLimit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, msg := range due {
		claimed, err := s.store.ClaimScheduled(ctx, msg.ID)
		if err != nil {
			s.log.Error("claim failed", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		if !claimed {
			// another tick got there first; silent skip
			continue
		}
		processed++
		metrics.SchedulerClaimed.Inc()

		msg.Status = model.StatusSending
		if _, err := s.deliverer.Deliver(ctx, msg); err != nil {
			// store failure while persisting the outcome; the next
			// candidate still gets its chance
			s.log.Error("deliver failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	if processed > 0 {
		s.log.Info("tick complete", zap.Int("processed", processed), zap.Int("due", len(due)))
	}

	return processed, nil
}

// ListScheduled returns the upcoming scheduled messages, soonest first.
func (s *Service) ListScheduled(ctx context.Context, now time.Time) ([]model.Message, error) {
	return s.store.ListScheduledAfter(ctx, now)
}

// Cancel cancels a message only while it is still scheduled. A message
// already claimed or terminal is rejected with ErrNotScheduled and left
// unchanged.
func (s *Service) Cancel(ctx context.Context, id string) (model.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		return model.Message{}, err
	}

	ok, err := s.store.CancelScheduled(ctx, *msg)
	if err != nil {
		return model.Message{}, err
	}
	if !ok {
		return model.Message{}, ErrNotScheduled
	}

	msg.Status = model.StatusCancelled
	metrics.MessagesTotal.WithLabelValues("cancelled", msg.Channel.String()).Inc()
	return *msg, nil
}
