package worker

import (
	"context"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/kafka"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"go.uber.org/zap"
)

// Relay drains the outbox table into Kafka: fetch unpublished rows,
// publish, stamp published_at. At-least-once; the archiver side dedupes.
type Relay struct {
	Outbox   repository.OutboxRepository
	Producer *kafka.Producer
	Log      *zap.Logger

	BatchSize int
	Interval  time.Duration
}

func NewRelay(outbox repository.OutboxRepository, producer *kafka.Producer, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		Outbox:    outbox,
		Producer:  producer,
		Log:       log,
		BatchSize: 200,
		Interval:  time.Second,
	}
}

// Run blocks until ctx is cancelled, flushing the outbox every interval.
func (r *Relay) Run(ctx context.Context) error {
	if r.BatchSize <= 0 {
		r.BatchSize = 200
	}
	if r.Interval <= 0 {
		r.Interval = time.Second
	}

	tick := time.NewTicker(r.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := r.flushOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.Log.Error("relay flush failed", zap.Error(err))
			}
		}
	}
}

func (r *Relay) flushOnce(ctx context.Context) error {
	events, err := r.Outbox.FetchUnpublished(ctx, r.BatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := make([]int64, 0, len(events))
	for _, ev := range events {
		if err := r.Producer.Publish(ctx, []byte(ev.AggregateID), ev.Payload); err != nil {
			// mark what made it; the rest retries next tick
			r.Log.Warn("publish failed", zap.Int64("outbox_id", ev.ID), zap.Error(err))
			break
		}
		published = append(published, ev.ID)
	}

	if len(published) == 0 {
		return nil
	}
	if err := r.Outbox.MarkPublished(ctx, published); err != nil {
		return err
	}

	r.Log.Debug("relay flushed", zap.Int("published", len(published)))
	return nil
}
