package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/kafka"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"go.uber.org/zap"
)

// Archiver consumes lifecycle envelopes from Kafka and lands them in
// ClickHouse for the analytics read side. Batches by size or time; a
// poison message is committed and skipped.
type Archiver struct {
	Consumer *kafka.Consumer
	Events   repository.CHEventsRepository
	Log      *zap.Logger

	BatchSize int
	BatchWait time.Duration
}

func NewArchiver(consumer *kafka.Consumer, events repository.CHEventsRepository, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{
		Consumer:  consumer,
		Events:    events,
		Log:       log,
		BatchSize: 200,
		BatchWait: time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	if a.BatchSize <= 0 {
		a.BatchSize = 200
	}
	if a.BatchWait <= 0 {
		a.BatchWait = time.Second
	}

	batch := make([]model.Envelope, 0, a.BatchSize)
	pending := make([]kafka.Message, 0, a.BatchSize)
	deadline := time.Now().Add(a.BatchWait)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.Events.InsertBatch(ctx, batch); err != nil {
			a.Log.Error("clickhouse insert failed", zap.Error(err), zap.Int("batch", len(batch)))
			// do not commit; Kafka redelivers, ClickHouse dedupes
			batch = batch[:0]
			pending = pending[:0]
			return
		}
		for _, m := range pending {
			if err := a.Consumer.Commit(ctx, m); err != nil {
				a.Log.Warn("commit failed", zap.Error(err))
			}
		}
		a.Log.Debug("archived events", zap.Int("count", len(batch)))
		batch = batch[:0]
		pending = pending[:0]
	}

	for {
		if ctx.Err() != nil {
			flush()
			return nil
		}

		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		m, err := a.Consumer.Fetch(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				flush()
				return nil
			}
			// deadline hit or transient fetch error: flush and reset
			flush()
			deadline = time.Now().Add(a.BatchWait)
			continue
		}

		var env model.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil || env.MessageID == "" {
			// poison message
			a.Log.Warn("bad envelope", zap.Error(err))
			_ = a.Consumer.Commit(ctx, m)
			continue
		}

		batch = append(batch, env)
		pending = append(pending, m)
		if len(batch) >= a.BatchSize {
			flush()
			deadline = time.Now().Add(a.BatchWait)
		}
	}
}
