package webhook

import (
	"context"
	"database/sql"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/metrics"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/util"
	"go.uber.org/zap"
)

// Resolver finds or creates the contact for an inbound identifier.
// Satisfied by *resolver.Service.
type Resolver interface {
	Resolve(ctx context.Context, channel model.Channel, identifier string) (model.Contact, error)
}

// MessageStore persists the inbound row plus its lifecycle event.
// Satisfied by *repository.Store.
type MessageStore interface {
	CreateMessage(ctx context.Context, m model.Message, event string) error
}

// Ingestor turns normalized InboundEvents into stored messages. Inbound
// messages are created terminal (delivered) and unread.
type Ingestor struct {
	resolver Resolver
	store    MessageStore
	log      *zap.Logger
}

func NewIngestor(resolver Resolver, store MessageStore, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{resolver: resolver, store: store, log: log}
}

func (i *Ingestor) Ingest(ctx context.Context, ev model.InboundEvent) (model.Message, error) {
	contact, err := i.resolver.Resolve(ctx, ev.Channel, ev.Sender)
	if err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		ID:        util.NewID(),
		ContactID: contact.ID,
		Channel:   ev.Channel,
		Direction: model.DirectionInbound,
		Content:   ev.Text,
		Status:    model.StatusDelivered,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if u := ev.MediaURL(); u != "" {
		msg.MediaURL = sql.NullString{String: u, Valid: true}
	}
	if ev.ProviderID != "" {
		msg.ProviderMessageID = sql.NullString{String: ev.ProviderID, Valid: true}
	}

	if err := i.store.CreateMessage(ctx, msg, model.EventMessageDelivered); err != nil {
		return model.Message{}, err
	}

	metrics.MessagesTotal.WithLabelValues("inbound", ev.Channel.String()).Inc()
	i.log.Info("inbound message stored",
		zap.String("message_id", msg.ID),
		zap.String("contact_id", contact.ID),
		zap.String("channel", ev.Channel.String()),
		zap.Int("media_count", len(ev.MediaURLs)),
	)

	return msg, nil
}
