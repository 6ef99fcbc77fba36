package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/channel"
	"github.com/omnidesk/inbox-gateway/internal/metrics"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/util"
	"go.uber.org/zap"
)

var (
	// ErrUnknownChannel means the requested channel has no adapter.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrEmptyContent means the request carried neither text nor media.
	ErrEmptyContent = errors.New("empty content")
)

// MessageStore is the slice of the message store the dispatcher writes
// through. Satisfied by *repository.Store.
type MessageStore interface {
	CreateMessage(ctx context.Context, m model.Message, event string) error
	FinishMessage(ctx context.Context, m model.Message, status model.MessageStatus, providerMessageID, event string) error
}

// ContactLookup is the read side the dispatcher needs for step 1.
// Satisfied by repository.ContactsRepository.
type ContactLookup interface {
	GetByID(ctx context.Context, id string) (*model.Contact, error)
}

// SendRequest is the outbound-facing "send or schedule" operation input.
type SendRequest struct {
	ContactID    string
	Channel      model.Channel
	Content      string
	MediaURL     string
	ScheduledFor *time.Time
	SentBy       int64 // authenticated agent id; 0 when absent
}

// Service decides immediate vs. deferred send, invokes the channel
// adapter, and persists the outcome. The same Deliver steps run whether
// the trigger is an interactive caller or the scheduler.
type Service struct {
	store       MessageStore
	contacts    ContactLookup
	adapters    channel.Registry
	sendTimeout time.Duration
	log         *zap.Logger
	now         func() time.Time
}

func New(store MessageStore, contacts ContactLookup, adapters channel.Registry, sendTimeout time.Duration, log *zap.Logger) *Service {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:       store,
		contacts:    contacts,
		adapters:    adapters,
		sendTimeout: sendTimeout,
		log:         log,
		now:         time.Now,
	}
}

// Send implements the dispatch algorithm. The returned message always
// reflects the true outcome: a failed provider call is a normal result,
// not an error. Errors are reserved for validation, unknown contacts,
// and store unavailability.
func (s *Service) Send(ctx context.Context, req SendRequest) (model.Message, error) {
	adapter, ok := s.adapters.For(req.Channel)
	if !ok {
		return model.Message{}, fmt.Errorf("%w: %q", ErrUnknownChannel, req.Channel)
	}
	if req.Content == "" && req.MediaURL == "" {
		return model.Message{}, ErrEmptyContent
	}

	contact, err := s.contacts.GetByID(ctx, req.ContactID)
	if err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		ID:        util.NewID(),
		ContactID: contact.ID,
		Channel:   req.Channel,
		Direction: model.DirectionOutbound,
		Content:   req.Content,
		CreatedAt: s.now(),
	}
	if req.MediaURL != "" {
		msg.MediaURL = sql.NullString{String: req.MediaURL, Valid: true}
	}
	if req.SentBy > 0 {
		msg.SentBy = sql.NullInt64{Int64: req.SentBy, Valid: true}
	}

	// deferred path: persist as scheduled, no adapter call
	if req.ScheduledFor != nil && req.ScheduledFor.After(s.now()) {
		msg.Status = model.StatusScheduled
		msg.ScheduledFor = sql.NullTime{Time: *req.ScheduledFor, Valid: true}
		if err := s.store.CreateMessage(ctx, msg, model.EventMessageCreated); err != nil {
			return model.Message{}, err
		}
		metrics.MessagesTotal.WithLabelValues("scheduled", msg.Channel.String()).Inc()
		return msg, nil
	}

	// immediate path: terminal status is assigned directly, scheduled
	// and sending are never observable
	status, providerID := s.attempt(ctx, adapter, *contact, msg)
	msg.Status = status
	if providerID != "" {
		msg.ProviderMessageID = sql.NullString{String: providerID, Valid: true}
	}

	event := model.EventMessageSent
	if status == model.StatusFailed {
		event = model.EventMessageFailed
	}
	if err := s.store.CreateMessage(ctx, msg, event); err != nil {
		return model.Message{}, err
	}
	metrics.MessagesTotal.WithLabelValues(status.String(), msg.Channel.String()).Inc()

	return msg, nil
}

// Deliver runs the capability check, adapter call and terminal persist
// for an already-claimed message (status sending). The scheduler calls
// this after a successful claim.
func (s *Service) Deliver(ctx context.Context, msg model.Message) (model.Message, error) {
	adapter, ok := s.adapters.For(msg.Channel)
	if !ok {
		return s.finish(ctx, msg, model.StatusFailed, "")
	}

	contact, err := s.contacts.GetByID(ctx, msg.ContactID)
	if err != nil {
		// contact gone: terminal failure, not an abort
		s.log.Warn("deliver: contact lookup failed",
			zap.String("message_id", msg.ID), zap.Error(err))
		return s.finish(ctx, msg, model.StatusFailed, "")
	}

	status, providerID := s.attempt(ctx, adapter, *contact, msg)
	return s.finish(ctx, msg, status, providerID)
}

// attempt performs steps 3-4: capability check then a time-bounded
// adapter call. It never returns an error; every failure mode maps to
// status failed.
func (s *Service) attempt(ctx context.Context, adapter channel.Adapter, contact model.Contact, msg model.Message) (model.MessageStatus, string) {
	dest, ok := adapter.Destination(contact)
	if !ok {
		// capability error: the contact lacks the identifier this
		// channel needs, adapter is never invoked
		s.log.Info("send skipped: missing destination",
			zap.String("message_id", msg.ID),
			zap.String("channel", msg.Channel.String()),
			zap.String("contact_id", contact.ID),
		)
		return model.StatusFailed, ""
	}

	callCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	res, err := adapter.Send(callCtx, dest, msg.Content, msg.MediaURL.String)
	if err != nil {
		s.log.Warn("adapter send error",
			zap.String("message_id", msg.ID),
			zap.String("channel", msg.Channel.String()),
			zap.Error(err),
		)
		return model.StatusFailed, ""
	}
	if !res.Success {
		s.log.Info("provider rejected send",
			zap.String("message_id", msg.ID),
			zap.String("channel", msg.Channel.String()),
			zap.String("detail", res.ErrorDetail),
		)
		return model.StatusFailed, res.ProviderMessageID
	}

	return model.StatusSent, res.ProviderMessageID
}

func (s *Service) finish(ctx context.Context, msg model.Message, status model.MessageStatus, providerID string) (model.Message, error) {
	event := model.EventMessageSent
	if status == model.StatusFailed {
		event = model.EventMessageFailed
	}
	if err := s.store.FinishMessage(ctx, msg, status, providerID, event); err != nil {
		return model.Message{}, err
	}
	msg.Status = status
	if providerID != "" {
		msg.ProviderMessageID = sql.NullString{String: providerID, Valid: true}
	}
	metrics.MessagesTotal.WithLabelValues(status.String(), msg.Channel.String()).Inc()
	return msg, nil
}
