package resolver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
	"github.com/omnidesk/inbox-gateway/internal/util"
	"go.uber.org/zap"
)

// Service finds or creates the contact behind a (channel, identifier)
// pair. It never merges two existing contacts: if the same person shows
// up under a different identifier, a second contact is created.
type Service struct {
	contacts repository.ContactsRepository
	log      *zap.Logger
}

func New(contacts repository.ContactsRepository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{contacts: contacts, log: log}
}

// Resolve returns the contact whose identifier column for the channel
// matches exactly, creating one with a fallback display name when none
// exists.
func (s *Service) Resolve(ctx context.Context, channel model.Channel, identifier string) (model.Contact, error) {
	if identifier == "" {
		return model.Contact{}, fmt.Errorf("resolver: empty identifier for channel %s", channel)
	}

	existing, err := s.contacts.FindByChannelIdentifier(ctx, channel, identifier)
	if err != nil {
		return model.Contact{}, fmt.Errorf("resolver lookup: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	c := model.Contact{
		ID:   util.NewID(),
		Name: fallbackName(channel, identifier),
	}
	field := sql.NullString{String: identifier, Valid: true}
	switch channel {
	case model.ChannelSMS:
		c.Phone = field
	case model.ChannelWhatsApp:
		c.WhatsApp = field
	case model.ChannelInstagram:
		c.Instagram = field
	case model.ChannelEmail:
		c.Email = field
	default:
		return model.Contact{}, fmt.Errorf("resolver: unknown channel %q", channel)
	}

	if err := s.contacts.Insert(ctx, nil, c); err != nil {
		return model.Contact{}, fmt.Errorf("resolver create: %w", err)
	}

	s.log.Info("contact created",
		zap.String("contact_id", c.ID),
		zap.String("channel", channel.String()),
	)

	return c, nil
}

func fallbackName(channel model.Channel, identifier string) string {
	if channel == model.ChannelInstagram {
		suffix := identifier
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		return "Instagram User " + suffix
	}
	return identifier
}
