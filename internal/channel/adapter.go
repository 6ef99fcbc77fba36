package channel

import (
	"context"

	"github.com/omnidesk/inbox-gateway/internal/model"
)

// SendResult is the outcome of one provider call. A provider rejection
// is a value (Success=false), not an error; errors are reserved for
// transport-level failures, which the dispatcher treats the same way.
type SendResult struct {
	Success           bool
	ProviderMessageID string
	ErrorDetail       string
}

// Adapter performs the actual provider network call for one channel and
// exposes the channel's capability facts.
type Adapter interface {
	Channel() model.Channel
	// Destination returns the contact field this channel delivers to,
	// and whether the contact has it.
	Destination(c model.Contact) (string, bool)
	Send(ctx context.Context, dest, text, mediaURL string) (SendResult, error)
}

// Registry maps channels to their adapters.
type Registry map[model.Channel]Adapter

func NewRegistry(adapters ...Adapter) Registry {
	reg := make(Registry, len(adapters))
	for _, a := range adapters {
		reg[a.Channel()] = a
	}
	return reg
}

func (r Registry) For(c model.Channel) (Adapter, bool) {
	a, ok := r[c]
	return a, ok
}
