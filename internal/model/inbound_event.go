package model

// InboundEvent is the normalized shape produced by the webhook parsers.
// It is transient: it decouples provider payload shapes from the message
// store and is never persisted itself.
type InboundEvent struct {
	Channel    Channel
	Sender     string // bare channel identifier, provider prefix stripped
	Text       string
	MediaURLs  []string // all collected; only the first is persisted
	ProviderID string   // provider-side message id, when present
}

// MediaURL returns the first attachment URL, if any.
func (e InboundEvent) MediaURL() string {
	if len(e.MediaURLs) == 0 {
		return ""
	}
	return e.MediaURLs[0]
}
