package webhook

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/omnidesk/inbox-gateway/internal/model"
)

// ErrBadPayload is returned when a provider payload fails shape validation.
var ErrBadPayload = errors.New("bad webhook payload")

const whatsappPrefix = "whatsapp:"

// ParseTwilioPayload normalizes a Twilio inbound-message form post into
// an InboundEvent. The channel is derived from the "whatsapp:" prefix on
// the From field; all media URLs are collected, but callers persist only
// the first.
func ParseTwilioPayload(form url.Values) (model.InboundEvent, error) {
	from := strings.TrimSpace(form.Get("From"))
	if from == "" {
		return model.InboundEvent{}, fmt.Errorf("%w: missing From", ErrBadPayload)
	}

	ch := model.ChannelSMS
	if strings.HasPrefix(from, whatsappPrefix) {
		ch = model.ChannelWhatsApp
		from = strings.TrimPrefix(from, whatsappPrefix)
	}

	numMedia, _ := strconv.Atoi(form.Get("NumMedia"))
	mediaURLs := make([]string, 0, numMedia)
	for i := 0; i < numMedia; i++ {
		if u := form.Get(fmt.Sprintf("MediaUrl%d", i)); u != "" {
			mediaURLs = append(mediaURLs, u)
		}
	}

	text := form.Get("Body")
	if text == "" && len(mediaURLs) > 0 {
		text = fmt.Sprintf("%d attachment(s)", len(mediaURLs))
	}

	return model.InboundEvent{
		Channel:    ch,
		Sender:     from,
		Text:       text,
		MediaURLs:  mediaURLs,
		ProviderID: form.Get("MessageSid"),
	}, nil
}
