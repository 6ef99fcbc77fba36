package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/omnidesk/inbox-gateway/internal/model"
)

type igPayload struct {
	Object string    `json:"object"`
	Entry  []igEntry `json:"entry"`
}

type igEntry struct {
	Messaging []igMessaging `json:"messaging"`
	Changes   []igChange    `json:"changes"`
}

type igMessaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message  *igInboundMessage `json:"message"`
	Postback *igPostback       `json:"postback"`
	Read     *json.RawMessage  `json:"read"`
}

type igInboundMessage struct {
	MID         string         `json:"mid"`
	Text        string         `json:"text"`
	Attachments []igAttachment `json:"attachments"`
}

type igAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		URL string `json:"url"`
	} `json:"payload"`
}

type igPostback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type igChange struct {
	Field string `json:"field"`
}

// ParseInstagramPayload normalizes an Instagram webhook body. Plain
// messages and postbacks become events; read receipts and account-level
// changes are accepted but produce nothing (the ignored count lets the
// handler log them).
func ParseInstagramPayload(body []byte) (events []model.InboundEvent, ignored int, err error) {
	var p igPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if p.Object != "instagram" {
		return nil, 0, fmt.Errorf("%w: object=%q", ErrBadPayload, p.Object)
	}

	for _, entry := range p.Entry {
		for _, ev := range entry.Messaging {
			if ev.Sender.ID == "" {
				ignored++
				continue
			}
			switch {
			case ev.Message != nil:
				events = append(events, normalizeIGMessage(ev.Sender.ID, *ev.Message))
			case ev.Postback != nil:
				events = append(events, normalizeIGPostback(ev.Sender.ID, *ev.Postback))
			default:
				// read receipts and other event types
				ignored++
			}
		}
		ignored += len(entry.Changes)
	}

	return events, ignored, nil
}

func normalizeIGMessage(senderID string, msg igInboundMessage) model.InboundEvent {
	text := msg.Text
	mediaURLs := make([]string, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		if att.Payload.URL != "" {
			mediaURLs = append(mediaURLs, att.Payload.URL)
		}
	}
	if text == "" && len(msg.Attachments) > 0 {
		text = msg.Attachments[0].Type + " attachment"
	}

	return model.InboundEvent{
		Channel:    model.ChannelInstagram,
		Sender:     senderID,
		Text:       text,
		MediaURLs:  mediaURLs,
		ProviderID: msg.MID,
	}
}

func normalizeIGPostback(senderID string, pb igPostback) model.InboundEvent {
	label := pb.Title
	if label == "" {
		label = pb.Payload
	}
	return model.InboundEvent{
		Channel: model.ChannelInstagram,
		Sender:  senderID,
		Text:    "[Button Click] " + label,
	}
}

// VerifyInstagramSubscription handles the GET handshake Facebook sends
// when subscribing the webhook. The challenge is echoed back verbatim
// only when the pre-shared token matches.
func VerifyInstagramSubscription(mode, token, challenge, verifyToken string) (string, bool) {
	if mode == "subscribe" && verifyToken != "" && token == verifyToken {
		return challenge, true
	}
	return "", false
}
