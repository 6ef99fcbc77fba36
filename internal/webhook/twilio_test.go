package webhook

import (
	"errors"
	"net/url"
	"testing"

	"github.com/omnidesk/inbox-gateway/internal/model"
)

func TestParseTwilioPayloadSMS(t *testing.T) {
	form := url.Values{}
	form.Set("From", "+15551234567")
	form.Set("Body", "hello there")
	form.Set("MessageSid", "SM123")

	ev, err := ParseTwilioPayload(form)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Channel != model.ChannelSMS {
		t.Errorf("channel = %s, want sms", ev.Channel)
	}
	if ev.Sender != "+15551234567" {
		t.Errorf("sender = %q", ev.Sender)
	}
	if ev.Text != "hello there" {
		t.Errorf("text = %q", ev.Text)
	}
	if ev.ProviderID != "SM123" {
		t.Errorf("provider id = %q", ev.ProviderID)
	}
}

func TestParseTwilioPayloadWhatsAppPrefix(t *testing.T) {
	form := url.Values{}
	form.Set("From", "whatsapp:+15551234567")
	form.Set("Body", "hi")

	ev, err := ParseTwilioPayload(form)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Channel != model.ChannelWhatsApp {
		t.Errorf("channel = %s, want whatsapp", ev.Channel)
	}
	if ev.Sender != "+15551234567" {
		t.Errorf("prefix not stripped: %q", ev.Sender)
	}
}

func TestParseTwilioPayloadMedia(t *testing.T) {
	form := url.Values{}
	form.Set("From", "+15551234567")
	form.Set("NumMedia", "2")
	form.Set("MediaUrl0", "https://api.twilio.com/m/0")
	form.Set("MediaUrl1", "https://api.twilio.com/m/1")

	ev, err := ParseTwilioPayload(form)
	if err != nil {
		t.Fatal(err)
	}
	if len(ev.MediaURLs) != 2 {
		t.Fatalf("media urls = %v", ev.MediaURLs)
	}
	if ev.MediaURL() != "https://api.twilio.com/m/0" {
		t.Errorf("first media = %q", ev.MediaURL())
	}
	// empty body gets the attachment placeholder
	if ev.Text != "2 attachment(s)" {
		t.Errorf("text = %q", ev.Text)
	}
}

func TestParseTwilioPayloadMissingFrom(t *testing.T) {
	form := url.Values{}
	form.Set("Body", "orphan")

	_, err := ParseTwilioPayload(form)
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
}
