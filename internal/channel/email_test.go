package channel

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/omnidesk/inbox-gateway/internal/config"
)

func TestEmailSendUnconfigured(t *testing.T) {
	a := NewEmail(config.EmailConfig{})
	res, err := a.Send(context.Background(), "lee@example.com", "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("unconfigured email must fail, not succeed")
	}
	if res.ErrorDetail != "email channel not configured" {
		t.Errorf("detail = %q", res.ErrorDetail)
	}
}

func TestEmailSendBuildsMessage(t *testing.T) {
	a := NewEmail(config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "inbox@example.com",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	a.sendMail = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	res, err := a.Send(context.Background(), "lee@example.com", "hello", "https://cdn/x.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("detail = %q", res.ErrorDetail)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "inbox@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "lee@example.com" {
		t.Errorf("to = %v", gotTo)
	}
	if !strings.Contains(string(gotMsg), "Attachment: https://cdn/x.pdf") {
		t.Errorf("media url missing from body:\n%s", gotMsg)
	}
}

func TestEmailSendSMTPFailure(t *testing.T) {
	a := NewEmail(config.EmailConfig{SMTPHost: "smtp.example.com", SMTPPort: 25})
	a.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("550 mailbox unavailable")
	}

	res, err := a.Send(context.Background(), "lee@example.com", "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("smtp failure must map to a failed result")
	}
	if res.ErrorDetail != "550 mailbox unavailable" {
		t.Errorf("detail = %q", res.ErrorDetail)
	}
}

func TestMediaType(t *testing.T) {
	cases := map[string]string{
		"https://cdn/photo.JPG":         "image",
		"https://cdn/clip.mp4":          "video",
		"https://cdn/voice.ogg":         "audio",
		"https://cdn/contract.pdf":      "file",
		"https://cdn/image-proxy?id=42": "image",
	}
	for url, want := range cases {
		if got := mediaType(url); got != want {
			t.Errorf("mediaType(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestTwilioDestination(t *testing.T) {
	sms := NewTwilioSMS(config.TwilioConfig{PhoneNumber: "+15550000000"})
	wa := NewTwilioWhatsApp(config.TwilioConfig{WhatsAppNumber: "+15550000000"})

	c := contactWith("+15551112222", "")
	if dest, ok := sms.Destination(c); !ok || dest != "+15551112222" {
		t.Errorf("sms destination = (%q, %v)", dest, ok)
	}
	if _, ok := wa.Destination(c); ok {
		t.Error("whatsapp destination must require the whatsapp column")
	}

	c = contactWith("", "+15553334444")
	if dest, ok := wa.Destination(c); !ok || dest != "+15553334444" {
		t.Errorf("whatsapp destination = (%q, %v)", dest, ok)
	}
}
