package webhook

import (
	"errors"
	"testing"

	"github.com/omnidesk/inbox-gateway/internal/model"
)

func TestParseInstagramPayloadMessage(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"messaging": [{
				"sender": {"id": "1789000111222"},
				"message": {"mid": "mid.123", "text": "is this in stock?"}
			}]
		}]
	}`)

	events, ignored, err := ParseInstagramPayload(body)
	if err != nil {
		t.Fatal(err)
	}
	if ignored != 0 {
		t.Errorf("ignored = %d", ignored)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	ev := events[0]
	if ev.Channel != model.ChannelInstagram {
		t.Errorf("channel = %s", ev.Channel)
	}
	if ev.Sender != "1789000111222" {
		t.Errorf("sender = %q", ev.Sender)
	}
	if ev.Text != "is this in stock?" {
		t.Errorf("text = %q", ev.Text)
	}
	if ev.ProviderID != "mid.123" {
		t.Errorf("provider id = %q", ev.ProviderID)
	}
}

func TestParseInstagramPayloadAttachmentOnly(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"messaging": [{
				"sender": {"id": "42"},
				"message": {
					"mid": "mid.9",
					"attachments": [{"type": "image", "payload": {"url": "https://cdn/x.jpg"}}]
				}
			}]
		}]
	}`)

	events, _, err := ParseInstagramPayload(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Text != "image attachment" {
		t.Errorf("text = %q", events[0].Text)
	}
	if events[0].MediaURL() != "https://cdn/x.jpg" {
		t.Errorf("media = %q", events[0].MediaURL())
	}
}

func TestParseInstagramPayloadPostback(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"messaging": [{
				"sender": {"id": "42"},
				"postback": {"title": "View Catalog", "payload": "CATALOG"}
			}]
		}]
	}`)

	events, _, err := ParseInstagramPayload(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Text != "[Button Click] View Catalog" {
		t.Errorf("text = %q", events[0].Text)
	}
}

func TestParseInstagramPayloadPostbackNoTitle(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"messaging": [{
				"sender": {"id": "42"},
				"postback": {"payload": "CATALOG"}
			}]
		}]
	}`)

	events, _, err := ParseInstagramPayload(body)
	if err != nil {
		t.Fatal(err)
	}
	if events[0].Text != "[Button Click] CATALOG" {
		t.Errorf("text = %q", events[0].Text)
	}
}

func TestParseInstagramPayloadReadReceiptIgnored(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [{
			"messaging": [{
				"sender": {"id": "42"},
				"read": {"mid": "mid.5"}
			}]
		}]
	}`)

	events, ignored, err := ParseInstagramPayload(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("events = %d", len(events))
	}
	if ignored != 1 {
		t.Errorf("ignored = %d", ignored)
	}
}

func TestParseInstagramPayloadWrongObject(t *testing.T) {
	_, _, err := ParseInstagramPayload([]byte(`{"object": "page", "entry": []}`))
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
}

func TestVerifyInstagramSubscription(t *testing.T) {
	if ch, ok := VerifyInstagramSubscription("subscribe", "s3cret", "1234", "s3cret"); !ok || ch != "1234" {
		t.Fatalf("got (%q, %v)", ch, ok)
	}
	if _, ok := VerifyInstagramSubscription("subscribe", "wrong", "1234", "s3cret"); ok {
		t.Fatal("wrong token accepted")
	}
	if _, ok := VerifyInstagramSubscription("unsubscribe", "s3cret", "1234", "s3cret"); ok {
		t.Fatal("wrong mode accepted")
	}
	if _, ok := VerifyInstagramSubscription("subscribe", "", "1234", ""); ok {
		t.Fatal("empty verify token must never match")
	}
}
