package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/omnidesk/inbox-gateway/internal/channel"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
)

type fakeStore struct {
	mu       sync.Mutex
	created  []model.Message
	events   []string
	finished []model.Message
	statuses []model.MessageStatus
}

func (f *fakeStore) CreateMessage(_ context.Context, m model.Message, event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, m)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) FinishMessage(_ context.Context, m model.Message, status model.MessageStatus, providerMessageID, event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, m)
	f.statuses = append(f.statuses, status)
	f.events = append(f.events, event)
	return nil
}

type fakeContacts struct {
	contact *model.Contact
}

func (f *fakeContacts) GetByID(_ context.Context, id string) (*model.Contact, error) {
	if f.contact == nil || f.contact.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.contact, nil
}

type fakeAdapter struct {
	ch     model.Channel
	dest   string
	result channel.SendResult
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Channel() model.Channel { return f.ch }

func (f *fakeAdapter) Destination(model.Contact) (string, bool) {
	return f.dest, f.dest != ""
}

func (f *fakeAdapter) Send(ctx context.Context, dest, text, mediaURL string) (channel.SendResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return channel.SendResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testContact() *model.Contact {
	return &model.Contact{ID: "c1", Name: "Maria"}
}

func newTestService(store *fakeStore, adapter *fakeAdapter, contact *model.Contact) *Service {
	return New(store, &fakeContacts{contact: contact}, channel.NewRegistry(adapter), time.Second, nil)
}

func TestSendImmediateSuccess(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{
		ch:     model.ChannelSMS,
		dest:   "+15550001111",
		result: channel.SendResult{Success: true, ProviderMessageID: "SM1"},
	}
	svc := newTestService(store, adapter, testContact())

	msg, err := svc.Send(context.Background(), SendRequest{
		ContactID: "c1", Channel: model.ChannelSMS, Content: "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusSent {
		t.Errorf("status = %s, want sent", msg.Status)
	}
	if msg.ProviderMessageID.String != "SM1" {
		t.Errorf("provider id = %q", msg.ProviderMessageID.String)
	}
	if adapter.callCount() != 1 {
		t.Errorf("adapter calls = %d", adapter.callCount())
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d", len(store.created))
	}
	// immediate sends land terminal: scheduled/sending never observable
	if store.created[0].Status != model.StatusSent {
		t.Errorf("persisted status = %s", store.created[0].Status)
	}
	if store.events[0] != model.EventMessageSent {
		t.Errorf("event = %q", store.events[0])
	}
}

func TestSendProviderRejection(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{
		ch:     model.ChannelSMS,
		dest:   "+15550001111",
		result: channel.SendResult{Success: false, ErrorDetail: "blocked"},
	}
	svc := newTestService(store, adapter, testContact())

	msg, err := svc.Send(context.Background(), SendRequest{
		ContactID: "c1", Channel: model.ChannelSMS, Content: "hi",
	})
	if err != nil {
		t.Fatalf("provider rejection must not be an error: %v", err)
	}
	if msg.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", msg.Status)
	}
	if store.events[0] != model.EventMessageFailed {
		t.Errorf("event = %q", store.events[0])
	}
}

func TestSendAdapterTransportError(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{
		ch:   model.ChannelSMS,
		dest: "+15550001111",
		err:  errors.New("connection refused"),
	}
	svc := newTestService(store, adapter, testContact())

	msg, err := svc.Send(context.Background(), SendRequest{
		ContactID: "c1", Channel: model.ChannelSMS, Content: "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", msg.Status)
	}
}

func TestSendCapabilityFailureSkipsAdapter(t *testing.T) {
	store := &fakeStore{}
	// contact has no sms destination
	adapter := &fakeAdapter{ch: model.ChannelSMS, dest: ""}
	svc := newTestService(store, adapter, testContact())

	msg, err := svc.Send(context.Background(), SendRequest{
		ContactID: "c1", Channel: model.ChannelSMS, Content: "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", msg.Status)
	}
	if adapter.callCount() != 0 {
		t.Errorf("adapter must not be invoked on capability failure, calls = %d", adapter.callCount())
	}
}

func TestSendTimeoutMapsToFailed(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{
		ch:     model.ChannelSMS,
		dest:   "+15550001111",
		delay:  200 * time.Millisecond,
		result: channel.SendResult{Success: true},
	}
	svc := New(store, &fakeContacts{contact: testContact()}, channel.NewRegistry(adapter), 10*time.Millisecond, nil)

	msg, err := svc.Send(context.Background(), SendRequest{
		ContactID: "c1", Channel: model.ChannelSMS, Content: "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", msg.Status)
	}
}

func TestSendScheduledFutureSkipsAdapter(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{ch: model.ChannelSMS, dest: "+15550001111"}
	svc := newTestService(store, adapter, testContact())

	future := time.Now().Add(time.Hour)
	msg, err := svc.Send(context.Background(), SendRequest{
		ContactID:    "c1",
		Channel:      model.ChannelSMS,
		Content:      "later",
		ScheduledFor: &future,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusScheduled {
		t.Errorf("status = %s, want scheduled", msg.Status)
	}
	if !msg.ScheduledFor.Valid || !msg.ScheduledFor.Time.Equal(future) {
		t.Errorf("scheduled_for = %v", msg.ScheduledFor)
	}
	if adapter.callCount() != 0 {
		t.Errorf("adapter calls = %d, want 0", adapter.callCount())
	}
	if store.events[0] != model.EventMessageCreated {
		t.Errorf("event = %q", store.events[0])
	}
}

func TestSendScheduledPastIsImmediate(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{
		ch:     model.ChannelSMS,
		dest:   "+15550001111",
		result: channel.SendResult{Success: true},
	}
	svc := newTestService(store, adapter, testContact())

	past := time.Now().Add(-time.Minute)
	msg, err := svc.Send(context.Background(), SendRequest{
		ContactID:    "c1",
		Channel:      model.ChannelSMS,
		Content:      "now",
		ScheduledFor: &past,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusSent {
		t.Errorf("status = %s, want sent", msg.Status)
	}
	if adapter.callCount() != 1 {
		t.Errorf("adapter calls = %d, want 1", adapter.callCount())
	}
}

func TestSendValidation(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{ch: model.ChannelSMS, dest: "+15550001111"}
	svc := newTestService(store, adapter, testContact())

	_, err := svc.Send(context.Background(), SendRequest{
		ContactID: "c1", Channel: "pigeon", Content: "hi",
	})
	if !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("err = %v, want ErrUnknownChannel", err)
	}

	_, err = svc.Send(context.Background(), SendRequest{
		ContactID: "c1", Channel: model.ChannelSMS,
	})
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}

	_, err = svc.Send(context.Background(), SendRequest{
		ContactID: "ghost", Channel: model.ChannelSMS, Content: "hi",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(store.created) != 0 {
		t.Errorf("nothing should be persisted on validation failure")
	}
}

func TestDeliverMissingContactFailsTerminally(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{ch: model.ChannelSMS, dest: "+15550001111"}
	svc := newTestService(store, adapter, nil)

	msg, err := svc.Deliver(context.Background(), model.Message{
		ID: "m1", ContactID: "gone", Channel: model.ChannelSMS, Status: model.StatusSending,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", msg.Status)
	}
	if len(store.finished) != 1 || store.statuses[0] != model.StatusFailed {
		t.Errorf("finish not recorded: %v", store.statuses)
	}
	if adapter.callCount() != 0 {
		t.Errorf("adapter calls = %d", adapter.callCount())
	}
}

func TestDeliverSuccess(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{
		ch:     model.ChannelWhatsApp,
		dest:   "+15550001111",
		result: channel.SendResult{Success: true, ProviderMessageID: "WA9"},
	}
	svc := newTestService(store, adapter, testContact())

	msg, err := svc.Deliver(context.Background(), model.Message{
		ID: "m1", ContactID: "c1", Channel: model.ChannelWhatsApp, Status: model.StatusSending,
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Status != model.StatusSent {
		t.Errorf("status = %s", msg.Status)
	}
	if msg.ProviderMessageID.String != "WA9" {
		t.Errorf("provider id = %q", msg.ProviderMessageID.String)
	}
}
