package resolver

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/inbox-gateway/internal/model"
	"github.com/omnidesk/inbox-gateway/internal/repository"
)

type fakeContacts struct {
	byIdentifier map[string]*model.Contact // channel+"|"+identifier
	inserted     []model.Contact
}

func (f *fakeContacts) FindByChannelIdentifier(_ context.Context, ch model.Channel, id string) (*model.Contact, error) {
	// sms and whatsapp share the phone columns
	if ch == model.ChannelSMS || ch == model.ChannelWhatsApp {
		if c, ok := f.byIdentifier["sms|"+id]; ok {
			return c, nil
		}
		return f.byIdentifier["whatsapp|"+id], nil
	}
	return f.byIdentifier[ch.String()+"|"+id], nil
}

func (f *fakeContacts) GetByID(_ context.Context, id string) (*model.Contact, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeContacts) Insert(_ context.Context, _ *sqlx.Tx, c model.Contact) error {
	f.inserted = append(f.inserted, c)
	return nil
}

func (f *fakeContacts) Update(context.Context, string, repository.ContactUpdate) error { return nil }

func (f *fakeContacts) List(context.Context, string) ([]model.Contact, error) { return nil, nil }

func TestResolveExistingContact(t *testing.T) {
	want := &model.Contact{ID: "c1", Name: "Maria"}
	contacts := &fakeContacts{byIdentifier: map[string]*model.Contact{
		"sms|+15550001111": want,
	}}
	svc := New(contacts, nil)

	got, err := svc.Resolve(context.Background(), model.ChannelSMS, "+15550001111")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "c1" {
		t.Errorf("id = %q", got.ID)
	}
	if len(contacts.inserted) != 0 {
		t.Error("no contact should be created")
	}
}

func TestResolveWhatsAppMatchesPhoneColumn(t *testing.T) {
	want := &model.Contact{ID: "c1", Name: "Maria"}
	contacts := &fakeContacts{byIdentifier: map[string]*model.Contact{
		"sms|+15550001111": want,
	}}
	svc := New(contacts, nil)

	got, err := svc.Resolve(context.Background(), model.ChannelWhatsApp, "+15550001111")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "c1" {
		t.Errorf("id = %q, want existing contact via phone column", got.ID)
	}
}

func TestResolveCreatesContact(t *testing.T) {
	contacts := &fakeContacts{byIdentifier: map[string]*model.Contact{}}
	svc := New(contacts, nil)

	got, err := svc.Resolve(context.Background(), model.ChannelSMS, "+15559998888")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID == "" {
		t.Fatal("new contact needs an id")
	}
	if got.Name != "+15559998888" {
		t.Errorf("fallback name = %q", got.Name)
	}
	if !got.Phone.Valid || got.Phone.String != "+15559998888" {
		t.Errorf("phone = %v", got.Phone)
	}
	if len(contacts.inserted) != 1 {
		t.Fatalf("inserted = %d", len(contacts.inserted))
	}
}

func TestResolveInstagramFallbackName(t *testing.T) {
	contacts := &fakeContacts{byIdentifier: map[string]*model.Contact{}}
	svc := New(contacts, nil)

	got, err := svc.Resolve(context.Background(), model.ChannelInstagram, "17890001112223334")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Instagram User 223334" {
		t.Errorf("name = %q", got.Name)
	}
	if !got.Instagram.Valid || got.Instagram.String != "17890001112223334" {
		t.Errorf("instagram = %v", got.Instagram)
	}
}

func TestResolveEmptyIdentifier(t *testing.T) {
	svc := New(&fakeContacts{}, nil)
	if _, err := svc.Resolve(context.Background(), model.ChannelSMS, ""); err == nil {
		t.Fatal("empty identifier must fail")
	}
}
