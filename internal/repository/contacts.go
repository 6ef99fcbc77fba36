package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

// ContactUpdate carries optional profile edits; nil fields are untouched.
type ContactUpdate struct {
	Name      *string
	Phone     *string
	WhatsApp  *string
	Instagram *string
	Email     *string
	Tags      *model.Tags
}

type ContactsRepository interface {
	// FindByChannelIdentifier looks up the contact whose identifier
	// column for the channel exactly equals the value. Returns nil when
	// no contact matches. For sms and whatsapp both phone columns are
	// consulted, since the same number may have been seen on either.
	FindByChannelIdentifier(ctx context.Context, channel model.Channel, identifier string) (*model.Contact, error)
	GetByID(ctx context.Context, id string) (*model.Contact, error)
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Contact) error
	Update(ctx context.Context, id string, upd ContactUpdate) error
	List(ctx context.Context, search string) ([]model.Contact, error)
}

type ContactsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContactsRepository(db *sqlx.DB) *ContactsRepositoryImpl {
	return &ContactsRepositoryImpl{db: db}
}

var _ ContactsRepository = (*ContactsRepositoryImpl)(nil)

func (r *ContactsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *ContactsRepositoryImpl) FindByChannelIdentifier(ctx context.Context, channel model.Channel, identifier string) (*model.Contact, error) {
	var q string
	switch channel {
	case model.ChannelSMS, model.ChannelWhatsApp:
		q = `SELECT * FROM contacts WHERE phone = ? OR whatsapp = ? LIMIT 1`
		return r.getOne(ctx, q, identifier, identifier)
	case model.ChannelInstagram:
		q = `SELECT * FROM contacts WHERE instagram = ? LIMIT 1`
	case model.ChannelEmail:
		q = `SELECT * FROM contacts WHERE email = ? LIMIT 1`
	default:
		return nil, fmt.Errorf("contacts: unknown channel %q", channel)
	}
	return r.getOne(ctx, q, identifier)
}

func (r *ContactsRepositoryImpl) getOne(ctx context.Context, q string, args ...any) (*model.Contact, error) {
	var c model.Contact
	err := r.db.GetContext(ctx, &c, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	var c model.Contact
	err := r.db.GetContext(ctx, &c, `SELECT * FROM contacts WHERE id = ? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Contact) error {
	const q = `
		INSERT INTO contacts
		    (id, name, phone, whatsapp, instagram, email, tags, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			c.ID, c.Name, c.Phone, c.WhatsApp, c.Instagram, c.Email, c.Tags,
		)
		return err
	})
}

func (r *ContactsRepositoryImpl) Update(ctx context.Context, id string, upd ContactUpdate) error {
	sets := ""
	args := []any{}
	add := func(col string, v any) {
		if sets != "" {
			sets += ", "
		}
		sets += col + " = ?"
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Phone != nil {
		add("phone", nullable(*upd.Phone))
	}
	if upd.WhatsApp != nil {
		add("whatsapp", nullable(*upd.WhatsApp))
	}
	if upd.Instagram != nil {
		add("instagram", nullable(*upd.Instagram))
	}
	if upd.Email != nil {
		add("email", nullable(*upd.Email))
	}
	if upd.Tags != nil {
		add("tags", *upd.Tags)
	}
	if sets == "" {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE contacts SET `+sets+`, updated_at = NOW() WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// may also mean no-op update; re-check existence
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
	}
	return nil
}

func (r *ContactsRepositoryImpl) List(ctx context.Context, search string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if search == "" {
		err := r.db.SelectContext(ctx, &contacts, `SELECT * FROM contacts ORDER BY updated_at DESC`)
		return contacts, err
	}
	like := "%" + search + "%"
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT * FROM contacts
		 WHERE name LIKE ? OR phone LIKE ? OR email LIKE ?
		 ORDER BY updated_at DESC
	`, like, like, like)
	return contacts, err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
