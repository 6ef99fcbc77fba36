package model

import (
	"database/sql"
	"time"
)

// Contact is the identity anchor for a person across channels.
// Each channel resolves against its own identifier column; two contacts
// are never merged even if they turn out to be the same human.
type Contact struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Phone     sql.NullString `db:"phone" json:"phone,omitempty"`
	WhatsApp  sql.NullString `db:"whatsapp" json:"whatsapp,omitempty"`
	Instagram sql.NullString `db:"instagram" json:"instagram,omitempty"`
	Email     sql.NullString `db:"email" json:"email,omitempty"`
	Tags      Tags           `db:"tags" json:"tags"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
