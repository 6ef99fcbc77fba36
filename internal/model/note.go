package model

import "time"

// Note is a free-form annotation attached to a contact. Notes have no
// state machine; they are a plain read/write sibling of messages.
type Note struct {
	ID        string    `db:"id" json:"id"`
	ContactID string    `db:"contact_id" json:"contact_id"`
	AgentID   int64     `db:"agent_id" json:"agent_id"`
	Content   string    `db:"content" json:"content"`
	IsPrivate bool      `db:"is_private" json:"is_private"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
