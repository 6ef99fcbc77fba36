package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

type NotesRepository interface {
	Insert(ctx context.Context, n model.Note) error
	// ListByContact returns public notes plus the requesting agent's
	// private ones, newest first.
	ListByContact(ctx context.Context, contactID string, agentID int64) ([]model.Note, error)
}

type NotesRepositoryImpl struct {
	db *sqlx.DB
}

func NewNotesRepository(db *sqlx.DB) *NotesRepositoryImpl {
	return &NotesRepositoryImpl{db: db}
}

var _ NotesRepository = (*NotesRepositoryImpl)(nil)

func (r *NotesRepositoryImpl) Insert(ctx context.Context, n model.Note) error {
	const q = `
		INSERT INTO notes (id, contact_id, agent_id, content, is_private, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())
	`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.ContactID, n.AgentID, n.Content, n.IsPrivate)
	return err
}

func (r *NotesRepositoryImpl) ListByContact(ctx context.Context, contactID string, agentID int64) ([]model.Note, error) {
	notes := []model.Note{}
	err := r.db.SelectContext(ctx, &notes, `
		SELECT * FROM notes
		 WHERE contact_id = ? AND (is_private = 0 OR agent_id = ?)
		 ORDER BY created_at DESC
	`, contactID, agentID)
	return notes, err
}
