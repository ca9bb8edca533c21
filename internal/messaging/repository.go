// Package messaging persists system messages shown in the client portal.
// The lifecycle engine writes milestone and reminder messages here; it never
// deletes them.
package messaging

import (
	"context"
	"time"

	"nutricoach_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate   = "messaging.repository.create"
	opList     = "messaging.repository.list"
	opMarkRead = "messaging.repository.mark_read"

	errRepoNotConfigured = "messaging repository not configured"
)

// Message is one system message for a client.
type Message struct {
	ID        uuid.UUID      `json:"id"`
	ClientID  uuid.UUID      `json:"clientId"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsRead    bool           `json:"isRead"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CreateParams inserts one system message.
type CreateParams struct {
	ClientID uuid.UUID
	Content  string
	// Metadata carries back-references such as followUpId; the message is
	// looked up through it but never cascade-deleted.
	Metadata map[string]any
}

// Repository stores system messages in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a messaging repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a system message.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Message, error) {
	if r == nil || r.pool == nil {
		return Message{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.ClientID == uuid.Nil || p.Content == "" {
		return Message{}, apperr.Validation("clientId and content are required").WithOp(opCreate)
	}

	var m Message
	err := r.pool.QueryRow(ctx, `
		INSERT INTO system_messages (client_id, content, metadata)
		VALUES ($1, $2, $3)
		RETURNING id, client_id, content, metadata, is_read, created_at
	`, p.ClientID, p.Content, p.Metadata).Scan(
		&m.ID, &m.ClientID, &m.Content, &m.Metadata, &m.IsRead, &m.CreatedAt,
	)
	if err != nil {
		return Message{}, apperr.Wrap(apperr.KindUnavailable, "create system message failed", err).WithOp(opCreate)
	}
	return m, nil
}

// ListByClient returns a client's messages, newest first.
func (r *Repository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Message, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opList)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, content, metadata, is_read, created_at
		FROM system_messages
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list system messages failed", err).WithOp(opList)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ClientID, &m.Content, &m.Metadata, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan system message failed", err).WithOp(opList)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate system messages failed", err).WithOp(opList)
	}
	return messages, nil
}

// MarkRead flags a message as read.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, clientID uuid.UUID) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opMarkRead)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE system_messages SET is_read = TRUE WHERE id = $1 AND client_id = $2
	`, id, clientID)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "mark message read failed", err).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("message not found").WithOp(opMarkRead)
	}
	return nil
}
