// Package calendarevents persists calendar entries produced by the lifecycle
// engine (follow-up consultations, reviews). Entries carry a back-reference
// to the follow-up in their metadata instead of an ownership relation.
package calendarevents

import (
	"context"
	"time"

	"nutricoach_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate    = "calendarevents.repository.create"
	opListRange = "calendarevents.repository.list_range"

	errRepoNotConfigured = "calendar events repository not configured"
)

// Event is one calendar entry.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	ClientID  uuid.UUID      `json:"clientId"`
	EventDate time.Time      `json:"eventDate"`
	EventType string         `json:"eventType"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CreateParams inserts one calendar entry.
type CreateParams struct {
	ClientID  uuid.UUID
	EventDate time.Time
	EventType string
	Title     string
	Metadata  map[string]any
}

// Repository stores calendar events in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a calendar events repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a calendar event.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Event, error) {
	if r == nil || r.pool == nil {
		return Event{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreate)
	}
	if p.ClientID == uuid.Nil || p.EventType == "" {
		return Event{}, apperr.Validation("clientId and eventType are required").WithOp(opCreate)
	}

	var e Event
	err := r.pool.QueryRow(ctx, `
		INSERT INTO calendar_events (client_id, event_date, event_type, title, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, client_id, event_date, event_type, title, metadata, created_at
	`, p.ClientID, p.EventDate, p.EventType, p.Title, p.Metadata).Scan(
		&e.ID, &e.ClientID, &e.EventDate, &e.EventType, &e.Title, &e.Metadata, &e.CreatedAt,
	)
	if err != nil {
		return Event{}, apperr.Wrap(apperr.KindUnavailable, "create calendar event failed", err).WithOp(opCreate)
	}
	return e, nil
}

// ListRange returns events for a client between two dates, inclusive.
func (r *Repository) ListRange(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]Event, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListRange)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, event_date, event_type, title, metadata, created_at
		FROM calendar_events
		WHERE client_id = $1 AND event_date BETWEEN $2 AND $3
		ORDER BY event_date
	`, clientID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list calendar events failed", err).WithOp(opListRange)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.ClientID, &e.EventDate, &e.EventType, &e.Title, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan calendar event failed", err).WithOp(opListRange)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate calendar events failed", err).WithOp(opListRange)
	}
	return events, nil
}
