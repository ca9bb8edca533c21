package repository

import (
	"context"
	"errors"
	"time"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	opCreateFollowUp    = "lifecycle.repository.create_follow_up"
	opAlreadyProcessed  = "lifecycle.repository.already_processed"
	opGetPendingFollow  = "lifecycle.repository.get_pending_follow_up"
	opSetFollowUpStatus = "lifecycle.repository.set_follow_up_status"

	pgUniqueViolation = "23505"
)

// CreateFollowUpParams inserts one follow-up record.
type CreateFollowUpParams struct {
	ClientID      uuid.UUID
	FollowUpType  string
	ScheduledDate time.Time
}

// CreateFollowUp inserts the follow-up row. The UNIQUE constraint on
// (client_id, follow_up_type) is the idempotency key: a duplicate insert
// returns apperr.KindConflict, which callers treat as "milestone already
// processed". Two concurrent writers therefore serialize on the database
// constraint, no external locking needed.
func (r *Repository) CreateFollowUp(ctx context.Context, p CreateFollowUpParams) (domain.FollowUp, error) {
	if r == nil || r.pool == nil {
		return domain.FollowUp{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreateFollowUp)
	}
	if p.ClientID == uuid.Nil || p.FollowUpType == "" {
		return domain.FollowUp{}, apperr.Validation("clientId and followUpType are required").WithOp(opCreateFollowUp)
	}

	var f domain.FollowUp
	err := r.pool.QueryRow(ctx, `
		INSERT INTO follow_ups (client_id, follow_up_type, scheduled_date)
		VALUES ($1, $2, $3)
		RETURNING id, client_id, follow_up_type, scheduled_date, status, created_at
	`, p.ClientID, p.FollowUpType, p.ScheduledDate).Scan(
		&f.ID, &f.ClientID, &f.FollowUpType, &f.ScheduledDate, &f.Status, &f.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.FollowUp{}, apperr.Conflict("follow-up already exists for this milestone").WithOp(opCreateFollowUp)
		}
		return domain.FollowUp{}, apperr.Wrap(apperr.KindUnavailable, "create follow-up failed", err).WithOp(opCreateFollowUp)
	}
	return f, nil
}

// AlreadyProcessed reports whether a follow-up exists for the
// (client, milestone type) pair.
func (r *Repository) AlreadyProcessed(ctx context.Context, clientID uuid.UUID, followUpType string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, apperr.Internal(errRepoNotConfigured).WithOp(opAlreadyProcessed)
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM follow_ups WHERE client_id = $1 AND follow_up_type = $2
		)
	`, clientID, followUpType).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, "follow-up existence check failed", err).WithOp(opAlreadyProcessed)
	}
	return exists, nil
}

// GetPendingFollowUp returns the pending follow-up of the given type, or nil
// when none exists.
func (r *Repository) GetPendingFollowUp(ctx context.Context, clientID uuid.UUID, followUpType string) (*domain.FollowUp, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opGetPendingFollow)
	}

	var f domain.FollowUp
	err := r.pool.QueryRow(ctx, `
		SELECT id, client_id, follow_up_type, scheduled_date, status, created_at
		FROM follow_ups
		WHERE client_id = $1 AND follow_up_type = $2 AND status = 'pending'
	`, clientID, followUpType).Scan(
		&f.ID, &f.ClientID, &f.FollowUpType, &f.ScheduledDate, &f.Status, &f.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "get pending follow-up failed", err).WithOp(opGetPendingFollow)
	}
	return &f, nil
}

// SetFollowUpStatus transitions a follow-up record's status. The completion
// flow itself lives outside the lifecycle engine; this is its write path.
func (r *Repository) SetFollowUpStatus(ctx context.Context, id uuid.UUID, status domain.FollowUpStatus) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opSetFollowUpStatus)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE follow_ups SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "set follow-up status failed", err).WithOp(opSetFollowUpStatus)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("follow-up not found").WithOp(opSetFollowUpStatus)
	}
	return nil
}
