// Package repository persists the lifecycle engine's state: workflow states,
// the append-only transition history and the follow-up records whose
// uniqueness constraint doubles as the milestone idempotency key.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreateState   = "lifecycle.repository.create_state"
	opGetState      = "lifecycle.repository.get_state"
	opAdvance       = "lifecycle.repository.advance"
	opListHistory   = "lifecycle.repository.list_history"
	opListEligible  = "lifecycle.repository.list_eligible"
	opGetClientInfo = "lifecycle.repository.get_client_info"

	errRepoNotConfigured = "lifecycle repository not configured"
)

// Repository provides access to workflow states, history and follow-ups.
// The stage table is injected so transitions can be order-checked before
// they hit the database.
type Repository struct {
	pool  *pgxpool.Pool
	table *domain.StageTable
}

// New creates a lifecycle repository on the given pool.
func New(pool *pgxpool.Pool, table *domain.StageTable) *Repository {
	return &Repository{pool: pool, table: table}
}

// CreateStateParams starts a client's workflow at its service type's first stage.
type CreateStateParams struct {
	ClientID        uuid.UUID
	ServiceType     domain.ServiceType
	InitialStage    domain.Stage
	NextAction      string
	NextActionDueAt *time.Time
	Actor           domain.Actor
}

// CreateState inserts the 1:1 workflow state row and the opening history
// entry in one transaction. A state that already exists is left untouched,
// so program start is safe to retry.
func (r *Repository) CreateState(ctx context.Context, p CreateStateParams) error {
	if r == nil || r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opCreateState)
	}
	if p.ClientID == uuid.Nil {
		return apperr.Validation("clientId is required").WithOp(opCreateState)
	}
	if !p.ServiceType.IsValid() {
		return apperr.Validation("unknown service type").WithOp(opCreateState)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "begin transaction failed", err).WithOp(opCreateState)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO workflow_states (client_id, service_type, current_stage, next_action, next_action_due_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (client_id) DO NOTHING
	`, p.ClientID, p.ServiceType, p.InitialStage, p.NextAction, p.NextActionDueAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "create workflow state failed", err).WithOp(opCreateState)
	}
	if tag.RowsAffected() == 0 {
		// Already started; nothing to record.
		return nil
	}

	actor := p.Actor
	if actor == "" {
		actor = domain.ActorSystem
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO workflow_history (client_id, stage, action, triggered_by)
		VALUES ($1, $2, $3, $4)
	`, p.ClientID, p.InitialStage, "program_started", actor); err != nil {
		return apperr.Wrap(apperr.KindInternal, "append workflow history failed", err).WithOp(opCreateState)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit workflow state failed", err).WithOp(opCreateState)
	}
	return nil
}

// GetState returns the workflow state for a client.
func (r *Repository) GetState(ctx context.Context, clientID uuid.UUID) (domain.WorkflowState, error) {
	if r == nil || r.pool == nil {
		return domain.WorkflowState{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetState)
	}

	var s domain.WorkflowState
	err := r.pool.QueryRow(ctx, `
		SELECT client_id, service_type, current_stage, next_action, next_action_due_at, stage_completed_at, updated_at
		FROM workflow_states
		WHERE client_id = $1
	`, clientID).Scan(
		&s.ClientID, &s.ServiceType, &s.CurrentStage, &s.NextAction, &s.NextActionDueAt, &s.StageCompletedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WorkflowState{}, apperr.NotFound("workflow state not found").WithOp(opGetState)
	}
	if err != nil {
		return domain.WorkflowState{}, apperr.Wrap(apperr.KindUnavailable, "get workflow state failed", err).WithOp(opGetState)
	}
	return s, nil
}

// AdvanceParams moves a client's workflow forward one transition.
type AdvanceParams struct {
	ClientID        uuid.UUID
	ServiceType     domain.ServiceType
	FromStage       domain.Stage
	ToStage         domain.Stage
	NextAction      string
	NextActionDueAt *time.Time
	Action          string
	Actor           domain.Actor
}

// Advance stamps the previous stage's completion, swaps the stage fields and
// appends the history row in the same transaction; if either write fails the
// stage change is not visible. A transition that would move the workflow
// backwards, or leave it in place, is rejected before any write. The UPDATE
// is guarded on the expected current stage so a stale caller observes a
// conflict instead of regressing or double-firing the transition.
func (r *Repository) Advance(ctx context.Context, p AdvanceParams) error {
	if r == nil || r.table == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opAdvance)
	}
	if err := r.checkTransition(p); err != nil {
		return err
	}
	if r.pool == nil {
		return apperr.Internal(errRepoNotConfigured).WithOp(opAdvance)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "begin transaction failed", err).WithOp(opAdvance)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE workflow_states
		SET current_stage = $3,
		    next_action = $4,
		    next_action_due_at = $5,
		    stage_completed_at = NOW(),
		    updated_at = NOW()
		WHERE client_id = $1 AND current_stage = $2
	`, p.ClientID, p.FromStage, p.ToStage, p.NextAction, p.NextActionDueAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "advance workflow state failed", err).WithOp(opAdvance)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("stage already advanced").WithOp(opAdvance)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO workflow_history (client_id, stage, action, triggered_by)
		VALUES ($1, $2, $3, $4)
	`, p.ClientID, p.FromStage, p.Action, p.Actor); err != nil {
		return apperr.Wrap(apperr.KindInternal, "append workflow history failed", err).WithOp(opAdvance)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit advance failed", err).WithOp(opAdvance)
	}
	return nil
}

// checkTransition rejects transitions whose target stage is unknown to the
// service type or does not sit strictly after the source stage.
func (r *Repository) checkTransition(p AdvanceParams) error {
	from := r.table.IndexOf(p.ServiceType, p.FromStage)
	to := r.table.IndexOf(p.ServiceType, p.ToStage)
	if from < 0 || to < 0 {
		return apperr.Validation(
			fmt.Sprintf("stage transition %q -> %q is not defined for service type %q", p.FromStage, p.ToStage, p.ServiceType),
		).WithOp(opAdvance)
	}
	if to <= from {
		return apperr.Conflict(
			fmt.Sprintf("transition %q -> %q would not advance the workflow", p.FromStage, p.ToStage),
		).WithOp(opAdvance)
	}
	return nil
}

// ListHistory returns a client's transitions, oldest first.
func (r *Repository) ListHistory(ctx context.Context, clientID uuid.UUID) ([]domain.WorkflowHistoryEntry, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListHistory)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, stage, action, triggered_at, triggered_by
		FROM workflow_history
		WHERE client_id = $1
		ORDER BY triggered_at, id
	`, clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "list workflow history failed", err).WithOp(opListHistory)
	}
	defer rows.Close()

	var entries []domain.WorkflowHistoryEntry
	for rows.Next() {
		var e domain.WorkflowHistoryEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Stage, &e.Action, &e.TriggeredAt, &e.TriggeredBy); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan workflow history failed", err).WithOp(opListHistory)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate workflow history failed", err).WithOp(opListHistory)
	}
	return entries, nil
}

// EligibleClient is the slice of client data the batch evaluator needs.
type EligibleClient struct {
	ID               uuid.UUID
	ServiceType      domain.ServiceType
	ProgramStartedAt time.Time
	Email            string
	FullName         string
}

// GetClientInfo returns the engine's view of a single client.
func (r *Repository) GetClientInfo(ctx context.Context, clientID uuid.UUID) (EligibleClient, error) {
	if r == nil || r.pool == nil {
		return EligibleClient{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetClientInfo)
	}

	var c EligibleClient
	err := r.pool.QueryRow(ctx, `
		SELECT id, service_type, COALESCE(program_started_at, NOW()), email, full_name
		FROM clients
		WHERE id = $1
	`, clientID).Scan(&c.ID, &c.ServiceType, &c.ProgramStartedAt, &c.Email, &c.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return EligibleClient{}, apperr.NotFound("client not found").WithOp(opGetClientInfo)
	}
	if err != nil {
		return EligibleClient{}, apperr.Wrap(apperr.KindUnavailable, "get client info failed", err).WithOp(opGetClientInfo)
	}
	return c, nil
}

// ListEligibleClients returns all active clients of the given service types
// whose program has started.
func (r *Repository) ListEligibleClients(ctx context.Context, serviceTypes []domain.ServiceType) ([]EligibleClient, error) {
	if r == nil || r.pool == nil {
		return nil, apperr.Internal(errRepoNotConfigured).WithOp(opListEligible)
	}
	if len(serviceTypes) == 0 {
		return nil, nil
	}

	types := make([]string, 0, len(serviceTypes))
	for _, st := range serviceTypes {
		types = append(types, string(st))
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, service_type, program_started_at, email, full_name
		FROM clients
		WHERE status = 'active'
		  AND program_started_at IS NOT NULL
		  AND service_type = ANY($1)
		ORDER BY program_started_at
	`, types)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, fmt.Sprintf("list eligible clients failed: %v", err), err).WithOp(opListEligible)
	}
	defer rows.Close()

	var clients []EligibleClient
	for rows.Next() {
		var c EligibleClient
		if err := rows.Scan(&c.ID, &c.ServiceType, &c.ProgramStartedAt, &c.Email, &c.FullName); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan eligible client failed", err).WithOp(opListEligible)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate eligible clients failed", err).WithOp(opListEligible)
	}
	return clients, nil
}
