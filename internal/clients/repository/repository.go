// Package repository persists coaching clients.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreateClient = "clients.create"
	opGetClient    = "clients.get"
	opListClients  = "clients.list"
	opUpdateClient = "clients.update"
	opSetStatus    = "clients.set_status"
	opStartProgram = "clients.start_program"
)

const pgUniqueViolation = "23505"

const errRepoNotConfigured = "clients repository is not configured"

// Client is one coaching client row.
type Client struct {
	ID               uuid.UUID           `json:"id"`
	FullName         string              `json:"fullName"`
	Email            string              `json:"email"`
	Phone            string              `json:"phone"`
	ServiceType      domain.ServiceType  `json:"serviceType"`
	Status           domain.ClientStatus `json:"status"`
	ProgramStartedAt *time.Time          `json:"programStartedAt,omitempty"`
	Notes            string              `json:"notes"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateParams inserts one client.
type CreateParams struct {
	FullName    string
	Email       string
	Phone       string
	ServiceType domain.ServiceType
	Notes       string
}

const clientColumns = `id, full_name, email, phone, service_type, status, program_started_at, notes, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.ServiceType,
		&c.Status, &c.ProgramStartedAt, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a new client in pending status. A duplicate email maps to a
// conflict.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Client, error) {
	if r == nil || r.pool == nil {
		return Client{}, apperr.Internal(errRepoNotConfigured).WithOp(opCreateClient)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (full_name, email, phone, service_type, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+clientColumns+`
	`, p.FullName, strings.ToLower(p.Email), p.Phone, p.ServiceType, domain.ClientStatusPending, p.Notes)

	client, err := scanClient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Client{}, apperr.Conflict("a client with this email already exists").WithOp(opCreateClient)
		}
		return Client{}, apperr.Wrap(apperr.KindInternal, "create client failed", err).WithOp(opCreateClient)
	}
	return client, nil
}

// GetByID loads one client.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	if r == nil || r.pool == nil {
		return Client{}, apperr.Internal(errRepoNotConfigured).WithOp(opGetClient)
	}

	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	client, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, apperr.NotFound("client not found").WithOp(opGetClient)
	}
	if err != nil {
		return Client{}, apperr.Wrap(apperr.KindInternal, "get client failed", err).WithOp(opGetClient)
	}
	return client, nil
}

// ListParams filters and paginates the client list.
type ListParams struct {
	Status      domain.ClientStatus
	ServiceType domain.ServiceType
	Offset      int
	Limit       int
}

// List returns a filtered page of clients plus the total match count.
func (r *Repository) List(ctx context.Context, p ListParams) ([]Client, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, apperr.Internal(errRepoNotConfigured).WithOp(opListClients)
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if p.Status != "" {
		args = append(args, p.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.ServiceType != "" {
		args = append(args, p.ServiceType)
		where = append(where, fmt.Sprintf("service_type = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count clients failed", err).WithOp(opListClients)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, p.Offset)
	query := fmt.Sprintf(`SELECT `+clientColumns+` FROM clients%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list clients failed", err).WithOp(opListClients)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "scan client failed", err).WithOp(opListClients)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "iterate clients failed", err).WithOp(opListClients)
	}
	return clients, total, nil
}

// UpdateParams carries partial client field updates; nil leaves a field as-is.
type UpdateParams struct {
	FullName *string
	Email    *string
	Phone    *string
	Notes    *string
}

// Update applies the non-nil fields and returns the updated row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (Client, error) {
	if r == nil || r.pool == nil {
		return Client{}, apperr.Internal(errRepoNotConfigured).WithOp(opUpdateClient)
	}

	var email *string
	if p.Email != nil {
		lowered := strings.ToLower(*p.Email)
		email = &lowered
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE clients SET
			full_name = COALESCE($2, full_name),
			email     = COALESCE($3, email),
			phone     = COALESCE($4, phone),
			notes     = COALESCE($5, notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+clientColumns+`
	`, id, p.FullName, email, p.Phone, p.Notes)

	client, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, apperr.NotFound("client not found").WithOp(opUpdateClient)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Client{}, apperr.Conflict("a client with this email already exists").WithOp(opUpdateClient)
		}
		return Client{}, apperr.Wrap(apperr.KindInternal, "update client failed", err).WithOp(opUpdateClient)
	}
	return client, nil
}

// SetStatus changes the engagement status. Inactive clients drop out of the
// batch evaluator on its next run.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status domain.ClientStatus) (Client, error) {
	if r == nil || r.pool == nil {
		return Client{}, apperr.Internal(errRepoNotConfigured).WithOp(opSetStatus)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE clients SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+clientColumns+`
	`, id, status)

	client, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, apperr.NotFound("client not found").WithOp(opSetStatus)
	}
	if err != nil {
		return Client{}, apperr.Wrap(apperr.KindInternal, "set client status failed", err).WithOp(opSetStatus)
	}
	return client, nil
}

// StartProgram activates the client and stamps the program start date. The
// date is only set once, so a retried start keeps the original day zero.
func (r *Repository) StartProgram(ctx context.Context, id uuid.UUID, startedAt time.Time) (Client, error) {
	if r == nil || r.pool == nil {
		return Client{}, apperr.Internal(errRepoNotConfigured).WithOp(opStartProgram)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE clients SET
			status = $2,
			program_started_at = COALESCE(program_started_at, $3),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+clientColumns+`
	`, id, domain.ClientStatusActive, startedAt)

	client, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, apperr.NotFound("client not found").WithOp(opStartProgram)
	}
	if err != nil {
		return Client{}, apperr.Wrap(apperr.KindInternal, "start program failed", err).WithOp(opStartProgram)
	}
	return client, nil
}
