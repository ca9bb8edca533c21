// Package service provides business logic for managing coaching clients.
package service

import (
	"context"
	"time"

	"nutricoach_backend/internal/clients/repository"
	"nutricoach_backend/internal/clients/transport"
	"nutricoach_backend/internal/events"
	"nutricoach_backend/internal/lifecycle/domain"
	lifecyclerepo "nutricoach_backend/internal/lifecycle/repository"
	"nutricoach_backend/platform/apperr"
	"nutricoach_backend/platform/logger"
	"nutricoach_backend/platform/phone"

	"github.com/google/uuid"
)

// WorkflowOpener opens a client's workflow at its first stage. Implemented by
// the lifecycle repository.
type WorkflowOpener interface {
	CreateState(ctx context.Context, p lifecyclerepo.CreateStateParams) error
}

// Service provides client management on top of the repository, wiring new
// clients into the lifecycle engine.
type Service struct {
	repo      *repository.Repository
	workflows WorkflowOpener
	table     *domain.StageTable
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates the clients service.
func New(repo *repository.Repository, workflows WorkflowOpener, table *domain.StageTable, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		workflows: workflows,
		table:     table,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// Create registers a new client. The phone number is normalized to E.164;
// when StartProgram is set the workflow opens immediately.
func (s *Service) Create(ctx context.Context, req transport.CreateClientRequest, actor domain.Actor) (transport.ClientResponse, error) {
	client, err := s.repo.Create(ctx, repository.CreateParams{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       phone.NormalizeE164(req.Phone),
		ServiceType: domain.ServiceType(req.ServiceType),
		Notes:       req.Notes,
	})
	if err != nil {
		return transport.ClientResponse{}, err
	}

	s.log.Info("client created", "clientId", client.ID, "serviceType", client.ServiceType)

	if req.StartProgram {
		started, err := s.StartProgram(ctx, client.ID, actor)
		if err != nil {
			return transport.ClientResponse{}, err
		}
		return started, nil
	}

	return toResponse(client), nil
}

// StartProgram activates the client, stamps day zero and opens the workflow
// at the service type's first stage. Safe to retry; an already-open workflow
// is left untouched.
func (s *Service) StartProgram(ctx context.Context, id uuid.UUID, actor domain.Actor) (transport.ClientResponse, error) {
	startedAt := s.now()

	client, err := s.repo.StartProgram(ctx, id, startedAt)
	if err != nil {
		return transport.ClientResponse{}, err
	}

	first, ok := s.table.First(client.ServiceType)
	if !ok {
		return transport.ClientResponse{}, apperr.Internal("no stages configured for service type " + string(client.ServiceType))
	}

	var dueAt *time.Time
	if first.DueOffsetDays != nil && client.ProgramStartedAt != nil {
		due := client.ProgramStartedAt.AddDate(0, 0, *first.DueOffsetDays)
		dueAt = &due
	}

	if err := s.workflows.CreateState(ctx, lifecyclerepo.CreateStateParams{
		ClientID:        client.ID,
		ServiceType:     client.ServiceType,
		InitialStage:    first.Key,
		NextAction:      first.NextAction,
		NextActionDueAt: dueAt,
		Actor:           actor,
	}); err != nil {
		return transport.ClientResponse{}, err
	}

	s.log.Info("program started", "clientId", client.ID, "stage", first.Key)

	if s.bus != nil && client.ProgramStartedAt != nil {
		s.bus.Publish(ctx, events.ProgramStarted{
			BaseEvent:   events.NewBaseEvent(),
			ClientID:    client.ID,
			ServiceType: client.ServiceType,
			StartedAt:   *client.ProgramStartedAt,
			Email:       client.Email,
			FullName:    client.FullName,
		})
	}

	return toResponse(client), nil
}

// GetByID retrieves one client.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ClientResponse, error) {
	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	return toResponse(client), nil
}

// List retrieves a filtered page of clients.
func (s *Service) List(ctx context.Context, req transport.ListClientsRequest) (transport.ClientListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	clients, total, err := s.repo.List(ctx, repository.ListParams{
		Status:      domain.ClientStatus(req.Status),
		ServiceType: domain.ServiceType(req.ServiceType),
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
	})
	if err != nil {
		return transport.ClientListResponse{}, err
	}

	items := make([]transport.ClientResponse, 0, len(clients))
	for _, c := range clients {
		items = append(items, toResponse(c))
	}
	return transport.ClientListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Update applies partial field changes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateClientRequest) (transport.ClientResponse, error) {
	var normalized *string
	if req.Phone != nil {
		p := phone.NormalizeE164(*req.Phone)
		normalized = &p
	}

	client, err := s.repo.Update(ctx, id, repository.UpdateParams{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    normalized,
		Notes:    req.Notes,
	})
	if err != nil {
		return transport.ClientResponse{}, err
	}
	return toResponse(client), nil
}

// SetStatus changes the engagement status.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status domain.ClientStatus) (transport.ClientResponse, error) {
	client, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return transport.ClientResponse{}, err
	}
	s.log.Info("client status changed", "clientId", client.ID, "status", client.Status)
	return toResponse(client), nil
}

func toResponse(c repository.Client) transport.ClientResponse {
	return transport.ClientResponse{
		ID:               c.ID,
		FullName:         c.FullName,
		Email:            c.Email,
		Phone:            c.Phone,
		ServiceType:      string(c.ServiceType),
		Status:           string(c.Status),
		ProgramStartedAt: c.ProgramStartedAt,
		Notes:            c.Notes,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
