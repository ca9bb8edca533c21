// Package clients provides the coaching clients bounded context module.
package clients

import (
	"nutricoach_backend/internal/calendarevents"
	"nutricoach_backend/internal/clients/handler"
	"nutricoach_backend/internal/clients/repository"
	"nutricoach_backend/internal/clients/service"
	"nutricoach_backend/internal/events"
	apphttp "nutricoach_backend/internal/http"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/platform/logger"
	"nutricoach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the clients module. The workflow opener
// comes from the lifecycle module so program start opens the workflow in the
// same place stage transitions are recorded.
func NewModule(pool *pgxpool.Pool, workflows service.WorkflowOpener, table *domain.StageTable, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, workflows, table, eventBus, log)
	h := handler.New(svc, messaging.New(pool), calendarevents.New(pool), val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts client routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All client routes require authentication
	group := ctx.Protected.Group("/clients")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
