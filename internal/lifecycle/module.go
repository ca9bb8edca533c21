// Package lifecycle provides the client program lifecycle bounded context:
// milestone evaluation, stage dispatch and the admin API around them.
package lifecycle

import (
	"context"

	"nutricoach_backend/internal/calendarevents"
	"nutricoach_backend/internal/config"
	"nutricoach_backend/internal/contentgen"
	"nutricoach_backend/internal/events"
	apphttp "nutricoach_backend/internal/http"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/handler"
	"nutricoach_backend/internal/lifecycle/repository"
	"nutricoach_backend/internal/lifecycle/runstatus"
	"nutricoach_backend/internal/lifecycle/service"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/platform/apperr"
	"nutricoach_backend/platform/logger"
	"nutricoach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the lifecycle bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	evaluator  *service.Evaluator
	dispatcher *service.Dispatcher
	repo       *repository.Repository
	table      *domain.StageTable
}

// NewModule creates and initializes the lifecycle module with all its
// dependencies. rdb may be nil; the batch run status endpoint then reports
// not-found until Redis is configured.
func NewModule(ctx context.Context, pool *pgxpool.Pool, rdb redis.UniversalClient, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) (*Module, error) {
	table := domain.DefaultStageTable()
	if path := cfg.GetStageTablePath(); path != "" {
		loaded, err := domain.LoadStageTable(path)
		if err != nil {
			return nil, err
		}
		table = loaded
	}

	calendar := domain.NewCalendar(table, cfg.GetMilestoneCatchUpDays())

	repo := repository.New(pool, table)
	messages := messaging.New(pool)
	calEvents := calendarevents.New(pool)
	emailer := messaging.NewEmailNotifier(cfg)

	producer, err := contentgen.NewGenAIProducer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var recorder service.RunRecorder
	var status handler.StatusReader = noStatus{}
	if rdb != nil {
		store := runstatus.New(rdb)
		recorder = store
		status = store
	}

	if eventBus != nil {
		messaging.NewNotifications(emailer, log).RegisterHandlers(eventBus)
		service.NewAudit(log).RegisterHandlers(eventBus)
	}

	dispatcher := service.NewDispatcher(table, repo, repo, repo, messages, calEvents, emailer, producer, eventBus, log)
	evaluator := service.NewEvaluator(table, calendar, repo, repo, repo, dispatcher, recorder, eventBus, log, 0)

	h := handler.New(evaluator, dispatcher, repo, repo, status, val)

	return &Module{
		handler:    h,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		repo:       repo,
		table:      table,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "lifecycle"
}

// Evaluator returns the batch evaluator for the scheduler worker.
func (m *Module) Evaluator() *service.Evaluator {
	return m.evaluator
}

// Repository returns the workflow state repository for other modules that
// open workflows (e.g., client onboarding).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Table returns the active stage table.
func (m *Module) Table() *domain.StageTable {
	return m.table
}

// SetContentQueue routes content drafting through the task queue instead of
// the in-process producer.
func (m *Module) SetContentQueue(q service.ContentQueue) {
	m.dispatcher.SetContentQueue(q)
}

// RegisterRoutes mounts the lifecycle admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/lifecycle")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

type noStatus struct{}

func (noStatus) Last(context.Context) (runstatus.Status, error) {
	return runstatus.Status{}, apperr.NotFound("no batch run recorded")
}
