package scheduler

import (
	"context"
	"errors"
	"fmt"

	"nutricoach_backend/internal/contentgen"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/service"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/platform/config"
	"nutricoach_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// BatchEvaluator runs one lifecycle batch pass. Implemented by the lifecycle
// evaluator.
type BatchEvaluator interface {
	Run(ctx context.Context, manual bool) (service.RunSummary, error)
}

// ContentDrafter produces one coaching content draft.
type ContentDrafter interface {
	Generate(ctx context.Context, req contentgen.Request) (*contentgen.Draft, error)
}

// MessageCreator stores a finished draft as a portal message.
type MessageCreator interface {
	Create(ctx context.Context, p messaging.CreateParams) (messaging.Message, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	evaluator BatchEvaluator
	drafter   ContentDrafter
	messages  MessageCreator
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, evaluator BatchEvaluator, drafter ContentDrafter, messages MessageCreator, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		evaluator: evaluator,
		drafter:   drafter,
		messages:  messages,
		log:       log,
	}

	mux.HandleFunc(TaskLifecycleBatchRun, w.handleLifecycleBatchRun)
	if drafter != nil && messages != nil {
		mux.HandleFunc(TaskLifecycleContentGenerate, w.handleLifecycleContentGenerate)
	}

	return w, nil
}

func (w *Worker) handleLifecycleContentGenerate(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLifecycleContentGeneratePayload(task)
	if err != nil {
		return err
	}

	draft, err := w.drafter.Generate(ctx, contentgen.Request{
		ClientID:    payload.ClientID,
		ClientName:  payload.ClientName,
		ServiceType: domain.ServiceType(payload.ServiceType),
		Kind:        contentgen.ContentKind(payload.Kind),
	})
	if errors.Is(err, contentgen.ErrDisabled) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := w.messages.Create(ctx, messaging.CreateParams{
		ClientID: payload.ClientID,
		Content:  draft.Summary,
		Metadata: map[string]any{"kind": payload.Kind, "title": draft.Title, "draft": draft},
	}); err != nil {
		return err
	}

	w.log.Info("content draft delivered", "clientId", payload.ClientID, "kind", payload.Kind)
	return nil
}

func (w *Worker) handleLifecycleBatchRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLifecycleBatchRunPayload(task)
	if err != nil {
		return err
	}

	summary, err := w.evaluator.Run(ctx, payload.Manual)
	if err != nil {
		// Returning the error lets asynq retry the whole run; the follow-up
		// unique key keeps the retry from duplicating milestone work.
		return err
	}

	w.log.Info("lifecycle batch run finished",
		"clientsChecked", summary.ClientsChecked,
		"followUpsCreated", summary.FollowUpsCreated,
		"messagesSent", summary.MessagesSent,
		"clientsFailed", summary.ClientsFailed,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
