package service

import (
	"context"

	"nutricoach_backend/internal/events"
	"nutricoach_backend/platform/logger"
)

// Audit writes a structured log line for every lifecycle event on the bus,
// giving operators one place to follow transitions and batch runs.
type Audit struct {
	log *logger.Logger
}

func NewAudit(log *logger.Logger) *Audit {
	return &Audit{log: log}
}

// RegisterHandlers subscribes the audit handlers on the bus.
func (a *Audit) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.StageAdvanced{}.EventName(), events.HandlerFunc(a.onStageAdvanced))
	bus.Subscribe(events.BatchRunCompleted{}.EventName(), events.HandlerFunc(a.onBatchRunCompleted))
}

func (a *Audit) onStageAdvanced(_ context.Context, event events.Event) error {
	e, ok := event.(events.StageAdvanced)
	if !ok {
		return nil
	}
	a.log.Info("lifecycle: stage advanced",
		"clientId", e.ClientID,
		"fromStage", e.FromStage,
		"toStage", e.ToStage,
		"actor", e.Actor,
	)
	return nil
}

func (a *Audit) onBatchRunCompleted(_ context.Context, event events.Event) error {
	e, ok := event.(events.BatchRunCompleted)
	if !ok {
		return nil
	}
	a.log.Info("lifecycle: batch run completed",
		"manual", e.Manual,
		"clientsChecked", e.ClientsChecked,
		"followUpsCreated", e.FollowUpsCreated,
		"messagesSent", e.MessagesSent,
		"clientsFailed", e.ClientsFailed,
	)
	return nil
}
