// Package service implements the lifecycle engine: the action dispatcher
// that executes stage side effects and the batch evaluator that advances
// clients through their program milestones.
package service

import (
	"context"

	"nutricoach_backend/internal/calendarevents"
	"nutricoach_backend/internal/contentgen"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/repository"
	"nutricoach_backend/internal/lifecycle/runstatus"
	"nutricoach_backend/internal/messaging"

	"github.com/google/uuid"
)

// StateStore is the workflow state surface the engine mutates.
type StateStore interface {
	GetState(ctx context.Context, clientID uuid.UUID) (domain.WorkflowState, error)
	Advance(ctx context.Context, p repository.AdvanceParams) error
}

// FollowUpStore is the follow-up surface; its unique-key insert is the
// idempotency guard.
type FollowUpStore interface {
	CreateFollowUp(ctx context.Context, p repository.CreateFollowUpParams) (domain.FollowUp, error)
	AlreadyProcessed(ctx context.Context, clientID uuid.UUID, followUpType string) (bool, error)
	GetPendingFollowUp(ctx context.Context, clientID uuid.UUID, followUpType string) (*domain.FollowUp, error)
}

// ClientSource loads the clients the engine operates on.
type ClientSource interface {
	ListEligibleClients(ctx context.Context, serviceTypes []domain.ServiceType) ([]repository.EligibleClient, error)
	GetClientInfo(ctx context.Context, clientID uuid.UUID) (repository.EligibleClient, error)
}

// MessageSink accepts system messages for the client portal.
type MessageSink interface {
	Create(ctx context.Context, p messaging.CreateParams) (messaging.Message, error)
}

// CalendarSink accepts calendar entries.
type CalendarSink interface {
	Create(ctx context.Context, p calendarevents.CreateParams) (calendarevents.Event, error)
}

// EmailSink mirrors messages to the client's inbox, best-effort.
type EmailSink interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// ContentProducer drafts AI content for stage side effects.
type ContentProducer = contentgen.Producer

// ContentQueue defers draft generation to the background worker so the
// model call never runs inside a request.
type ContentQueue interface {
	EnqueueContentDraft(ctx context.Context, req contentgen.Request) error
}

// RunRecorder stores the outcome of a batch run for the admin status view.
type RunRecorder interface {
	Record(ctx context.Context, status runstatus.Status) error
}
