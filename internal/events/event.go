// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// ProgramStarted is published when a client's program begins.
type ProgramStarted struct {
	BaseEvent
	ClientID    uuid.UUID          `json:"clientId"`
	ServiceType domain.ServiceType `json:"serviceType"`
	StartedAt   time.Time          `json:"startedAt"`
	Email       string             `json:"email"`
	FullName    string             `json:"fullName"`
}

func (e ProgramStarted) EventName() string { return "lifecycle.program.started" }

// StageAdvanced is published after a successful stage transition.
type StageAdvanced struct {
	BaseEvent
	ClientID  uuid.UUID    `json:"clientId"`
	FromStage domain.Stage `json:"fromStage"`
	ToStage   domain.Stage `json:"toStage"`
	Actor     domain.Actor `json:"actor"`
}

func (e StageAdvanced) EventName() string { return "lifecycle.stage.advanced" }

// MilestoneProcessed is published once per (client, milestone) after the
// batch evaluator created the follow-up for it.
type MilestoneProcessed struct {
	BaseEvent
	ClientID     uuid.UUID `json:"clientId"`
	FollowUpID   uuid.UUID `json:"followUpId"`
	FollowUpType string    `json:"followUpType"`
	MilestoneDay int       `json:"milestoneDay"`
	Final        bool      `json:"final"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
}

func (e MilestoneProcessed) EventName() string { return "lifecycle.milestone.processed" }

// BatchRunCompleted is published at the end of every evaluator run.
type BatchRunCompleted struct {
	BaseEvent
	Manual           bool `json:"manual"`
	ClientsChecked   int  `json:"clientsChecked"`
	FollowUpsCreated int  `json:"followUpsCreated"`
	MessagesSent     int  `json:"messagesSent"`
	ClientsFailed    int  `json:"clientsFailed"`
}

func (e BatchRunCompleted) EventName() string { return "lifecycle.batch.completed" }
