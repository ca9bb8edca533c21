package domain

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who triggered a stage transition: the system batch or a
// specific admin.
type Actor string

// ActorSystem is the actor recorded for batch-evaluator transitions.
const ActorSystem Actor = "system"

// AdminActor builds the actor value for an admin-triggered transition.
func AdminActor(adminID uuid.UUID) Actor {
	return Actor(adminID.String())
}

// WorkflowState is the single row per client tracking its position in the
// program. Mutated only by the action dispatcher.
type WorkflowState struct {
	ClientID         uuid.UUID   `json:"clientId"`
	ServiceType      ServiceType `json:"serviceType"`
	CurrentStage     Stage       `json:"currentStage"`
	NextAction       string      `json:"nextAction"`
	NextActionDueAt  *time.Time  `json:"nextActionDueAt,omitempty"`
	StageCompletedAt *time.Time  `json:"stageCompletedAt,omitempty"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// WorkflowHistoryEntry is one append-only audit row per stage transition.
type WorkflowHistoryEntry struct {
	ID          int64     `json:"id"`
	ClientID    uuid.UUID `json:"clientId"`
	Stage       Stage     `json:"stage"`
	Action      string    `json:"action"`
	TriggeredAt time.Time `json:"triggeredAt"`
	TriggeredBy Actor     `json:"triggeredBy"`
}

// FollowUpStatus is the lifecycle status of a follow-up record.
type FollowUpStatus string

const (
	FollowUpStatusPending   FollowUpStatus = "pending"
	FollowUpStatusCompleted FollowUpStatus = "completed"
	FollowUpStatusCancelled FollowUpStatus = "cancelled"
)

// FollowUp is one row per (client, milestone type). Its presence is the proof
// that the milestone has already been processed.
type FollowUp struct {
	ID            uuid.UUID      `json:"id"`
	ClientID      uuid.UUID      `json:"clientId"`
	FollowUpType  string         `json:"followUpType"`
	ScheduledDate time.Time      `json:"scheduledDate"`
	Status        FollowUpStatus `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
}
