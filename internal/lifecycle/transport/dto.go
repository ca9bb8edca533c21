// Package transport defines the request and response shapes of the lifecycle
// admin API.
package transport

import (
	"nutricoach_backend/internal/lifecycle/domain"
)

// TriggerStageRequest asks the dispatcher to complete the client's current
// stage. Stage must match the stage shown in the admin UI when the button was
// rendered; a stale value results in a skipped no-op, not an error.
type TriggerStageRequest struct {
	ClientID string `json:"clientId" validate:"required,uuid"`
	Stage    string `json:"stage" validate:"required"`
}

// UpdateFollowUpRequest closes out a pending follow-up, either as handled
// or cancelled.
type UpdateFollowUpRequest struct {
	Status string `json:"status" validate:"required,oneof=completed cancelled"`
}

// ClientStateResponse combines the current workflow position with its full
// transition history.
type ClientStateResponse struct {
	State   domain.WorkflowState          `json:"state"`
	History []domain.WorkflowHistoryEntry `json:"history"`
}
