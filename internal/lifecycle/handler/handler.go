// Package handler exposes the lifecycle engine's admin HTTP endpoints.
package handler

import (
	"context"
	"net/http"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/runstatus"
	"nutricoach_backend/internal/lifecycle/service"
	"nutricoach_backend/internal/lifecycle/transport"
	"nutricoach_backend/platform/httpkit"
	"nutricoach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// StatusReader loads the most recent batch run outcome.
type StatusReader interface {
	Last(ctx context.Context) (runstatus.Status, error)
}

// StateReader loads a client's workflow position and history.
type StateReader interface {
	GetState(ctx context.Context, clientID uuid.UUID) (domain.WorkflowState, error)
	ListHistory(ctx context.Context, clientID uuid.UUID) ([]domain.WorkflowHistoryEntry, error)
}

// FollowUpUpdater closes out follow-up records.
type FollowUpUpdater interface {
	SetFollowUpStatus(ctx context.Context, id uuid.UUID, status domain.FollowUpStatus) error
}

type Handler struct {
	evaluator  *service.Evaluator
	dispatcher *service.Dispatcher
	states     StateReader
	followUps  FollowUpUpdater
	status     StatusReader
	val        *validator.Validator
}

func New(evaluator *service.Evaluator, dispatcher *service.Dispatcher, states StateReader, followUps FollowUpUpdater, status StatusReader, val *validator.Validator) *Handler {
	return &Handler{
		evaluator:  evaluator,
		dispatcher: dispatcher,
		states:     states,
		followUps:  followUps,
		status:     status,
		val:        val,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/run", h.Run)
	rg.POST("/trigger", h.Trigger)
	rg.GET("/status", h.Status)
	rg.GET("/clients/:id", h.ClientState)
	rg.PATCH("/follow-ups/:id", h.UpdateFollowUp)
}

// Run executes a full batch evaluation synchronously and returns its
// counters. The run is marked manual in the recorded status.
func (h *Handler) Run(c *gin.Context) {
	summary, err := h.evaluator.Run(c.Request.Context(), true)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}

// Trigger completes the client's current stage on behalf of the
// authenticated admin.
func (h *Handler) Trigger(c *gin.Context) {
	var req transport.TriggerStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	actor := domain.ActorSystem
	if adminID, ok := httpkit.GetAdminID(c); ok {
		actor = domain.AdminActor(adminID)
	}

	result, err := h.dispatcher.Trigger(c.Request.Context(), clientID, domain.Stage(req.Stage), actor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateFollowUp marks a follow-up completed or cancelled after the coach
// handled (or waved off) the check-in.
func (h *Handler) UpdateFollowUp(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.followUps.SetFollowUpStatus(c.Request.Context(), id, domain.FollowUpStatus(req.Status))) {
		return
	}
	httpkit.OK(c, gin.H{"status": req.Status})
}

// Status returns the outcome of the most recent batch run.
func (h *Handler) Status(c *gin.Context) {
	status, err := h.status.Last(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, status)
}

// ClientState returns the workflow state and transition history for one
// client.
func (h *Handler) ClientState(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	state, err := h.states.GetState(c.Request.Context(), clientID)
	if httpkit.HandleError(c, err) {
		return
	}
	history, err := h.states.ListHistory(c.Request.Context(), clientID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ClientStateResponse{State: state, History: history})
}
