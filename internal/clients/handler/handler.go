// Package handler exposes the clients HTTP endpoints.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"nutricoach_backend/internal/calendarevents"
	"nutricoach_backend/internal/clients/service"
	"nutricoach_backend/internal/clients/transport"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/platform/httpkit"
	"nutricoach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// MessageReader is the portal inbox surface.
type MessageReader interface {
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]messaging.Message, error)
	MarkRead(ctx context.Context, id uuid.UUID, clientID uuid.UUID) error
}

// CalendarReader lists a client's calendar entries in a date range.
type CalendarReader interface {
	ListRange(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]calendarevents.Event, error)
}

type Handler struct {
	svc      *service.Service
	messages MessageReader
	calendar CalendarReader
	val      *validator.Validator
}

func New(svc *service.Service, messages MessageReader, calendar CalendarReader, val *validator.Validator) *Handler {
	return &Handler{svc: svc, messages: messages, calendar: calendar, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.PATCH("/:id/status", h.UpdateStatus)
	rg.POST("/:id/start", h.StartProgram)
	rg.GET("/:id/messages", h.ListMessages)
	rg.POST("/:id/messages/:messageId/read", h.MarkMessageRead)
	rg.GET("/:id/calendar", h.ListCalendar)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, err := h.svc.Create(c.Request.Context(), req, h.actor(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, client)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	client, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, client)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListClientsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	list, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, list)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, client)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	client, err := h.svc.SetStatus(c.Request.Context(), id, domain.ClientStatus(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, client)
}

// StartProgram opens the workflow for an existing client. Retrying is safe.
func (h *Handler) StartProgram(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	client, err := h.svc.StartProgram(c.Request.Context(), id, h.actor(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, client)
}

// ListMessages returns the client's portal inbox, newest first.
func (h *Handler) ListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.messages.ListByClient(c.Request.Context(), id, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	if messages == nil {
		messages = []messaging.Message{}
	}
	httpkit.OK(c, gin.H{"messages": messages})
}

// MarkMessageRead flags one portal message as read.
func (h *Handler) MarkMessageRead(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	messageID, err := uuid.Parse(c.Param("messageId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if httpkit.HandleError(c, h.messages.MarkRead(c.Request.Context(), messageID, clientID)) {
		return
	}
	httpkit.OK(c, gin.H{"status": "read"})
}

// ListCalendar returns the client's calendar entries. Without explicit
// bounds it covers 30 days back and 100 days ahead, the widest span the
// program plans into.
func (h *Handler) ListCalendar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now.AddDate(0, 0, 100)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "to must be YYYY-MM-DD")
			return
		}
		to = parsed
	}

	entries, err := h.calendar.ListRange(c.Request.Context(), id, from, to)
	if httpkit.HandleError(c, err) {
		return
	}
	if entries == nil {
		entries = []calendarevents.Event{}
	}
	httpkit.OK(c, gin.H{"events": entries})
}

func (h *Handler) actor(c *gin.Context) domain.Actor {
	if adminID, ok := httpkit.GetAdminID(c); ok {
		return domain.AdminActor(adminID)
	}
	return domain.ActorSystem
}
