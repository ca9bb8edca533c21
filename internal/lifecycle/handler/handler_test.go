package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/platform/apperr"
	"nutricoach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeFollowUpUpdater struct {
	id     uuid.UUID
	status domain.FollowUpStatus
	err    error
}

func (f *fakeFollowUpUpdater) SetFollowUpStatus(_ context.Context, id uuid.UUID, status domain.FollowUpStatus) error {
	if f.err != nil {
		return f.err
	}
	f.id = id
	f.status = status
	return nil
}

func newFollowUpRouter(followUps *fakeFollowUpUpdater) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := New(nil, nil, nil, followUps, nil, validator.New())
	h.RegisterRoutes(engine.Group("/lifecycle"))
	return engine
}

func TestUpdateFollowUpCompletes(t *testing.T) {
	followUps := &fakeFollowUpUpdater{}
	engine := newFollowUpRouter(followUps)

	id := uuid.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/lifecycle/follow-ups/"+id.String(),
		strings.NewReader(`{"status":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if followUps.id != id {
		t.Errorf("follow-up id = %s, want %s", followUps.id, id)
	}
	if followUps.status != domain.FollowUpStatusCompleted {
		t.Errorf("status = %q, want %q", followUps.status, domain.FollowUpStatusCompleted)
	}
}

func TestUpdateFollowUpRejectsUnknownStatus(t *testing.T) {
	engine := newFollowUpRouter(&fakeFollowUpUpdater{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/lifecycle/follow-ups/"+uuid.NewString(),
		strings.NewReader(`{"status":"snoozed"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateFollowUpNotFound(t *testing.T) {
	engine := newFollowUpRouter(&fakeFollowUpUpdater{err: apperr.NotFound("follow-up not found")})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/lifecycle/follow-ups/"+uuid.NewString(),
		strings.NewReader(`{"status":"cancelled"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body %s", rec.Code, rec.Body.String())
	}
}
