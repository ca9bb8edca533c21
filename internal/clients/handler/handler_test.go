package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nutricoach_backend/internal/calendarevents"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeMessageReader struct {
	messages   []messaging.Message
	listLimit  int
	listOffset int
	readMsg    uuid.UUID
	readClient uuid.UUID
	err        error
}

func (f *fakeMessageReader) ListByClient(_ context.Context, _ uuid.UUID, limit, offset int) ([]messaging.Message, error) {
	f.listLimit = limit
	f.listOffset = offset
	return f.messages, f.err
}

func (f *fakeMessageReader) MarkRead(_ context.Context, id uuid.UUID, clientID uuid.UUID) error {
	f.readMsg = id
	f.readClient = clientID
	return f.err
}

type fakeCalendarReader struct {
	events   []calendarevents.Event
	from, to time.Time
	err      error
}

func (f *fakeCalendarReader) ListRange(_ context.Context, _ uuid.UUID, from, to time.Time) ([]calendarevents.Event, error) {
	f.from = from
	f.to = to
	return f.events, f.err
}

func newPortalRouter(messages *fakeMessageReader, calendar *fakeCalendarReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := New(nil, messages, calendar, validator.New())
	h.RegisterRoutes(engine.Group("/clients"))
	return engine
}

func TestListMessages(t *testing.T) {
	clientID := uuid.New()
	messages := &fakeMessageReader{messages: []messaging.Message{
		{ID: uuid.New(), ClientID: clientID, Content: "Day 14 check-in"},
	}}
	engine := newPortalRouter(messages, &fakeCalendarReader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clients/"+clientID.String()+"/messages?limit=5&offset=10", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if messages.listLimit != 5 || messages.listOffset != 10 {
		t.Errorf("list args = (%d, %d), want (5, 10)", messages.listLimit, messages.listOffset)
	}
	if !strings.Contains(rec.Body.String(), "Day 14 check-in") {
		t.Errorf("body = %s, want message content", rec.Body.String())
	}
}

func TestListMessagesBadID(t *testing.T) {
	engine := newPortalRouter(&fakeMessageReader{}, &fakeCalendarReader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clients/not-a-uuid/messages", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMarkMessageRead(t *testing.T) {
	clientID := uuid.New()
	messageID := uuid.New()
	messages := &fakeMessageReader{}
	engine := newPortalRouter(messages, &fakeCalendarReader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/clients/"+clientID.String()+"/messages/"+messageID.String()+"/read", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if messages.readMsg != messageID || messages.readClient != clientID {
		t.Errorf("MarkRead args = (%s, %s), want (%s, %s)",
			messages.readMsg, messages.readClient, messageID, clientID)
	}
}

func TestListCalendarRange(t *testing.T) {
	clientID := uuid.New()
	calendar := &fakeCalendarReader{events: []calendarevents.Event{
		{ID: uuid.New(), ClientID: clientID, Title: "Midpoint review"},
	}}
	engine := newPortalRouter(&fakeMessageReader{}, calendar)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/clients/"+clientID.String()+"/calendar?from=2026-03-01&to=2026-06-30", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	wantFrom := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	if !calendar.from.Equal(wantFrom) || !calendar.to.Equal(wantTo) {
		t.Errorf("range = (%v, %v), want (%v, %v)", calendar.from, calendar.to, wantFrom, wantTo)
	}
	if !strings.Contains(rec.Body.String(), "Midpoint review") {
		t.Errorf("body = %s, want event title", rec.Body.String())
	}
}

func TestListCalendarBadDate(t *testing.T) {
	engine := newPortalRouter(&fakeMessageReader{}, &fakeCalendarReader{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/clients/"+uuid.NewString()+"/calendar?from=March", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
