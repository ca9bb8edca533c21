package service

import (
	"context"
	"sync"
	"time"

	"nutricoach_backend/internal/calendarevents"
	"nutricoach_backend/internal/contentgen"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/repository"
	"nutricoach_backend/internal/lifecycle/runstatus"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/platform/apperr"
	"nutricoach_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStateStore struct {
	mu         sync.Mutex
	states     map[uuid.UUID]domain.WorkflowState
	advances   []repository.AdvanceParams
	advanceErr error
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[uuid.UUID]domain.WorkflowState)}
}

func (f *fakeStateStore) put(state domain.WorkflowState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.ClientID] = state
}

func (f *fakeStateStore) GetState(_ context.Context, clientID uuid.UUID) (domain.WorkflowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[clientID]
	if !ok {
		return domain.WorkflowState{}, apperr.NotFound("workflow state not found")
	}
	return state, nil
}

func (f *fakeStateStore) Advance(_ context.Context, p repository.AdvanceParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.advanceErr != nil {
		return f.advanceErr
	}
	state, ok := f.states[p.ClientID]
	if !ok {
		return apperr.NotFound("workflow state not found")
	}
	if state.CurrentStage != p.FromStage {
		return apperr.Conflict("stage already advanced")
	}
	state.CurrentStage = p.ToStage
	state.NextAction = p.NextAction
	state.NextActionDueAt = p.NextActionDueAt
	f.states[p.ClientID] = state
	f.advances = append(f.advances, p)
	return nil
}

type fakeFollowUpStore struct {
	mu        sync.Mutex
	rows      map[string]domain.FollowUp
	createErr error
	checkErr  map[uuid.UUID]error
}

func newFakeFollowUpStore() *fakeFollowUpStore {
	return &fakeFollowUpStore{rows: make(map[string]domain.FollowUp)}
}

func followUpKey(clientID uuid.UUID, followUpType string) string {
	return clientID.String() + "|" + followUpType
}

func (f *fakeFollowUpStore) CreateFollowUp(_ context.Context, p repository.CreateFollowUpParams) (domain.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.FollowUp{}, f.createErr
	}
	key := followUpKey(p.ClientID, p.FollowUpType)
	if _, exists := f.rows[key]; exists {
		return domain.FollowUp{}, apperr.Conflict("follow-up already exists for this milestone")
	}
	followUp := domain.FollowUp{
		ID:            uuid.New(),
		ClientID:      p.ClientID,
		FollowUpType:  p.FollowUpType,
		ScheduledDate: p.ScheduledDate,
		Status:        domain.FollowUpStatusPending,
		CreatedAt:     time.Now(),
	}
	f.rows[key] = followUp
	return followUp, nil
}

func (f *fakeFollowUpStore) AlreadyProcessed(_ context.Context, clientID uuid.UUID, followUpType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkErr[clientID]; err != nil {
		return false, err
	}
	_, exists := f.rows[followUpKey(clientID, followUpType)]
	return exists, nil
}

func (f *fakeFollowUpStore) GetPendingFollowUp(_ context.Context, clientID uuid.UUID, followUpType string) (*domain.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	followUp, exists := f.rows[followUpKey(clientID, followUpType)]
	if !exists || followUp.Status != domain.FollowUpStatusPending {
		return nil, nil
	}
	return &followUp, nil
}

func (f *fakeFollowUpStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeClientSource struct {
	mu      sync.Mutex
	clients []repository.EligibleClient
	listErr error
}

func (f *fakeClientSource) ListEligibleClients(_ context.Context, _ []domain.ServiceType) ([]repository.EligibleClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]repository.EligibleClient(nil), f.clients...), nil
}

func (f *fakeClientSource) GetClientInfo(_ context.Context, clientID uuid.UUID) (repository.EligibleClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.ID == clientID {
			return c, nil
		}
	}
	return repository.EligibleClient{}, apperr.NotFound("client not found")
}

type fakeMessageSink struct {
	mu       sync.Mutex
	messages []messaging.CreateParams
	err      error
}

func (f *fakeMessageSink) Create(_ context.Context, p messaging.CreateParams) (messaging.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return messaging.Message{}, f.err
	}
	f.messages = append(f.messages, p)
	return messaging.Message{
		ID:        uuid.New(),
		ClientID:  p.ClientID,
		Content:   p.Content,
		Metadata:  p.Metadata,
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeMessageSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeCalendarSink struct {
	mu     sync.Mutex
	events []calendarevents.CreateParams
	err    error
}

func (f *fakeCalendarSink) Create(_ context.Context, p calendarevents.CreateParams) (calendarevents.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return calendarevents.Event{}, f.err
	}
	f.events = append(f.events, p)
	return calendarevents.Event{
		ID:        uuid.New(),
		ClientID:  p.ClientID,
		EventDate: p.EventDate,
		EventType: p.EventType,
		Title:     p.Title,
		Metadata:  p.Metadata,
	}, nil
}

func (f *fakeCalendarSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeEmailSink struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeEmailSink) Send(_ context.Context, toEmail, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{To: toEmail, Subject: subject, Body: body})
	return nil
}

type fakeProducer struct {
	mu       sync.Mutex
	requests []contentgen.Request
	draft    *contentgen.Draft
	err      error
}

func (f *fakeProducer) Generate(_ context.Context, req contentgen.Request) (*contentgen.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.draft != nil {
		return f.draft, nil
	}
	return &contentgen.Draft{Kind: req.Kind, Title: "Draft", Summary: "Draft summary"}, nil
}

type fakeContentQueue struct {
	mu       sync.Mutex
	requests []contentgen.Request
}

func (f *fakeContentQueue) EnqueueContentDraft(_ context.Context, req contentgen.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	statuses []runstatus.Status
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, status runstatus.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeRecorder) last() (runstatus.Status, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return runstatus.Status{}, false
	}
	return f.statuses[len(f.statuses)-1], true
}

func testLogger() *logger.Logger {
	return logger.New("development")
}
