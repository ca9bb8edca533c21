package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutricoach_backend/internal/calendarevents"
	"nutricoach_backend/internal/contentgen"
	"nutricoach_backend/internal/events"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/repository"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/platform/apperr"
	"nutricoach_backend/platform/logger"

	"github.com/google/uuid"
)

// StepResult reports one side-effect step of a stage trigger.
type StepResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// TriggerResult summarizes a stage trigger: whether it was a no-op, which
// stage the client advanced to, and how each side-effect step fared.
type TriggerResult struct {
	ClientID   uuid.UUID    `json:"clientId"`
	Stage      domain.Stage `json:"stage"`
	Skipped    bool         `json:"skipped"`
	Reason     string       `json:"reason,omitempty"`
	AdvancedTo domain.Stage `json:"advancedTo,omitempty"`
	Steps      []StepResult `json:"steps,omitempty"`
}

// Dispatcher executes stage side effects and commits the stage advance.
// Side effects are notifications, not correctness-critical state: each step
// is best-effort and independently failing, and a failed step never blocks
// the advance or the other steps.
type Dispatcher struct {
	table        *domain.StageTable
	states       StateStore
	followUps    FollowUpStore
	clients      ClientSource
	messages     MessageSink
	calendar     CalendarSink
	emails       EmailSink
	producer     ContentProducer
	contentQueue ContentQueue
	bus          events.Bus
	log          *logger.Logger
	now          func() time.Time
}

// NewDispatcher wires the action dispatcher. The stage table is injected so
// tests can run against synthetic stage lists.
func NewDispatcher(
	table *domain.StageTable,
	states StateStore,
	followUps FollowUpStore,
	clients ClientSource,
	messages MessageSink,
	calendar CalendarSink,
	emails EmailSink,
	producer ContentProducer,
	bus events.Bus,
	log *logger.Logger,
) *Dispatcher {
	if producer == nil {
		producer = contentgen.Disabled{}
	}
	return &Dispatcher{
		table:     table,
		states:    states,
		followUps: followUps,
		clients:   clients,
		messages:  messages,
		calendar:  calendar,
		emails:    emails,
		producer:  producer,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (d *Dispatcher) SetNow(now func() time.Time) {
	d.now = now
}

// SetContentQueue switches content steps from inline generation to the task
// queue. Without a queue the producer runs in-process.
func (d *Dispatcher) SetContentQueue(q ContentQueue) {
	d.contentQueue = q
}

// Trigger runs the side effects of the client's current stage and advances
// the workflow one step. A stage key that no longer matches the current
// stage yields a skipped result, not an error: the desired end state already
// holds, so a slow UI retry must not double-fire.
func (d *Dispatcher) Trigger(ctx context.Context, clientID uuid.UUID, stage domain.Stage, actor domain.Actor) (TriggerResult, error) {
	state, err := d.states.GetState(ctx, clientID)
	if err != nil {
		return TriggerResult{}, err
	}

	result := TriggerResult{ClientID: clientID, Stage: stage}

	if state.CurrentStage != stage {
		result.Skipped = true
		result.Reason = fmt.Sprintf("client is in stage %q, not %q", state.CurrentStage, stage)
		return result, nil
	}

	desc, ok := d.table.Descriptor(state.ServiceType, stage)
	if !ok {
		return TriggerResult{}, apperr.Validation(
			fmt.Sprintf("stage %q does not belong to service type %q", stage, state.ServiceType))
	}

	next, hasNext := d.table.Next(state.ServiceType, stage)
	if !hasNext {
		result.Skipped = true
		result.Reason = "terminal stage"
		return result, nil
	}

	info, err := d.clients.GetClientInfo(ctx, clientID)
	if err != nil {
		return TriggerResult{}, err
	}

	steps, err := d.stageEffects(stage, info)
	if err != nil {
		return TriggerResult{}, err
	}

	for _, step := range steps {
		stepErr := step.run(ctx)
		d.log.DispatchStep(clientID.String(), string(stage), step.name, stepErr)

		sr := StepResult{Name: step.name, OK: stepErr == nil}
		if stepErr != nil {
			sr.Error = stepErr.Error()
		}
		result.Steps = append(result.Steps, sr)
	}

	var dueAt *time.Time
	if next.DueOffsetDays != nil {
		due := startOfDay(info.ProgramStartedAt).AddDate(0, 0, *next.DueOffsetDays)
		dueAt = &due
	}

	action := desc.NextAction
	if action == "" {
		action = "stage_triggered"
	}

	err = d.states.Advance(ctx, repository.AdvanceParams{
		ClientID:        clientID,
		ServiceType:     state.ServiceType,
		FromStage:       stage,
		ToStage:         next.Key,
		NextAction:      next.NextAction,
		NextActionDueAt: dueAt,
		Action:          action,
		Actor:           actor,
	})
	if apperr.Is(err, apperr.KindConflict) {
		result.Skipped = true
		result.Reason = "stage advanced concurrently"
		return result, nil
	}
	if err != nil {
		return TriggerResult{}, err
	}

	result.AdvancedTo = next.Key

	if d.bus != nil {
		d.bus.Publish(ctx, events.StageAdvanced{
			BaseEvent: events.NewBaseEvent(),
			ClientID:  clientID,
			FromStage: stage,
			ToStage:   next.Key,
			Actor:     actor,
		})
	}

	return result, nil
}

// ProcessMilestone creates the follow-up for a newly-due milestone and fires
// its notification side effects. The follow-up insert is the idempotency
// gate: a conflict means another run got there first and the whole milestone
// is treated as already processed. Returns whether the follow-up was created
// and how many system messages were sent.
func (d *Dispatcher) ProcessMilestone(ctx context.Context, client repository.EligibleClient, m *domain.Milestone) (bool, int, error) {
	tomorrow := startOfDay(d.now()).AddDate(0, 0, 1)

	followUp, err := d.followUps.CreateFollowUp(ctx, repository.CreateFollowUpParams{
		ClientID:      client.ID,
		FollowUpType:  m.FollowUpType,
		ScheduledDate: tomorrow,
	})
	if apperr.Is(err, apperr.KindConflict) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	messagesSent := 0
	meta := map[string]any{
		"followUpId":   followUp.ID.String(),
		"followUpType": m.FollowUpType,
		"milestoneDay": m.Days,
	}

	if _, err := d.messages.Create(ctx, messaging.CreateParams{
		ClientID: client.ID,
		Content:  milestoneMessage(client.FullName, m),
		Metadata: meta,
	}); err != nil {
		d.log.DispatchStep(client.ID.String(), m.FollowUpType, "system_message", err)
	} else {
		messagesSent++
	}

	title := fmt.Sprintf("Day %d check-in", m.Days)
	if m.Final {
		title = "Final program consultation"
	}
	if _, err := d.calendar.Create(ctx, calendarevents.CreateParams{
		ClientID:  client.ID,
		EventDate: tomorrow,
		EventType: "follow_up",
		Title:     title,
		Metadata:  meta,
	}); err != nil {
		d.log.DispatchStep(client.ID.String(), m.FollowUpType, "calendar_event", err)
	}

	// The email mirror hangs off the bus; publishing synchronously keeps
	// milestone processing and its notifications in one pass.
	if d.bus != nil {
		if err := d.bus.PublishSync(ctx, events.MilestoneProcessed{
			BaseEvent:    events.NewBaseEvent(),
			ClientID:     client.ID,
			FollowUpID:   followUp.ID,
			FollowUpType: m.FollowUpType,
			MilestoneDay: m.Days,
			Final:        m.Final,
			Email:        client.Email,
			FullName:     client.FullName,
		}); err != nil {
			d.log.DispatchStep(client.ID.String(), m.FollowUpType, "email", err)
		}
	}

	return true, messagesSent, nil
}

// SendReminder sends the 2-days-ahead reminder if a pending follow-up exists
// for the milestone. Returns whether a message went out.
func (d *Dispatcher) SendReminder(ctx context.Context, client repository.EligibleClient, m *domain.Milestone) (bool, error) {
	followUp, err := d.followUps.GetPendingFollowUp(ctx, client.ID, m.FollowUpType)
	if err != nil {
		return false, err
	}
	if followUp == nil {
		return false, nil
	}

	_, err = d.messages.Create(ctx, messaging.CreateParams{
		ClientID: client.ID,
		Content:  reminderMessage(client.FullName, m),
		Metadata: map[string]any{
			"followUpId":   followUp.ID.String(),
			"followUpType": m.FollowUpType,
			"reminder":     true,
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

// stageEffects selects the side effects for a stage trigger. One case per
// stage key; an unknown stage is an error rather than a silent no-op, which
// surfaces a stage added to the table without dispatcher support.
func (d *Dispatcher) stageEffects(stage domain.Stage, info repository.EligibleClient) ([]sideEffect, error) {
	switch stage {
	case domain.StageConsultationRequested:
		return []sideEffect{
			d.messageStep(info, stage),
			d.emailStep(info, "Your health assessment is ready", stageMessage(stage, info.FullName)),
		}, nil

	case domain.StageAssessmentSent:
		return []sideEffect{
			d.calendarStep(info, "consultation", "Initial consultation", startOfDay(d.now()).AddDate(0, 0, 1)),
			d.messageStep(info, stage),
		}, nil

	case domain.StageConsultationCompleted:
		return []sideEffect{
			d.followUpStep(info, "consultation_review", startOfDay(d.now()).AddDate(0, 0, 14)),
			d.contentStep(info, contentgen.KindAssessmentSummary),
			d.messageStep(info, stage),
		}, nil

	case domain.StageProgramStarted:
		return []sideEffect{
			d.contentStep(info, contentgen.KindDietPlan),
			d.messageStep(info, stage),
			d.emailStep(info, "Welcome to your 100-day program", stageMessage(stage, info.FullName)),
		}, nil

	case domain.StageDietPlanDelivered:
		return []sideEffect{
			d.calendarStep(info, "review", "Midpoint review", startOfDay(info.ProgramStartedAt).AddDate(0, 0, 56)),
			d.messageStep(info, stage),
		}, nil

	case domain.StageMidpointReview:
		return []sideEffect{
			d.contentStep(info, contentgen.KindActionPlan),
			d.calendarStep(info, "review", "Final review", startOfDay(info.ProgramStartedAt).AddDate(0, 0, 100)),
			d.messageStep(info, stage),
		}, nil

	case domain.StageFinalReview:
		return []sideEffect{
			d.contentStep(info, contentgen.KindAssessmentSummary),
			d.messageStep(info, stage),
			d.emailStep(info, "Your program results", stageMessage(stage, info.FullName)),
		}, nil

	case domain.StageConsultationClosed, domain.StageProgramCompleted:
		// Terminal stages carry no side effects; Trigger skips them before
		// reaching this point.
		return nil, nil

	default:
		return nil, apperr.Internal(fmt.Sprintf("no side effects registered for stage %q", stage))
	}
}

func (d *Dispatcher) messageStep(info repository.EligibleClient, stage domain.Stage) sideEffect {
	return sideEffect{name: "system_message", run: func(ctx context.Context) error {
		_, err := d.messages.Create(ctx, messaging.CreateParams{
			ClientID: info.ID,
			Content:  stageMessage(stage, info.FullName),
			Metadata: map[string]any{"stage": string(stage)},
		})
		return err
	}}
}

func (d *Dispatcher) emailStep(info repository.EligibleClient, subject, body string) sideEffect {
	return sideEffect{name: "email", run: func(ctx context.Context) error {
		if d.emails == nil {
			return nil
		}
		return d.emails.Send(ctx, info.Email, subject, body)
	}}
}

func (d *Dispatcher) calendarStep(info repository.EligibleClient, eventType, title string, date time.Time) sideEffect {
	return sideEffect{name: "calendar_event", run: func(ctx context.Context) error {
		_, err := d.calendar.Create(ctx, calendarevents.CreateParams{
			ClientID:  info.ID,
			EventDate: date,
			EventType: eventType,
			Title:     title,
		})
		return err
	}}
}

func (d *Dispatcher) followUpStep(info repository.EligibleClient, followUpType string, scheduled time.Time) sideEffect {
	return sideEffect{name: "follow_up", run: func(ctx context.Context) error {
		_, err := d.followUps.CreateFollowUp(ctx, repository.CreateFollowUpParams{
			ClientID:      info.ID,
			FollowUpType:  followUpType,
			ScheduledDate: scheduled,
		})
		if apperr.Is(err, apperr.KindConflict) {
			// Already created by an earlier attempt; the end state holds.
			return nil
		}
		return err
	}}
}

func (d *Dispatcher) contentStep(info repository.EligibleClient, kind contentgen.ContentKind) sideEffect {
	return sideEffect{name: "generate_" + string(kind), run: func(ctx context.Context) error {
		req := contentgen.Request{
			ClientID:    info.ID,
			ClientName:  info.FullName,
			ServiceType: info.ServiceType,
			Kind:        kind,
		}

		if d.contentQueue != nil {
			return d.contentQueue.EnqueueContentDraft(ctx, req)
		}

		draft, err := d.producer.Generate(ctx, req)
		if errors.Is(err, contentgen.ErrDisabled) {
			return nil
		}
		if err != nil {
			return err
		}

		_, err = d.messages.Create(ctx, messaging.CreateParams{
			ClientID: info.ID,
			Content:  draft.Summary,
			Metadata: map[string]any{"kind": string(kind), "title": draft.Title, "draft": draft},
		})
		return err
	}}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
