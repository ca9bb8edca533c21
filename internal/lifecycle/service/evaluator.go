package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"nutricoach_backend/internal/events"
	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/repository"
	"nutricoach_backend/internal/lifecycle/runstatus"
	"nutricoach_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const defaultEvaluatorWorkers = 8

// RunSummary is the outcome of one batch evaluator run.
type RunSummary struct {
	Timestamp        time.Time `json:"timestamp"`
	Manual           bool      `json:"manual"`
	ClientsChecked   int       `json:"clients_checked"`
	FollowUpsCreated int       `json:"follow_ups_created"`
	MessagesSent     int       `json:"messages_sent"`
	ClientsFailed    int       `json:"clients_failed"`
}

// Evaluator is the batch engine: it walks every active client, checks the
// milestone calendar against their elapsed program days, and hands due work
// to the dispatcher. One failing client never aborts the run; only failing
// to load the client list does.
type Evaluator struct {
	table      *domain.StageTable
	calendar   *domain.Calendar
	clients    ClientSource
	followUps  FollowUpStore
	states     StateStore
	dispatcher *Dispatcher
	recorder   RunRecorder
	bus        events.Bus
	log        *logger.Logger
	workers    int
	now        func() time.Time
}

// NewEvaluator wires the batch evaluator. workers bounds how many clients are
// evaluated concurrently; zero or negative picks a sane default.
func NewEvaluator(
	table *domain.StageTable,
	calendar *domain.Calendar,
	clients ClientSource,
	followUps FollowUpStore,
	states StateStore,
	dispatcher *Dispatcher,
	recorder RunRecorder,
	bus events.Bus,
	log *logger.Logger,
	workers int,
) *Evaluator {
	if workers <= 0 {
		workers = defaultEvaluatorWorkers
	}
	return &Evaluator{
		table:      table,
		calendar:   calendar,
		clients:    clients,
		followUps:  followUps,
		states:     states,
		dispatcher: dispatcher,
		recorder:   recorder,
		bus:        bus,
		log:        log,
		workers:    workers,
		now:        time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (e *Evaluator) SetNow(now func() time.Time) {
	e.now = now
	e.dispatcher.SetNow(now)
}

// Run executes one batch pass over all eligible clients and returns the
// counters. manual marks admin-initiated runs in the recorded status.
func (e *Evaluator) Run(ctx context.Context, manual bool) (RunSummary, error) {
	startedAt := e.now()

	clients, err := e.clients.ListEligibleClients(ctx, e.table.TrackedServiceTypes())
	if err != nil {
		e.recordStatus(ctx, runstatus.Status{
			Timestamp: startedAt,
			Manual:    manual,
			Outcome:   runstatus.OutcomeFailed,
			Error:     err.Error(),
		})
		return RunSummary{}, fmt.Errorf("list eligible clients: %w", err)
	}

	var followUpsCreated, messagesSent, clientsFailed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, client := range clients {
		g.Go(func() error {
			created, sent, err := e.evaluateClient(gctx, client)
			if err != nil {
				clientsFailed.Add(1)
				e.log.Error("lifecycle: client evaluation failed",
					"client_id", client.ID.String(), "error", err)
				return nil
			}
			followUpsCreated.Add(int64(created))
			messagesSent.Add(int64(sent))
			return nil
		})
	}
	_ = g.Wait()

	summary := RunSummary{
		Timestamp:        startedAt,
		Manual:           manual,
		ClientsChecked:   len(clients),
		FollowUpsCreated: int(followUpsCreated.Load()),
		MessagesSent:     int(messagesSent.Load()),
		ClientsFailed:    int(clientsFailed.Load()),
	}

	e.recordStatus(ctx, runstatus.Status{
		Timestamp:        summary.Timestamp,
		Manual:           summary.Manual,
		Outcome:          runstatus.OutcomeSuccess,
		ClientsChecked:   summary.ClientsChecked,
		FollowUpsCreated: summary.FollowUpsCreated,
		MessagesSent:     summary.MessagesSent,
		ClientsFailed:    summary.ClientsFailed,
	})

	e.log.BatchRun(manual, summary.ClientsChecked, summary.FollowUpsCreated, summary.MessagesSent, summary.ClientsFailed)

	if e.bus != nil {
		e.bus.Publish(ctx, events.BatchRunCompleted{
			BaseEvent:        events.NewBaseEvent(),
			Manual:           summary.Manual,
			ClientsChecked:   summary.ClientsChecked,
			FollowUpsCreated: summary.FollowUpsCreated,
			MessagesSent:     summary.MessagesSent,
			ClientsFailed:    summary.ClientsFailed,
		})
	}

	return summary, nil
}

// evaluateClient runs the three per-client checks in order: due milestone,
// stage auto-trigger, upcoming reminder. Returns follow-ups created and
// system messages sent for this client.
func (e *Evaluator) evaluateClient(ctx context.Context, client repository.EligibleClient) (int, int, error) {
	elapsed := domain.ElapsedDays(client.ProgramStartedAt, e.now())
	if elapsed < 0 {
		return 0, 0, nil
	}

	created, sent := 0, 0

	if m := e.calendar.DueMilestone(client.ServiceType, elapsed); m != nil {
		processed, err := e.followUps.AlreadyProcessed(ctx, client.ID, m.FollowUpType)
		if err != nil {
			return created, sent, fmt.Errorf("check milestone %s: %w", m.FollowUpType, err)
		}
		if !processed {
			ok, msgs, err := e.dispatcher.ProcessMilestone(ctx, client, m)
			if err != nil {
				return created, sent, fmt.Errorf("process milestone %s: %w", m.FollowUpType, err)
			}
			if ok {
				created++
			}
			sent += msgs
		}
	}

	if err := e.autoTrigger(ctx, client, elapsed); err != nil {
		return created, sent, err
	}

	if m := e.calendar.UpcomingReminder(client.ServiceType, elapsed); m != nil {
		didSend, err := e.dispatcher.SendReminder(ctx, client, m)
		if err != nil {
			return created, sent, fmt.Errorf("send reminder %s: %w", m.FollowUpType, err)
		}
		if didSend {
			sent++
		}
	}

	return created, sent, nil
}

// autoTrigger advances a client whose current stage declares an auto-trigger
// day once that day is reached. The dispatcher's stale-stage check makes a
// repeat evaluation a no-op, so no extra bookkeeping is needed here.
func (e *Evaluator) autoTrigger(ctx context.Context, client repository.EligibleClient, elapsed int) error {
	state, err := e.states.GetState(ctx, client.ID)
	if err != nil {
		return fmt.Errorf("load workflow state: %w", err)
	}

	desc, ok := e.table.Descriptor(state.ServiceType, state.CurrentStage)
	if !ok || desc.AutoTriggerDay == nil {
		return nil
	}
	if !e.calendar.WithinWindow(*desc.AutoTriggerDay, elapsed) {
		return nil
	}

	_, err = e.dispatcher.Trigger(ctx, client.ID, state.CurrentStage, domain.ActorSystem)
	if err != nil {
		return fmt.Errorf("auto-trigger stage %s: %w", state.CurrentStage, err)
	}
	return nil
}

func (e *Evaluator) recordStatus(ctx context.Context, status runstatus.Status) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, status); err != nil {
		e.log.Warn("lifecycle: failed to record batch run status", "error", err)
	}
}
