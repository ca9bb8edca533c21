package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/internal/lifecycle/repository"
	"nutricoach_backend/internal/lifecycle/runstatus"

	"github.com/google/uuid"
)

// The run summary and the stored run status share one wire format, so the
// manual-run response and the status endpoint report the counters under the
// same keys.
func TestRunSummaryJSONKeys(t *testing.T) {
	data, err := json.Marshal(RunSummary{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{"timestamp", "manual", "clients_checked", "follow_ups_created", "messages_sent", "clients_failed"} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Errorf("summary JSON missing key %q: %s", key, data)
		}
	}
}

func TestRunDay14Milestone(t *testing.T) {
	f := newEngineFixture(t, 0)
	client := f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 14)

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.ClientsChecked != 1 {
		t.Errorf("ClientsChecked = %d, want 1", summary.ClientsChecked)
	}
	if summary.FollowUpsCreated != 1 {
		t.Errorf("FollowUpsCreated = %d, want 1", summary.FollowUpsCreated)
	}
	if summary.MessagesSent != 1 {
		t.Errorf("MessagesSent = %d, want 1", summary.MessagesSent)
	}
	if summary.ClientsFailed != 0 {
		t.Errorf("ClientsFailed = %d, want 0", summary.ClientsFailed)
	}

	followUp, err := f.followUps.GetPendingFollowUp(context.Background(), client.ID, "14_day")
	if err != nil {
		t.Fatalf("GetPendingFollowUp() error = %v", err)
	}
	if followUp == nil {
		t.Fatal("no 14_day follow-up created")
	}
	wantScheduled := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !followUp.ScheduledDate.Equal(wantScheduled) {
		t.Errorf("ScheduledDate = %v, want next day %v", followUp.ScheduledDate, wantScheduled)
	}
	if f.calEvents.count() != 1 {
		t.Errorf("calendar events = %d, want 1", f.calEvents.count())
	}
	if len(f.emails.sent) != 1 {
		t.Errorf("emails sent = %d, want 1", len(f.emails.sent))
	}
}

func TestRunIsIdempotentAcrossPasses(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 14)

	if _, err := f.evaluator.Run(context.Background(), false); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	firstMessages := f.messages.count()

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if summary.FollowUpsCreated != 0 {
		t.Errorf("second pass FollowUpsCreated = %d, want 0", summary.FollowUpsCreated)
	}
	if summary.MessagesSent != 0 {
		t.Errorf("second pass MessagesSent = %d, want 0", summary.MessagesSent)
	}
	if f.followUps.count() != 1 {
		t.Errorf("follow-up rows = %d, want 1", f.followUps.count())
	}
	if f.messages.count() != firstMessages {
		t.Errorf("messages grew from %d to %d on idempotent pass", firstMessages, f.messages.count())
	}
}

func TestRunOffMilestoneDayCreatesNothing(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 15)

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.FollowUpsCreated != 0 || summary.MessagesSent != 0 {
		t.Errorf("summary = %+v, want no work on day 15 with strict matching", summary)
	}
}

func TestRunCatchUpWindow(t *testing.T) {
	// With a 2-day window a missed day-14 run still fires on day 15.
	f := newEngineFixture(t, 2)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 15)

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.FollowUpsCreated != 1 {
		t.Errorf("FollowUpsCreated = %d, want 1 inside catch-up window", summary.FollowUpsCreated)
	}

	followUp, err := f.followUps.GetPendingFollowUp(context.Background(), f.clients.clients[0].ID, "14_day")
	if err != nil {
		t.Fatalf("GetPendingFollowUp() error = %v", err)
	}
	if followUp == nil {
		t.Fatal("caught-up follow-up keeps the milestone's own type, none found")
	}
}

func TestRunUpcomingReminder(t *testing.T) {
	f := newEngineFixture(t, 0)
	client := f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 12)

	// A pending follow-up two days ahead of its milestone gets a reminder.
	if _, err := f.followUps.CreateFollowUp(context.Background(), repository.CreateFollowUpParams{
		ClientID:      client.ID,
		FollowUpType:  "14_day",
		ScheduledDate: f.now.AddDate(0, 0, 2),
	}); err != nil {
		t.Fatalf("seed follow-up: %v", err)
	}

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.FollowUpsCreated != 0 {
		t.Errorf("FollowUpsCreated = %d, want 0 on a reminder day", summary.FollowUpsCreated)
	}
	if summary.MessagesSent != 1 {
		t.Errorf("MessagesSent = %d, want 1 reminder", summary.MessagesSent)
	}
	if f.messages.count() != 1 {
		t.Fatalf("messages = %d, want 1", f.messages.count())
	}
	meta := f.messages.messages[0].Metadata
	if meta["reminder"] != true {
		t.Errorf("message metadata = %v, want reminder flag", meta)
	}
}

func TestRunReminderWithoutPendingFollowUp(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 12)

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.MessagesSent != 0 {
		t.Errorf("MessagesSent = %d, want 0 without a pending follow-up", summary.MessagesSent)
	}
}

func TestRunAutoTriggersMidpointReview(t *testing.T) {
	f := newEngineFixture(t, 0)
	client := f.addClient(domain.ServiceTypeHundredDays, domain.StageMidpointReview, 56)

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Day 56 is both a milestone and the midpoint auto-trigger day.
	if summary.FollowUpsCreated != 1 {
		t.Errorf("FollowUpsCreated = %d, want 1", summary.FollowUpsCreated)
	}

	state, err := f.states.GetState(context.Background(), client.ID)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.CurrentStage != domain.StageFinalReview {
		t.Errorf("CurrentStage = %q, want auto-advance to %q", state.CurrentStage, domain.StageFinalReview)
	}
	if len(f.states.advances) != 1 {
		t.Fatalf("advances = %d, want 1", len(f.states.advances))
	}
	if f.states.advances[0].Actor != domain.ActorSystem {
		t.Errorf("advance actor = %q, want system", f.states.advances[0].Actor)
	}
}

func TestRunAutoTriggerOffDayDoesNothing(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageMidpointReview, 55)

	if _, err := f.evaluator.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(f.states.advances) != 0 {
		t.Errorf("advances = %d, want 0 before the trigger day", len(f.states.advances))
	}
}

func TestRunListFailure(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.clients.listErr = errors.New("connection refused")

	_, err := f.evaluator.Run(context.Background(), true)
	if err == nil {
		t.Fatal("Run() error = nil, want failure when the client list cannot load")
	}

	status, ok := f.recorder.last()
	if !ok {
		t.Fatal("no run status recorded")
	}
	if status.Outcome != runstatus.OutcomeFailed {
		t.Errorf("Outcome = %q, want failed", status.Outcome)
	}
	if !status.Manual {
		t.Error("Manual = false, want true")
	}
	if status.Error == "" {
		t.Error("Error empty, want the list failure")
	}
}

func TestRunIsolatesFailingClient(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 14)
	broken := f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 28)
	f.followUps.checkErr = map[uuid.UUID]error{broken.ID: errors.New("deadlock detected")}

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.ClientsChecked != 2 {
		t.Errorf("ClientsChecked = %d, want 2", summary.ClientsChecked)
	}
	if summary.ClientsFailed != 1 {
		t.Errorf("ClientsFailed = %d, want 1", summary.ClientsFailed)
	}
	if summary.FollowUpsCreated != 1 {
		t.Errorf("FollowUpsCreated = %d, want the healthy client processed", summary.FollowUpsCreated)
	}
}

func TestRunRecordsSuccessStatus(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageDietPlanDelivered, 14)

	summary, err := f.evaluator.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	status, ok := f.recorder.last()
	if !ok {
		t.Fatal("no run status recorded")
	}
	if status.Outcome != runstatus.OutcomeSuccess {
		t.Errorf("Outcome = %q, want success", status.Outcome)
	}
	if !status.Manual {
		t.Error("Manual = false, want true")
	}
	if status.FollowUpsCreated != summary.FollowUpsCreated {
		t.Errorf("recorded FollowUpsCreated = %d, summary says %d", status.FollowUpsCreated, summary.FollowUpsCreated)
	}
}

func TestRunFutureStartDate(t *testing.T) {
	f := newEngineFixture(t, 0)
	f.addClient(domain.ServiceTypeHundredDays, domain.StageProgramStarted, -3)

	summary, err := f.evaluator.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.FollowUpsCreated != 0 || summary.MessagesSent != 0 {
		t.Errorf("summary = %+v, want nothing for a future start date", summary)
	}
}
