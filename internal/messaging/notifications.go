package messaging

import (
	"context"
	"fmt"

	"nutricoach_backend/internal/events"
	"nutricoach_backend/platform/logger"
)

// Sender is the outbound email surface the notifications handler needs.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// Notifications mirrors lifecycle events to the client's email address.
// It subscribes to the event bus so the lifecycle engine never talks to
// email directly for these flows.
type Notifications struct {
	emails Sender
	log    *logger.Logger
}

func NewNotifications(emails Sender, log *logger.Logger) *Notifications {
	return &Notifications{emails: emails, log: log}
}

// RegisterHandlers subscribes the notification handlers on the bus.
func (n *Notifications) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.MilestoneProcessed{}.EventName(), events.HandlerFunc(n.onMilestoneProcessed))
	bus.Subscribe(events.ProgramStarted{}.EventName(), events.HandlerFunc(n.onProgramStarted))
}

func (n *Notifications) onMilestoneProcessed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.MilestoneProcessed)
	if !ok {
		return nil
	}
	if e.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Day %d check-in scheduled", e.MilestoneDay)
	body := fmt.Sprintf(
		"Hi %s, you have reached day %d of your program. A check-in with your coach has been scheduled; please record your current weight and energy levels before the appointment.",
		e.FullName, e.MilestoneDay)
	if e.Final {
		subject = "You completed your program!"
		body = fmt.Sprintf(
			"Congratulations %s! You have reached day %d and completed your program. Your coach will be in touch to schedule your final consultation and review your results.",
			e.FullName, e.MilestoneDay)
	}

	if err := n.emails.Send(ctx, e.Email, subject, body); err != nil {
		n.log.Warn("milestone email failed", "clientId", e.ClientID, "followUpType", e.FollowUpType, "error", err)
		return err
	}
	return nil
}

func (n *Notifications) onProgramStarted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ProgramStarted)
	if !ok {
		return nil
	}
	if e.Email == "" {
		return nil
	}

	subject := "Your program has started"
	body := fmt.Sprintf(
		"Hi %s, your coaching program is now underway. You will find your check-ins, messages and plans in your portal.",
		e.FullName)
	if err := n.emails.Send(ctx, e.Email, subject, body); err != nil {
		n.log.Warn("program start email failed", "clientId", e.ClientID, "error", err)
		return err
	}
	return nil
}
