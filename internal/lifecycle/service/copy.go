package service

import (
	"fmt"

	"nutricoach_backend/internal/lifecycle/domain"
)

// Message copy for milestone check-ins, reminders and stage notifications.
// The final milestone uses dedicated completion copy instead of the generic
// check-in text.

func milestoneMessage(name string, m *domain.Milestone) string {
	if m.Final {
		return fmt.Sprintf(
			"Congratulations %s! You have reached day %d and completed your program. Your coach will be in touch to schedule your final consultation and review your results.",
			name, m.Days)
	}
	return fmt.Sprintf(
		"Hi %s, you have reached day %d of your program. A check-in with your coach has been scheduled; please record your current weight and energy levels before the appointment.",
		name, m.Days)
}

func reminderMessage(name string, m *domain.Milestone) string {
	return fmt.Sprintf(
		"Hi %s, a reminder: your day %d check-in is coming up in 2 days. Make sure your food diary is up to date.",
		name, m.Days)
}

func stageMessage(stage domain.Stage, name string) string {
	switch stage {
	case domain.StageConsultationRequested:
		return fmt.Sprintf("Hi %s, your health assessment questionnaire is ready in your portal. Please complete it before your consultation.", name)
	case domain.StageAssessmentSent:
		return fmt.Sprintf("Hi %s, your consultation has been scheduled. You will find the details in your calendar.", name)
	case domain.StageConsultationCompleted:
		return fmt.Sprintf("Hi %s, thank you for your consultation. Your personal summary and recommendations are being prepared.", name)
	case domain.StageProgramStarted:
		return fmt.Sprintf("Welcome %s! Your 100-day program has started. Your personal diet plan is being prepared and will appear here shortly.", name)
	case domain.StageDietPlanDelivered:
		return fmt.Sprintf("Hi %s, your midpoint review has been scheduled. Keep tracking your meals so we can measure your progress.", name)
	case domain.StageMidpointReview:
		return fmt.Sprintf("Hi %s, great work at your midpoint review. An updated action plan for the second half of your program is on its way.", name)
	case domain.StageFinalReview:
		return fmt.Sprintf("Hi %s, your final review is complete. Your end-of-program summary is being prepared.", name)
	default:
		return fmt.Sprintf("Hi %s, your program has moved to the next step.", name)
	}
}
