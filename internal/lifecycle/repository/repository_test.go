package repository

import (
	"context"
	"testing"

	"nutricoach_backend/internal/lifecycle/domain"
	"nutricoach_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestAdvanceRejectsNonForwardTransition(t *testing.T) {
	// The order check runs before any database access, so a pool is not
	// needed to exercise it.
	repo := New(nil, domain.DefaultStageTable())

	cases := []struct {
		name string
		from domain.Stage
		to   domain.Stage
	}{
		{"backward", domain.StageMidpointReview, domain.StageProgramStarted},
		{"same stage", domain.StageMidpointReview, domain.StageMidpointReview},
		{"skip backward to start", domain.StageProgramCompleted, domain.StageProgramStarted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.Advance(context.Background(), AdvanceParams{
				ClientID:    uuid.New(),
				ServiceType: domain.ServiceTypeHundredDays,
				FromStage:   tc.from,
				ToStage:     tc.to,
				Action:      "stage_triggered",
				Actor:       domain.ActorSystem,
			})
			if !apperr.Is(err, apperr.KindConflict) {
				t.Fatalf("Advance(%s -> %s) error = %v, want conflict", tc.from, tc.to, err)
			}
		})
	}
}

func TestAdvanceRejectsStageFromOtherServiceType(t *testing.T) {
	repo := New(nil, domain.DefaultStageTable())

	err := repo.Advance(context.Background(), AdvanceParams{
		ClientID:    uuid.New(),
		ServiceType: domain.ServiceTypeHundredDays,
		FromStage:   domain.StageConsultationRequested,
		ToStage:     domain.StageAssessmentSent,
		Action:      "stage_triggered",
		Actor:       domain.ActorSystem,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("Advance with foreign stages error = %v, want validation", err)
	}
}
