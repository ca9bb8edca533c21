package domain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultStageTableValidates(t *testing.T) {
	if err := DefaultStageTable().Validate(); err != nil {
		t.Fatalf("default stage table invalid: %v", err)
	}
}

func TestStageOrdering(t *testing.T) {
	table := DefaultStageTable()

	first, ok := table.First(ServiceTypeHundredDays)
	if !ok || first.Key != StageProgramStarted {
		t.Fatalf("expected first hundred-days stage %q, got %+v", StageProgramStarted, first)
	}

	if idx := table.IndexOf(ServiceTypeHundredDays, StageMidpointReview); idx != 2 {
		t.Fatalf("expected midpoint_review at index 2, got %d", idx)
	}
	if idx := table.IndexOf(ServiceTypeHundredDays, StageAssessmentSent); idx != -1 {
		t.Fatalf("assessment_sent is not a hundred-days stage, got index %d", idx)
	}

	next, ok := table.Next(ServiceTypeHundredDays, StageFinalReview)
	if !ok || next.Key != StageProgramCompleted {
		t.Fatalf("expected final_review to advance to program_completed, got %+v", next)
	}
	if _, ok := table.Next(ServiceTypeHundredDays, StageProgramCompleted); ok {
		t.Fatalf("program_completed must be terminal")
	}
}

func TestLoadStageTableOverridesAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stages.yaml")
	content := `
stages:
  single_consultation:
    - key: intake
      title: Intake
      nextAction: Review intake form
    - key: done
      title: Done
milestones:
  single_consultation: [7]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := LoadStageTable(path)
	if err != nil {
		t.Fatalf("load stage table: %v", err)
	}

	stages := table.StagesFor(ServiceTypeSingleConsultation)
	if len(stages) != 2 || stages[0].Key != "intake" {
		t.Fatalf("expected overridden single-consultation stages, got %+v", stages)
	}
	if set := table.MilestonesFor(ServiceTypeSingleConsultation); len(set) != 1 || set[0] != 7 {
		t.Fatalf("expected overridden milestone set [7], got %v", set)
	}

	// Hundred-days keeps the built-in defaults.
	if len(table.StagesFor(ServiceTypeHundredDays)) != 5 {
		t.Fatalf("expected default hundred-days stages to survive override")
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	table := DefaultStageTable()
	table.Milestones[ServiceTypeHundredDays] = []int{14, 14}
	if err := table.Validate(); err == nil {
		t.Fatalf("expected error for non-increasing milestone set")
	}

	table = DefaultStageTable()
	stages := table.Stages[ServiceTypeHundredDays]
	table.Stages[ServiceTypeHundredDays] = append(stages, StageDescriptor{Key: StageProgramStarted})
	if err := table.Validate(); err == nil {
		t.Fatalf("expected error for duplicate stage key")
	}
}
