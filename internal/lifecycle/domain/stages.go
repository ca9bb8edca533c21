// Package domain holds the program lifecycle model: service types, stages,
// milestones and the calendar that maps elapsed days to due milestones.
package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServiceType is the product variant a client is enrolled in. It determines
// the applicable stage list and milestone set.
type ServiceType string

const (
	ServiceTypeSingleConsultation ServiceType = "single_consultation"
	ServiceTypeHundredDays        ServiceType = "hundred_days"
)

// IsValid reports whether the service type is a known variant.
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceTypeSingleConsultation, ServiceTypeHundredDays:
		return true
	}
	return false
}

// ClientStatus is the engagement status of a coaching client.
type ClientStatus string

const (
	ClientStatusPending  ClientStatus = "pending"
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Stage is a named position in a client's workflow. Stages are totally
// ordered per service type; the ordering lives in the StageTable.
type Stage string

// Stage keys. Side-effect behavior is selected by switching on these
// constants, one case per stage, so a new stage without dispatcher support
// fails loudly instead of silently matching a string.
const (
	StageConsultationRequested Stage = "consultation_requested"
	StageAssessmentSent        Stage = "health_assessment_sent"
	StageConsultationCompleted Stage = "consultation_completed"
	StageConsultationClosed    Stage = "consultation_closed"

	StageProgramStarted    Stage = "program_started"
	StageDietPlanDelivered Stage = "diet_plan_delivered"
	StageMidpointReview    Stage = "midpoint_review"
	StageFinalReview       Stage = "final_review"
	StageProgramCompleted  Stage = "program_completed"
)

// StageDescriptor describes one stage in a service type's ordered stage list.
type StageDescriptor struct {
	Key   Stage  `yaml:"key"`
	Title string `yaml:"title"`
	// NextAction describes the action required while the client sits in this
	// stage.
	NextAction string `yaml:"nextAction"`
	// DueOffsetDays, when set, is the day offset from program start at which
	// NextAction becomes due.
	DueOffsetDays *int `yaml:"dueOffsetDays,omitempty"`
	// AutoTriggerDay, when set, is the elapsed day at which the batch
	// evaluator triggers this stage automatically if the client still sits
	// in it.
	AutoTriggerDay *int `yaml:"autoTriggerDay,omitempty"`
}

// StageTable maps each service type to its ordered stage list and milestone
// set. It is an explicit configuration structure passed to the state store,
// dispatcher and evaluator at construction time.
type StageTable struct {
	Stages     map[ServiceType][]StageDescriptor `yaml:"stages"`
	Milestones map[ServiceType][]int             `yaml:"milestones"`
}

// DefaultStageTable returns the built-in production stage tables.
func DefaultStageTable() *StageTable {
	return &StageTable{
		Stages: map[ServiceType][]StageDescriptor{
			ServiceTypeSingleConsultation: {
				{Key: StageConsultationRequested, Title: "Consultation requested", NextAction: "Send health assessment questionnaire"},
				{Key: StageAssessmentSent, Title: "Health assessment sent", NextAction: "Hold consultation", DueOffsetDays: intPtr(7)},
				{Key: StageConsultationCompleted, Title: "Consultation completed", NextAction: "Send post-consultation summary", DueOffsetDays: intPtr(16)},
				{Key: StageConsultationClosed, Title: "Closed", NextAction: ""},
			},
			ServiceTypeHundredDays: {
				{Key: StageProgramStarted, Title: "Program started", NextAction: "Deliver personal diet plan", DueOffsetDays: intPtr(3)},
				{Key: StageDietPlanDelivered, Title: "Diet plan delivered", NextAction: "Prepare midpoint review", DueOffsetDays: intPtr(56)},
				{Key: StageMidpointReview, Title: "Midpoint review", NextAction: "Prepare final review", DueOffsetDays: intPtr(100), AutoTriggerDay: intPtr(56)},
				{Key: StageFinalReview, Title: "Final review", NextAction: "Close out program", AutoTriggerDay: intPtr(100)},
				{Key: StageProgramCompleted, Title: "Program completed", NextAction: ""},
			},
		},
		Milestones: map[ServiceType][]int{
			ServiceTypeSingleConsultation: {14},
			ServiceTypeHundredDays:        {14, 28, 42, 56, 70, 84, 100},
		},
	}
}

// LoadStageTable reads a stage table from a YAML file. Service types missing
// from the file fall back to the built-in defaults.
func LoadStageTable(path string) (*StageTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage table: %w", err)
	}

	var loaded StageTable
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse stage table: %w", err)
	}

	table := DefaultStageTable()
	for st, stages := range loaded.Stages {
		if len(stages) > 0 {
			table.Stages[st] = stages
		}
	}
	for st, set := range loaded.Milestones {
		if len(set) > 0 {
			table.Milestones[st] = set
		}
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate checks every stage list is non-empty with unique keys and every
// milestone set is strictly increasing.
func (t *StageTable) Validate() error {
	for st, stages := range t.Stages {
		if len(stages) == 0 {
			return fmt.Errorf("service type %q has no stages", st)
		}
		seen := make(map[Stage]bool, len(stages))
		for _, d := range stages {
			if d.Key == "" {
				return fmt.Errorf("service type %q has a stage without a key", st)
			}
			if seen[d.Key] {
				return fmt.Errorf("service type %q repeats stage %q", st, d.Key)
			}
			seen[d.Key] = true
		}
	}
	for st, set := range t.Milestones {
		for i := 1; i < len(set); i++ {
			if set[i] <= set[i-1] {
				return fmt.Errorf("service type %q milestone set is not strictly increasing", st)
			}
		}
	}
	return nil
}

// StagesFor returns the ordered stage list for a service type.
func (t *StageTable) StagesFor(st ServiceType) []StageDescriptor {
	return t.Stages[st]
}

// First returns the initial stage descriptor for a service type.
func (t *StageTable) First(st ServiceType) (StageDescriptor, bool) {
	stages := t.Stages[st]
	if len(stages) == 0 {
		return StageDescriptor{}, false
	}
	return stages[0], true
}

// IndexOf returns the position of a stage in the service type's ordering,
// or -1 if the stage does not belong to that service type.
func (t *StageTable) IndexOf(st ServiceType, stage Stage) int {
	for i, d := range t.Stages[st] {
		if d.Key == stage {
			return i
		}
	}
	return -1
}

// Descriptor returns the descriptor of a stage within a service type.
func (t *StageTable) Descriptor(st ServiceType, stage Stage) (StageDescriptor, bool) {
	idx := t.IndexOf(st, stage)
	if idx < 0 {
		return StageDescriptor{}, false
	}
	return t.Stages[st][idx], true
}

// Next returns the stage descriptor directly after the given stage, if any.
func (t *StageTable) Next(st ServiceType, stage Stage) (StageDescriptor, bool) {
	idx := t.IndexOf(st, stage)
	if idx < 0 || idx+1 >= len(t.Stages[st]) {
		return StageDescriptor{}, false
	}
	return t.Stages[st][idx+1], true
}

// MilestonesFor returns the ordered milestone day set for a service type.
func (t *StageTable) MilestonesFor(st ServiceType) []int {
	return t.Milestones[st]
}

// TrackedServiceTypes returns the service types that carry milestones and are
// therefore scanned by the batch evaluator.
func (t *StageTable) TrackedServiceTypes() []ServiceType {
	out := make([]ServiceType, 0, len(t.Milestones))
	for st, set := range t.Milestones {
		if len(set) > 0 {
			out = append(out, st)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }
