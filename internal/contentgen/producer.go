// Package contentgen drafts coaching content (diet plans, action plans,
// assessment summaries) through an external AI model. The lifecycle engine
// invokes it as a best-effort side effect with a timeout; generation failures
// never block a stage advance.
package contentgen

import (
	"context"

	"nutricoach_backend/internal/lifecycle/domain"

	"github.com/google/uuid"
)

// ContentKind selects what kind of draft to produce.
type ContentKind string

const (
	KindDietPlan          ContentKind = "diet_plan"
	KindActionPlan        ContentKind = "action_plan"
	KindAssessmentSummary ContentKind = "assessment_summary"
)

// Request is the structured prompt input for one draft.
type Request struct {
	ClientID    uuid.UUID
	ClientName  string
	ServiceType domain.ServiceType
	Kind        ContentKind
	// Notes carries free-form coach context folded into the prompt.
	Notes string
}

// Draft is the structured JSON a generation returns.
type Draft struct {
	Kind     ContentKind `json:"kind"`
	Title    string      `json:"title"`
	Summary  string      `json:"summary"`
	Sections []Section   `json:"sections"`
}

// Section is one titled block of a draft.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Producer drafts content for a client. Implementations must respect the
// context deadline; callers treat any error as a skipped notification, not a
// failed stage.
type Producer interface {
	Generate(ctx context.Context, req Request) (*Draft, error)
}

// Disabled is the no-op producer used when no API key is configured.
type Disabled struct{}

// Generate reports that content generation is not configured.
func (Disabled) Generate(context.Context, Request) (*Draft, error) {
	return nil, ErrDisabled
}
