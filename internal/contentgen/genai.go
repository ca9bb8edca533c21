package contentgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutricoach_backend/platform/config"

	"google.golang.org/genai"
)

// ErrDisabled is returned when content generation is not configured.
var ErrDisabled = errors.New("content generation disabled")

// GenAIProducer drafts content through the Gemini API.
type GenAIProducer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGenAIProducer creates the Gemini-backed producer. Returns Disabled when
// no API key is configured.
func NewGenAIProducer(ctx context.Context, cfg config.ContentConfig) (Producer, error) {
	if !cfg.IsContentEnabled() {
		return Disabled{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGenAIAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	return &GenAIProducer{
		client:  client,
		model:   cfg.GetGenAIModel(),
		timeout: cfg.GetContentTimeout(),
	}, nil
}

// Generate sends the structured prompt and parses the JSON draft. The call
// is bounded by the configured timeout regardless of the caller's context.
func (p *GenAIProducer) Generate(ctx context.Context, req Request) (*Draft, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		genai.Text(buildPrompt(req)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.4),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", req.Kind, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("generate %s: empty response", req.Kind)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("parse %s draft: %w", req.Kind, err)
	}
	draft.Kind = req.Kind
	return &draft, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	switch req.Kind {
	case KindDietPlan:
		b.WriteString("Draft a personal diet plan for a nutrition coaching client.\n")
	case KindActionPlan:
		b.WriteString("Draft a midpoint action plan for a nutrition coaching client.\n")
	case KindAssessmentSummary:
		b.WriteString("Draft an end-of-program assessment summary for a nutrition coaching client.\n")
	default:
		b.WriteString("Draft coaching content for a nutrition coaching client.\n")
	}

	fmt.Fprintf(&b, "Client name: %s\nProgram: %s\n", req.ClientName, req.ServiceType)
	if req.Notes != "" {
		fmt.Fprintf(&b, "Coach notes: %s\n", req.Notes)
	}
	b.WriteString(`Respond with JSON only, shaped as {"title": string, "summary": string, "sections": [{"heading": string, "body": string}]}. The draft is reviewed by a dietitian before the client sees it.`)
	return b.String()
}
