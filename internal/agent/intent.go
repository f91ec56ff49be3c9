package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/llm"
	"github.com/civicgrid/civicnav/internal/model"
)

const intentPromptTemplate = `You are an intent classifier for a city services assistant.
Classify the question into exactly one category: schedule, event, report, permit, emergency, general.
Extract any entities mentioned (date, location, service_type, department) as a string-to-string map.
Report your confidence between 0.0 and 1.0.

Question: %s`

type intentPayload struct {
	Category   string            `json:"category"`
	Entities   map[string]string `json:"entities"`
	Confidence float64           `json:"confidence"`
}

// IntentAgent classifies a query into a service category and extracts
// entities. It never fails: schema violations and provider exhaustion both
// degrade to the keyword heuristic.
type IntentAgent struct {
	client llm.Client
	log    zerolog.Logger
}

func NewIntentAgent(client llm.Client, log zerolog.Logger) *IntentAgent {
	return &IntentAgent{
		client: client,
		log:    log.With().Str("component", "intent-agent").Logger(),
	}
}

func (a *IntentAgent) Classify(ctx context.Context, query string) (Result[model.IntentClassification], error) {
	t := startTimer()
	tools := []string{"llm_complete"}

	prompt := fmt.Sprintf(intentPromptTemplate, query)
	payload, err := llm.Complete[intentPayload](ctx, a.client, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return Result[model.IntentClassification]{}, ctx.Err()
		}
		a.log.Warn().Err(err).Msg("model classification unavailable, using keyword heuristic")
		return a.heuristic(query, t), nil
	}

	category, ok := model.ParseCategory(strings.ToLower(strings.TrimSpace(payload.Category)))
	if !ok || category == "" {
		// Unknown category is a schema violation in substance; take the
		// deterministic default rather than guessing.
		a.log.Warn().Str("category", payload.Category).Msg("model returned unknown category, defaulting to general")
		category = model.CategoryGeneral
		payload.Confidence = 0.0
	}
	confidence := clamp01(payload.Confidence)
	entities := payload.Entities
	if entities == nil {
		entities = map[string]string{}
	}

	classification := model.IntentClassification{
		Category:   category,
		Entities:   entities,
		Confidence: confidence,
	}
	return Result[model.IntentClassification]{
		Output:    classification,
		Reasoning: fmt.Sprintf("Classified query as %s (confidence %.2f) with %d entities", category, confidence, len(entities)),
		ToolsUsed: tools,
		LatencyMs: t.elapsedMs(),
	}, nil
}

func (a *IntentAgent) heuristic(query string, t timer) Result[model.IntentClassification] {
	category, confidence := llm.HeuristicClassify(query)
	classification := model.IntentClassification{
		Category:   category,
		Entities:   llm.HeuristicEntities(query),
		Confidence: confidence,
	}
	return Result[model.IntentClassification]{
		Output:    classification,
		Reasoning: fmt.Sprintf("Keyword heuristic classified query as %s (confidence %.2f)", category, confidence),
		ToolsUsed: []string{"llm_complete", "heuristic_classifier"},
		LatencyMs: t.elapsedMs(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
