package agent

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/config"
	"github.com/civicgrid/civicnav/internal/llm"
	"github.com/civicgrid/civicnav/internal/model"
	"github.com/civicgrid/civicnav/internal/search"
)

// Stage names carried on pipeline failures.
const (
	StageIntent   = "intent"
	StageRetrieve = "retrieve"
	StageAnswer   = "answer"
)

// Pipeline sequences the three agents and assembles the response envelope.
// All state is per-run; a Pipeline is safe for concurrent use.
type Pipeline struct {
	intent   *IntentAgent
	retrieve *RetrieveAgent
	answer   *AnswerAgent
	chain    *llm.Chain
	provider search.Provider
	cfg      config.SearchConfig
	log      zerolog.Logger
}

func NewPipeline(chain *llm.Chain, provider search.Provider, cfg config.SearchConfig, log zerolog.Logger) *Pipeline {
	var reranker llm.Reranker
	if cfg.Rerank {
		reranker = llm.NewSimpleReranker(chain)
	}
	return &Pipeline{
		intent:   NewIntentAgent(chain, log),
		retrieve: NewRetrieveAgent(provider, chain, reranker, cfg, log),
		answer:   NewAnswerAgent(chain, log),
		chain:    chain,
		provider: provider,
		cfg:      cfg,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes intent -> retrieve -> answer for one validated query and
// returns the terminal response envelope. Failures carry the stage name;
// no partial answer is ever returned.
func (p *Pipeline) Run(ctx context.Context, query string) (model.QueryResponse, error) {
	if err := model.ValidateQuery(query); err != nil {
		return model.QueryResponse{}, err
	}

	start := time.Now()

	intentRes, err := p.intent.Classify(ctx, query)
	if err != nil {
		return model.QueryResponse{}, &model.PipelineError{Stage: StageIntent, Code: "INTENT_FAILED", Err: err}
	}

	retrieveRes, err := p.retrieve.Retrieve(ctx, query, intentRes.Output)
	if err != nil {
		return model.QueryResponse{}, &model.PipelineError{Stage: StageRetrieve, Code: "RETRIEVE_FAILED", Err: err}
	}

	answerRes, err := p.answer.Answer(ctx, query, retrieveRes.Output)
	if err != nil {
		return model.QueryResponse{}, &model.PipelineError{Stage: StageAnswer, Code: "ANSWER_FAILED", Err: err}
	}

	total := float64(time.Since(start)) / float64(time.Millisecond)
	p.log.Info().
		Str("category", string(intentRes.Output.Category)).
		Int("results", len(retrieveRes.Output)).
		Int("citations", len(answerRes.Output.Citations)).
		Float64("latency_ms", total).
		Msg("query completed")

	return model.QueryResponse{
		ID:        uuid.New().String(),
		Answer:    answerRes.Output.Answer,
		Citations: answerRes.Output.Citations,
		Intent:    intentRes.Output,
		Reasoning: strings.Join([]string{intentRes.Reasoning, retrieveRes.Reasoning, answerRes.Reasoning}, " | "),
		LatencyMs: total,
	}, nil
}

// RunSearch is the direct retrieval entry point: no classification, no
// synthesis.
func (p *Pipeline) RunSearch(ctx context.Context, query string, category model.Category, topK int) ([]model.SearchResult, error) {
	if err := model.ValidateQuery(query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	vector, err := p.chain.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		vector = nil
	}

	results, err := p.provider.Search(ctx, search.Query{
		Text:     query,
		Vector:   vector,
		Category: category,
		TopK:     topK,
	})
	if err != nil {
		return nil, &model.PipelineError{Stage: StageRetrieve, Code: "SEARCH_FAILED", Err: err}
	}
	return results, nil
}

// Categories returns the fixed enumeration, stable across calls.
func (p *Pipeline) Categories() []model.Category {
	return model.Categories()
}

// CategoryCounts reports entry counts per category from the active search
// provider; categories with no entries report zero.
func (p *Pipeline) CategoryCounts(ctx context.Context) map[model.Category]int {
	counts := map[model.Category]int{}
	if counter, ok := p.provider.(search.CategoryCounter); ok {
		if c, err := counter.CategoryCounts(ctx); err == nil {
			counts = c
		}
	}
	for _, cat := range model.Categories() {
		if _, ok := counts[cat]; !ok {
			counts[cat] = 0
		}
	}
	return counts
}

// CheckLLM probes the primary language-model tier for the health endpoint.
func (p *Pipeline) CheckLLM(ctx context.Context) bool {
	return p.chain.Check(ctx)
}

// CheckSearch probes the search backends for the health endpoint.
func (p *Pipeline) CheckSearch(ctx context.Context) bool {
	return p.provider.Health(ctx) == nil
}
