package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/config"
	"github.com/civicgrid/civicnav/internal/llm"
	"github.com/civicgrid/civicnav/internal/model"
	"github.com/civicgrid/civicnav/internal/search"
)

// RetrieveAgent turns a classified query into a ranked result set. The
// category filter is applied only above the confidence cutoff; a filtered
// search that comes back too thin is widened with the unfiltered results.
// An empty result set is a valid outcome, not a failure.
type RetrieveAgent struct {
	provider search.Provider
	embedder llm.Embedder
	reranker llm.Reranker
	cfg      config.SearchConfig
	log      zerolog.Logger
}

func NewRetrieveAgent(provider search.Provider, embedder llm.Embedder, reranker llm.Reranker, cfg config.SearchConfig, log zerolog.Logger) *RetrieveAgent {
	return &RetrieveAgent{
		provider: provider,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
		log:      log.With().Str("component", "retrieve-agent").Logger(),
	}
}

func (a *RetrieveAgent) Retrieve(ctx context.Context, query string, intent model.IntentClassification) (Result[[]model.SearchResult], error) {
	t := startTimer()
	var tools []string

	tools = append(tools, "llm_embedding")
	vector, err := a.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return Result[[]model.SearchResult]{}, ctx.Err()
		}
		// Backends degrade to their lexical signal without a vector.
		a.log.Warn().Err(err).Msg("query embedding unavailable, searching lexical-only")
		vector = nil
	}

	filtered := intent.Confidence >= a.cfg.ConfidenceCutoff
	category := intent.Category
	if !filtered {
		category = ""
	}

	tools = append(tools, "search")
	results, err := a.search(ctx, query, vector, category)
	if err != nil {
		return Result[[]model.SearchResult]{}, err
	}

	if a.reranker != nil && a.cfg.Rerank && len(results) > 1 {
		tools = append(tools, "reranker")
		results = a.rerank(ctx, query, results)
	}
	results = search.Truncate(results, a.cfg.TopK)

	reasoning := a.reasoning(query, category, results)
	return Result[[]model.SearchResult]{
		Output:    results,
		Reasoning: reasoning,
		ToolsUsed: tools,
		LatencyMs: t.elapsedMs(),
	}, nil
}

// search runs the filtered and unfiltered calls concurrently when a filter
// applies, then keeps the filtered set alone unless it is below the
// acceptable minimum.
func (a *RetrieveAgent) search(ctx context.Context, query string, vector []float32, category model.Category) ([]model.SearchResult, error) {
	unfilteredQuery := search.Query{Text: query, Vector: vector, TopK: a.cfg.TopK}
	if category == "" {
		return a.provider.Search(ctx, unfilteredQuery)
	}

	filteredQuery := unfilteredQuery
	filteredQuery.Category = category

	var (
		wg            sync.WaitGroup
		filteredRes   []model.SearchResult
		unfilteredRes []model.SearchResult
		filteredErr   error
		unfilteredErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		filteredRes, filteredErr = a.provider.Search(ctx, filteredQuery)
	}()
	go func() {
		defer wg.Done()
		unfilteredRes, unfilteredErr = a.provider.Search(ctx, unfilteredQuery)
	}()
	wg.Wait()

	if filteredErr != nil && unfilteredErr != nil {
		return nil, filteredErr
	}
	if filteredErr != nil {
		return unfilteredRes, nil
	}
	if len(filteredRes) >= a.cfg.MinResults || unfilteredErr != nil {
		return filteredRes, nil
	}
	return search.Merge(filteredRes, unfilteredRes), nil
}

// rerank reorders by the model's relevance judgment and rewrites scores as
// descending ranks so the ordering invariant holds afterwards.
func (a *RetrieveAgent) rerank(ctx context.Context, query string, results []model.SearchResult) []model.SearchResult {
	docs := make([]string, len(results))
	for i, r := range results {
		docs[i] = r.Entry.Title + ": " + r.Entry.Content
	}
	indices, err := a.reranker.Rank(ctx, query, docs)
	if err != nil || len(indices) != len(results) {
		return results
	}
	reranked := make([]model.SearchResult, 0, len(results))
	for pos, idx := range indices {
		r := results[idx]
		r.RelevanceScore = float64(len(results) - pos)
		r.MatchReason = r.MatchReason + "+rerank"
		reranked = append(reranked, r)
	}
	return reranked
}

func (a *RetrieveAgent) reasoning(query string, category model.Category, results []model.SearchResult) string {
	short := query
	if len(short) > 30 {
		short = short[:30] + "..."
	}
	s := fmt.Sprintf("Searched for '%s'", short)
	if category != "" {
		s += fmt.Sprintf(" filtered by category %s", category)
	}
	s += fmt.Sprintf(". Found %d results", len(results))
	if len(results) > 0 {
		s += fmt.Sprintf(". Top result: '%s' (score %.2f)", results[0].Entry.Title, results[0].RelevanceScore)
	}
	return s + "."
}
