package search

import (
	"context"
	"math"

	"github.com/civicgrid/civicnav/internal/llm"
	"github.com/civicgrid/civicnav/internal/model"
)

const (
	titleHitWeight   = 2.0
	contentHitWeight = 1.0
	vectorWeight     = 2.0
)

// Memory is the local, always-available backend: an in-process index over
// the static knowledge base combining a lexical token-overlap signal with
// cosine similarity over precomputed embeddings.
type Memory struct {
	entries []model.KnowledgeEntry
	tokens  []indexedTokens
}

type indexedTokens struct {
	title   map[string]int
	content map[string]int
}

func NewMemory(entries []model.KnowledgeEntry) *Memory {
	m := &Memory{entries: entries}
	m.tokens = make([]indexedTokens, len(entries))
	for i, e := range entries {
		m.tokens[i] = indexedTokens{
			title:   countTokens(llm.Tokenize(e.Title)),
			content: countTokens(llm.Tokenize(e.Content)),
		}
	}
	return m
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Health(context.Context) error { return nil }

func (m *Memory) Search(_ context.Context, q Query) ([]model.SearchResult, error) {
	queryTokens := llm.Tokenize(q.Text)

	var results []model.SearchResult
	for i, e := range m.entries {
		if q.Category != "" && e.Category != q.Category {
			continue
		}

		lexical := m.lexicalScore(i, queryTokens)
		vector := 0.0
		if len(q.Vector) > 0 && len(e.Embedding) == len(q.Vector) {
			vector = cosine(q.Vector, e.Embedding)
		}

		score := lexical + vectorWeight*vector
		if score <= 0 {
			continue
		}

		results = append(results, model.SearchResult{
			Entry:          e,
			RelevanceScore: score,
			MatchReason:    matchReason(lexical > 0, vector > 0),
		})
	}

	Sort(results)
	return Truncate(results, q.TopK), nil
}

func (m *Memory) CategoryCounts(context.Context) (map[model.Category]int, error) {
	counts := make(map[model.Category]int)
	for _, e := range m.entries {
		counts[e.Category]++
	}
	return counts, nil
}

// lexicalScore rewards query tokens found in the entry, title hits above
// content hits, normalized by query length so long queries do not inflate
// scores.
func (m *Memory) lexicalScore(i int, queryTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	var score float64
	for _, t := range queryTokens {
		if len(t) < 2 {
			continue
		}
		if m.tokens[i].title[t] > 0 {
			score += titleHitWeight
		}
		if m.tokens[i].content[t] > 0 {
			score += contentHitWeight
		}
	}
	return score / float64(len(queryTokens))
}

func countTokens(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func matchReason(lexical, vector bool) string {
	switch {
	case lexical && vector:
		return "keyword+vector"
	case vector:
		return "vector"
	case lexical:
		return "keyword"
	default:
		return ""
	}
}
