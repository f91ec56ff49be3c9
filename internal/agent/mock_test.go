package agent

import (
	"context"
	"sync"

	"github.com/civicgrid/civicnav/internal/model"
	"github.com/civicgrid/civicnav/internal/search"
)

type mockClient struct {
	response      string
	responseQueue []string
	err           error
	calls         int
	prompts       []string
}

func (m *mockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	if len(m.responseQueue) > 0 {
		resp := m.responseQueue[0]
		m.responseQueue = m.responseQueue[1:]
		return resp, nil
	}
	return m.response, nil
}

type mockEmbedder struct {
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

// mockSearch records the queries it receives and serves scripted results,
// optionally different ones for filtered calls.
type mockSearch struct {
	mu              sync.Mutex
	results         []model.SearchResult
	filteredResults []model.SearchResult
	err             error
	queries         []search.Query
}

func (m *mockSearch) Name() string { return "mock" }

func (m *mockSearch) Search(ctx context.Context, q search.Query) ([]model.SearchResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if q.Category != "" && m.filteredResults != nil {
		return m.filteredResults, nil
	}
	return m.results, nil
}

func (m *mockSearch) Health(ctx context.Context) error { return m.err }

func (m *mockSearch) filteredQueries() []search.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []search.Query
	for _, q := range m.queries {
		if q.Category != "" {
			out = append(out, q)
		}
	}
	return out
}

type mockReranker struct {
	indices []int
	err     error
	calls   int
}

func (m *mockReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.indices, nil
}

func resultFixture(id, title, content string, category model.Category, score float64) model.SearchResult {
	return model.SearchResult{
		Entry: model.KnowledgeEntry{
			ID:       id,
			Title:    title,
			Content:  content,
			Category: category,
		},
		RelevanceScore: score,
		MatchReason:    "keyword",
	}
}
