package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicgrid/civicnav/internal/model"
)

func testEntries() []model.KnowledgeEntry {
	return []model.KnowledgeEntry{
		{
			ID:       "entry-001",
			Title:    "Trash Collection Schedule",
			Content:  "Residential trash collection occurs every Monday and Thursday. Downtown area collection is on Tuesday and Friday.",
			Category: model.CategorySchedule,
		},
		{
			ID:       "entry-002",
			Title:    "Building Permit Application",
			Content:  "To apply for a building permit, submit Form BP-100 to the Planning Department.",
			Category: model.CategoryPermit,
		},
		{
			ID:       "entry-003",
			Title:    "Emergency Services",
			Content:  "For emergencies, dial 911.",
			Category: model.CategoryEmergency,
		},
	}
}

func TestMemorySearch_Lexical(t *testing.T) {
	m := NewMemory(testEntries())

	results, err := m.Search(context.Background(), Query{Text: "trash collection schedule", TopK: 5})
	assert.NoError(t, err)
	assert.NotEmpty(t, results)
	assert.Equal(t, "entry-001", results[0].Entry.ID)
	assert.Equal(t, "keyword", results[0].MatchReason)
	assert.Greater(t, results[0].RelevanceScore, 0.0)
}

func TestMemorySearch_NoMatchesIsValid(t *testing.T) {
	m := NewMemory(testEntries())

	results, err := m.Search(context.Background(), Query{Text: "zebra migration patterns", TopK: 5})
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySearch_CategoryFilter(t *testing.T) {
	m := NewMemory(testEntries())

	results, err := m.Search(context.Background(), Query{
		Text:     "permit application",
		Category: model.CategoryPermit,
		TopK:     5,
	})
	assert.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, model.CategoryPermit, r.Entry.Category)
	}

	// Same query filtered to a category with no lexical overlap.
	results, err = m.Search(context.Background(), Query{
		Text:     "permit application",
		Category: model.CategoryEvent,
		TopK:     5,
	})
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemorySearch_TopK(t *testing.T) {
	m := NewMemory(testEntries())

	results, err := m.Search(context.Background(), Query{Text: "collection permit emergencies", TopK: 1})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemorySearch_VectorSignal(t *testing.T) {
	entries := []model.KnowledgeEntry{
		{ID: "a", Title: "First", Content: "alpha beta", Category: model.CategoryGeneral, Embedding: []float32{1, 0}},
		{ID: "b", Title: "Second", Content: "alpha beta", Category: model.CategoryGeneral, Embedding: []float32{0, 1}},
	}
	m := NewMemory(entries)

	// Equal lexical scores; the vector aligned with the query wins.
	results, err := m.Search(context.Background(), Query{Text: "alpha", Vector: []float32{1, 0}, TopK: 5})
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Entry.ID)
	assert.Equal(t, "keyword+vector", results[0].MatchReason)
	assert.Equal(t, "keyword", results[1].MatchReason)
}

func TestMemorySearch_DimensionMismatchIgnoresVector(t *testing.T) {
	entries := []model.KnowledgeEntry{
		{ID: "a", Title: "First", Content: "alpha", Category: model.CategoryGeneral, Embedding: []float32{1, 0, 0}},
	}
	m := NewMemory(entries)

	results, err := m.Search(context.Background(), Query{Text: "alpha", Vector: []float32{1, 0}, TopK: 5})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "keyword", results[0].MatchReason)
}

func TestMemoryCategoryCounts(t *testing.T) {
	m := NewMemory(testEntries())
	counts, err := m.CategoryCounts(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, counts[model.CategorySchedule])
	assert.Equal(t, 1, counts[model.CategoryPermit])
	assert.Equal(t, 0, counts[model.CategoryEvent])
}

func TestSort(t *testing.T) {
	results := []model.SearchResult{
		{Entry: model.KnowledgeEntry{ID: "c"}, RelevanceScore: 0.5},
		{Entry: model.KnowledgeEntry{ID: "a"}, RelevanceScore: 0.9},
		{Entry: model.KnowledgeEntry{ID: "b"}, RelevanceScore: 0.9},
	}
	Sort(results)

	assert.Equal(t, "a", results[0].Entry.ID)
	assert.Equal(t, "b", results[1].Entry.ID)
	assert.Equal(t, "c", results[2].Entry.ID)
}

func TestSort_TieBreakByID(t *testing.T) {
	results := []model.SearchResult{
		{Entry: model.KnowledgeEntry{ID: "z"}, RelevanceScore: 1.0},
		{Entry: model.KnowledgeEntry{ID: "m"}, RelevanceScore: 1.0},
		{Entry: model.KnowledgeEntry{ID: "a"}, RelevanceScore: 1.0},
	}
	Sort(results)

	assert.Equal(t, "a", results[0].Entry.ID)
	assert.Equal(t, "m", results[1].Entry.ID)
	assert.Equal(t, "z", results[2].Entry.ID)
}

func TestMerge(t *testing.T) {
	a := []model.SearchResult{
		{Entry: model.KnowledgeEntry{ID: "x"}, RelevanceScore: 0.8},
		{Entry: model.KnowledgeEntry{ID: "y"}, RelevanceScore: 0.3},
	}
	b := []model.SearchResult{
		{Entry: model.KnowledgeEntry{ID: "y"}, RelevanceScore: 0.6}, // higher duplicate wins
		{Entry: model.KnowledgeEntry{ID: "z"}, RelevanceScore: 0.1},
	}

	merged := Merge(a, b)
	assert.Len(t, merged, 3)
	assert.Equal(t, "x", merged[0].Entry.ID)
	assert.Equal(t, "y", merged[1].Entry.ID)
	assert.Equal(t, 0.6, merged[1].RelevanceScore)
	assert.Equal(t, "z", merged[2].Entry.ID)
}

func TestTruncate(t *testing.T) {
	results := []model.SearchResult{
		{Entry: model.KnowledgeEntry{ID: "a"}},
		{Entry: model.KnowledgeEntry{ID: "b"}},
	}
	assert.Len(t, Truncate(results, 1), 1)
	assert.Len(t, Truncate(results, 5), 2)
	assert.Len(t, Truncate(results, 0), 2)
}
