package search

import (
	"context"
	"sort"

	"github.com/civicgrid/civicnav/internal/model"
)

// Query is one search call. An empty Category means unfiltered; a nil
// Vector degrades vector-capable backends to their lexical signal.
type Query struct {
	Text     string
	Vector   []float32
	Category model.Category
	TopK     int
}

// Provider is one search backend. Implementations must return results
// already sorted per Sort.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]model.SearchResult, error)
	Health(ctx context.Context) error
}

// Store is implemented by hosted backends that can be populated by the
// indexer. The in-memory backend is loaded at construction instead.
type Store interface {
	Store(ctx context.Context, entries []model.KnowledgeEntry) error
}

// CategoryCounter reports entry counts per category for the categories
// endpoint. Optional per backend.
type CategoryCounter interface {
	CategoryCounts(ctx context.Context) (map[model.Category]int, error)
}

// Sort orders results descending by relevance score, ties broken by
// ascending entry id so identical inputs always rank identically.
func Sort(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})
}

// Merge deduplicates two result sets by entry id, keeping the higher score
// for duplicates, and re-establishes the sort invariant.
func Merge(a, b []model.SearchResult) []model.SearchResult {
	byID := make(map[string]model.SearchResult, len(a)+len(b))
	for _, r := range a {
		byID[r.Entry.ID] = r
	}
	for _, r := range b {
		if prev, ok := byID[r.Entry.ID]; !ok || r.RelevanceScore > prev.RelevanceScore {
			byID[r.Entry.ID] = r
		}
	}
	merged := make([]model.SearchResult, 0, len(byID))
	for _, r := range byID {
		merged = append(merged, r)
	}
	Sort(merged)
	return merged
}

// Truncate bounds a sorted result set to k entries.
func Truncate(results []model.SearchResult, k int) []model.SearchResult {
	if k > 0 && len(results) > k {
		return results[:k]
	}
	return results
}
