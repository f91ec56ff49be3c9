package search

import (
	"context"
	"time"

	"github.com/civicgrid/civicnav/internal/driver"
	"github.com/civicgrid/civicnav/internal/model"
)

// Graph is the cypher-backed hosted backend. It fuses the fulltext index
// with the vector index client-side: both queries run, duplicates keep the
// higher score.
type Graph struct {
	driver       driver.GraphDriver
	embeddingDim int
}

func NewGraph(d driver.GraphDriver, embeddingDim int) *Graph {
	return &Graph{driver: d, embeddingDim: embeddingDim}
}

func (g *Graph) Name() string { return "graph" }

func (g *Graph) Health(ctx context.Context) error {
	_, err := g.driver.ExecuteQuery(ctx, driver.PingQuery, nil)
	return err
}

func (g *Graph) Search(ctx context.Context, q Query) ([]model.SearchResult, error) {
	lexical, err := g.query(ctx, driver.FulltextSearchQuery, map[string]interface{}{
		"query":    q.Text,
		"category": string(q.Category),
		"limit":    int64(q.TopK),
	}, "keyword")
	if err != nil {
		return nil, err
	}

	var vector []model.SearchResult
	if len(q.Vector) == g.embeddingDim {
		vector, err = g.query(ctx, driver.VectorSearchQuery, map[string]interface{}{
			"embedding": q.Vector,
			"category":  string(q.Category),
			"limit":     int64(q.TopK),
		}, "vector")
		if err != nil {
			// Vector index may be absent on older servers; the lexical
			// signal alone is an acceptable degradation.
			vector = nil
		}
	}

	merged := Merge(lexical, vector)
	return Truncate(merged, q.TopK), nil
}

func (g *Graph) query(ctx context.Context, cypher string, params map[string]interface{}, reason string) ([]model.SearchResult, error) {
	result, err := g.driver.ExecuteQuery(ctx, cypher, params)
	if err != nil {
		return nil, err
	}

	var results []model.SearchResult
	for _, record := range result.Records {
		id, _ := record.Get("id")
		title, _ := record.Get("title")
		content, _ := record.Get("content")
		category, _ := record.Get("category")
		serviceType, _ := record.Get("service_type")
		department, _ := record.Get("department")
		score, _ := record.Get("score")

		cat, _ := model.ParseCategory(toString(category))
		entry := model.KnowledgeEntry{
			ID:          toString(id),
			Title:       toString(title),
			Content:     toString(content),
			Category:    cat,
			ServiceType: toString(serviceType),
			Department:  toString(department),
		}
		if entry.ID == "" {
			continue
		}
		results = append(results, model.SearchResult{
			Entry:          entry,
			RelevanceScore: toFloat(score),
			MatchReason:    reason,
		})
	}
	Sort(results)
	return results, nil
}

// Store upserts entries as KnowledgeEntry nodes; used by the indexer.
func (g *Graph) Store(ctx context.Context, entries []model.KnowledgeEntry) error {
	for _, e := range entries {
		params := map[string]interface{}{
			"id":           e.ID,
			"title":        e.Title,
			"content":      e.Content,
			"category":     string(e.Category),
			"service_type": e.ServiceType,
			"department":   e.Department,
			"updated_date": e.UpdatedDate.Format(time.RFC3339),
			"embedding":    e.Embedding,
		}
		if _, err := g.driver.ExecuteQuery(ctx, driver.UpsertEntryQuery, params); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) BuildIndices(ctx context.Context) error {
	return g.driver.BuildIndices(ctx, g.embeddingDim)
}

func (g *Graph) CategoryCounts(ctx context.Context) (map[model.Category]int, error) {
	result, err := g.driver.ExecuteQuery(ctx, driver.CountByCategoryQuery, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[model.Category]int)
	for _, record := range result.Records {
		category, _ := record.Get("category")
		count, _ := record.Get("count")
		if cat, ok := model.ParseCategory(toString(category)); ok && cat != "" {
			counts[cat] = int(toInt(count))
		}
	}
	return counts, nil
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toFloat(v interface{}) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case int64:
		return float64(f)
	default:
		return 0
	}
}

func toInt(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case float64:
		return int64(i)
	default:
		return 0
	}
}
