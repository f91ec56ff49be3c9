package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/civicgrid/civicnav/internal/config"
	"github.com/civicgrid/civicnav/internal/model"
)

// Weaviate is the hosted hybrid backend: BM25 and vector search fused
// server-side through the GraphQL hybrid operator.
type Weaviate struct {
	client    *weaviate.Client
	className string
}

func NewWeaviate(cfg config.WeaviateConfig) (*Weaviate, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("weaviate host is required")
	}
	wcfg := weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &Weaviate{client: client, className: cfg.ClassName}, nil
}

func (w *Weaviate) Name() string { return "weaviate" }

func (w *Weaviate) Health(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return fmt.Errorf("weaviate not ready")
	}
	return nil
}

func (w *Weaviate) Search(ctx context.Context, q Query) ([]model.SearchResult, error) {
	fields := []graphql.Field{
		{Name: "entryId"},
		{Name: "title"},
		{Name: "content"},
		{Name: "category"},
		{Name: "serviceType"},
		{Name: "department"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "score"}}},
	}

	hybrid := w.client.GraphQL().HybridArgumentBuilder().WithQuery(q.Text)
	if len(q.Vector) > 0 {
		hybrid = hybrid.WithVector(q.Vector)
	}

	builder := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithFields(fields...).
		WithHybrid(hybrid).
		WithLimit(q.TopK)

	if q.Category != "" {
		where := filters.Where().
			WithPath([]string{"category"}).
			WithOperator(filters.Equal).
			WithValueText(string(q.Category))
		builder = builder.WithWhere(where)
	}

	resp, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search failed: %s", resp.Errors[0].Message)
	}

	results := w.parseResults(resp)
	Sort(results)
	return results, nil
}

func (w *Weaviate) parseResults(resp *wmodels.GraphQLResponse) []model.SearchResult {
	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := get[w.className].([]interface{})
	if !ok {
		return nil
	}

	var results []model.SearchResult
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		cat, _ := model.ParseCategory(asString(obj["category"]))
		entry := model.KnowledgeEntry{
			ID:          asString(obj["entryId"]),
			Title:       asString(obj["title"]),
			Content:     asString(obj["content"]),
			Category:    cat,
			ServiceType: asString(obj["serviceType"]),
			Department:  asString(obj["department"]),
		}
		if entry.ID == "" {
			continue
		}
		results = append(results, model.SearchResult{
			Entry:          entry,
			RelevanceScore: additionalScore(obj),
			MatchReason:    "hybrid",
		})
	}
	return results
}

// Store batch-imports entries; used by the indexer, never by agents.
func (w *Weaviate) Store(ctx context.Context, entries []model.KnowledgeEntry) error {
	batcher := w.client.Batch().ObjectsBatcher()
	for _, e := range entries {
		obj := &wmodels.Object{
			Class: w.className,
			Properties: map[string]interface{}{
				"entryId":     e.ID,
				"title":       e.Title,
				"content":     e.Content,
				"category":    string(e.Category),
				"serviceType": e.ServiceType,
				"department":  e.Department,
				"updatedDate": e.UpdatedDate.Format(time.RFC3339),
			},
		}
		if len(e.Embedding) > 0 {
			obj.Vector = wmodels.C11yVector(e.Embedding)
		}
		batcher = batcher.WithObjects(obj)
	}
	if _, err := batcher.Do(ctx); err != nil {
		return fmt.Errorf("weaviate batch import failed: %w", err)
	}
	return nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// additionalScore reads _additional.score, which weaviate returns as a
// string for hybrid queries.
func additionalScore(obj map[string]interface{}) float64 {
	add, ok := obj["_additional"].(map[string]interface{})
	if !ok {
		return 0
	}
	switch v := add["score"].(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return v
	default:
		return 0
	}
}
