package kb

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/civicgrid/civicnav/internal/model"
)

type document struct {
	Entries []model.KnowledgeEntry `json:"entries"`
}

// Load reads the static knowledge base document and validates its entries.
// The format mirrors the indexer input: {"entries": [...]} with optional
// precomputed content_vector per entry.
func Load(path string) ([]model.KnowledgeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base '%s': %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}

	if err := Validate(doc.Entries); err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// Validate enforces the invariants agents rely on: unique non-empty ids,
// non-empty title/content, a known category, and a consistent embedding
// dimension across all entries that carry one.
func Validate(entries []model.KnowledgeEntry) error {
	seen := make(map[string]bool, len(entries))
	dim := 0
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry %d: missing id", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		if e.Title == "" {
			return fmt.Errorf("entry %q: missing title", e.ID)
		}
		if e.Content == "" {
			return fmt.Errorf("entry %q: missing content", e.ID)
		}
		if _, ok := model.ParseCategory(string(e.Category)); !ok || e.Category == "" {
			return fmt.Errorf("entry %q: unknown category %q", e.ID, e.Category)
		}
		if len(e.Embedding) > 0 {
			if dim == 0 {
				dim = len(e.Embedding)
			} else if len(e.Embedding) != dim {
				return fmt.Errorf("entry %q: embedding dimension %d, expected %d", e.ID, len(e.Embedding), dim)
			}
		}
	}
	return nil
}
