package kb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicgrid/civicnav/internal/model"
)

func writeKB(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.json")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeKB(t, `{
		"entries": [
			{
				"id": "entry-001",
				"title": "Trash Collection Schedule",
				"content": "Residential trash collection occurs every Monday and Thursday.",
				"category": "schedule",
				"service_type": "trash",
				"department": "Public Works",
				"updated_date": "2024-01-15T00:00:00Z"
			}
		]
	}`)

	entries, err := Load(path)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "entry-001", entries[0].ID)
	assert.Equal(t, model.CategorySchedule, entries[0].Category)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeKB(t, `{"entries": [`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_DuplicateID(t *testing.T) {
	entries := []model.KnowledgeEntry{
		{ID: "a", Title: "One", Content: "x", Category: model.CategoryGeneral},
		{ID: "a", Title: "Two", Content: "y", Category: model.CategoryGeneral},
	}
	err := Validate(entries)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidate_MissingFields(t *testing.T) {
	assert.Error(t, Validate([]model.KnowledgeEntry{{Title: "x", Content: "y", Category: model.CategoryGeneral}}))
	assert.Error(t, Validate([]model.KnowledgeEntry{{ID: "a", Content: "y", Category: model.CategoryGeneral}}))
	assert.Error(t, Validate([]model.KnowledgeEntry{{ID: "a", Title: "x", Category: model.CategoryGeneral}}))
}

func TestValidate_UnknownCategory(t *testing.T) {
	err := Validate([]model.KnowledgeEntry{{ID: "a", Title: "x", Content: "y", Category: "weather"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "category")
}

func TestValidate_InconsistentEmbeddingDim(t *testing.T) {
	entries := []model.KnowledgeEntry{
		{ID: "a", Title: "One", Content: "x", Category: model.CategoryGeneral, Embedding: []float32{1, 2}},
		{ID: "b", Title: "Two", Content: "y", Category: model.CategoryGeneral, Embedding: []float32{1, 2, 3}},
	}
	err := Validate(entries)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestValidate_EmbeddingOptional(t *testing.T) {
	entries := []model.KnowledgeEntry{
		{ID: "a", Title: "One", Content: "x", Category: model.CategoryGeneral, Embedding: []float32{1, 2}},
		{ID: "b", Title: "Two", Content: "y", Category: model.CategoryGeneral},
	}
	assert.NoError(t, Validate(entries))
}
