package model

import (
	"time"
)

// Category is the closed set of city service categories.
type Category string

const (
	CategorySchedule  Category = "schedule"
	CategoryEvent     Category = "event"
	CategoryReport    Category = "report"
	CategoryPermit    Category = "permit"
	CategoryEmergency Category = "emergency"
	CategoryGeneral   Category = "general"
)

// Categories returns the fixed enumeration in stable order.
func Categories() []Category {
	return []Category{
		CategorySchedule,
		CategoryEvent,
		CategoryReport,
		CategoryPermit,
		CategoryEmergency,
		CategoryGeneral,
	}
}

// ParseCategory validates a category string. Empty input is allowed and
// means "no category" so callers can use it for optional filters.
func ParseCategory(s string) (Category, bool) {
	if s == "" {
		return "", true
	}
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// KnowledgeEntry is one unit of city services information. Entries are
// static per deployment; agents never mutate them.
type KnowledgeEntry struct {
	ID          string    `json:"id" toml:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    Category  `json:"category"`
	ServiceType string    `json:"service_type"`
	Department  string    `json:"department"`
	UpdatedDate time.Time `json:"updated_date"`
	Embedding   []float32 `json:"content_vector,omitempty"`
}

// SearchResult is a scored reference to a knowledge entry. Scores are
// comparison-only and not normalized across backends.
type SearchResult struct {
	Entry          KnowledgeEntry `json:"entry"`
	RelevanceScore float64        `json:"relevance_score"`
	MatchReason    string         `json:"match_reason,omitempty"`
}

// Citation ties a factual claim in an answer back to a knowledge entry.
// Excerpt must be a substring of the cited entry's content.
type Citation struct {
	EntryID  string `json:"entry_id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Position int    `json:"position"`
}

// IntentClassification is the output of the intent stage.
type IntentClassification struct {
	Category   Category          `json:"category"`
	Entities   map[string]string `json:"entities"`
	Confidence float64           `json:"confidence"`
}

// QueryResponse is the terminal artifact of one pipeline run.
type QueryResponse struct {
	ID        string               `json:"id"`
	Answer    string               `json:"answer"`
	Citations []Citation           `json:"citations"`
	Intent    IntentClassification `json:"intent"`
	Reasoning string               `json:"reasoning,omitempty"`
	LatencyMs float64              `json:"latency_ms"`
}
