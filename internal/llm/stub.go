package llm

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/civicgrid/civicnav/internal/model"
)

// Stub is the terminal chain tier: deterministic, dependency-free, always
// available. It recognizes the task prompts the agents emit and answers
// with valid JSON built from heuristics over the prompt text itself.
type Stub struct {
	dim int
}

func NewStub(embeddingDim int) *Stub {
	if embeddingDim <= 0 {
		embeddingDim = 1536
	}
	return &Stub{dim: embeddingDim}
}

var (
	questionLineRe = regexp.MustCompile(`(?m)^Question:\s*(.+)$`)
	sourceIDRe     = regexp.MustCompile(`(?m)^\[\d+\] entry_id=(\S+) title=(.*)$`)
	docIndexRe     = regexp.MustCompile(`(?m)^\[(\d+)\]`)
)

func (s *Stub) Generate(_ context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Classify the question"):
		return s.classify(prompt)
	case strings.Contains(prompt, "using ONLY the sources"):
		return s.answer(prompt)
	case strings.Contains(prompt, "Rank the documents"):
		return s.rank(prompt), nil
	default:
		return "{}", nil
	}
}

func (s *Stub) classify(prompt string) (string, error) {
	query := ""
	if m := questionLineRe.FindStringSubmatch(prompt); m != nil {
		query = m[1]
	}
	category, confidence := HeuristicClassify(query)
	out := map[string]any{
		"category":   string(category),
		"confidence": confidence,
		"entities":   HeuristicEntities(query),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// answer builds an extractive reply: the leading sentences of the top
// source, each citation an exact excerpt of the quoted content.
func (s *Stub) answer(prompt string) (string, error) {
	type citation struct {
		EntryID string `json:"entry_id"`
		Excerpt string `json:"excerpt"`
	}

	ids := sourceIDRe.FindAllStringSubmatch(prompt, -1)
	if len(ids) == 0 {
		data, _ := json.Marshal(map[string]any{
			"answer":    "I don't have specific information about that in my knowledge base.",
			"citations": []citation{},
		})
		return string(data), nil
	}

	// Content blocks follow each source header until the next blank line.
	blocks := splitSourceBlocks(prompt)
	var answerParts []string
	var citations []citation
	for i, m := range ids {
		if i >= len(blocks) {
			break
		}
		sentence := firstSentence(blocks[i])
		if sentence == "" {
			continue
		}
		answerParts = append(answerParts, sentence)
		citations = append(citations, citation{EntryID: m[1], Excerpt: sentence})
		if len(answerParts) == 2 {
			break
		}
	}

	data, err := json.Marshal(map[string]any{
		"answer":    strings.Join(answerParts, " "),
		"citations": citations,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Stub) rank(prompt string) string {
	matches := docIndexRe.FindAllStringSubmatch(prompt, -1)
	var indices []string
	for _, m := range matches {
		indices = append(indices, m[1])
	}
	return strings.Join(indices, ", ")
}

func splitSourceBlocks(prompt string) []string {
	var blocks []string
	lines := strings.Split(prompt, "\n")
	var current []string
	inBlock := false
	for _, line := range lines {
		if sourceIDRe.MatchString(line) {
			if inBlock {
				blocks = append(blocks, strings.Join(current, "\n"))
			}
			current = nil
			inBlock = true
			continue
		}
		if inBlock {
			if strings.TrimSpace(line) == "" {
				blocks = append(blocks, strings.Join(current, "\n"))
				current = nil
				inBlock = false
				continue
			}
			current = append(current, line)
		}
	}
	if inBlock {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}

// Embed returns a deterministic pseudo-embedding: token hashes spread over a
// fixed-dimension unit vector. Useless semantically but stable and cheap,
// which is what the terminal tier needs.
func (s *Stub) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dim)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		idx := int(sum) % s.dim
		if idx < 0 {
			idx += s.dim
		}
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

var categoryKeywords = map[model.Category][]string{
	model.CategorySchedule:  {"when", "schedule", "hours", "time", "collected", "collection", "pickup", "open", "close"},
	model.CategoryEvent:     {"event", "festival", "concert", "fair", "meeting", "celebration"},
	model.CategoryReport:    {"report", "broken", "pothole", "graffiti", "complaint", "streetlight", "damaged"},
	model.CategoryPermit:    {"permit", "license", "application", "apply", "build", "zoning", "construction"},
	model.CategoryEmergency: {"emergency", "urgent", "fire", "flood", "police", "ambulance", "danger"},
}

// heuristicOrder keeps classification deterministic when keywords from
// several categories appear: the category with the most hits wins, ties by
// enumeration order.
var heuristicOrder = []model.Category{
	model.CategorySchedule,
	model.CategoryEvent,
	model.CategoryReport,
	model.CategoryPermit,
	model.CategoryEmergency,
}

// HeuristicClassify infers a category from category-indicative terms. No
// match means general with zero confidence, so downstream filtering stays
// off for unclassifiable queries.
func HeuristicClassify(query string) (model.Category, float64) {
	tokens := Tokenize(query)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}

	best := model.CategoryGeneral
	bestHits := 0
	for _, cat := range heuristicOrder {
		hits := 0
		for _, kw := range categoryKeywords[cat] {
			if set[kw] {
				hits++
			}
		}
		if hits > bestHits {
			best = cat
			bestHits = hits
		}
	}
	if bestHits == 0 {
		return model.CategoryGeneral, 0.0
	}
	confidence := 0.6 + 0.1*float64(bestHits)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return best, confidence
}

var locationTerms = []string{"downtown", "uptown", "north", "south", "east", "west", "park", "library", "city hall"}
var dayTerms = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "weekend", "today", "tomorrow"}

// HeuristicEntities extracts the obvious structured values. Best effort;
// an empty map is always valid.
func HeuristicEntities(query string) map[string]string {
	lower := strings.ToLower(query)
	entities := map[string]string{}
	for _, term := range locationTerms {
		if strings.Contains(lower, term) {
			entities["location"] = term
			break
		}
	}
	for _, term := range dayTerms {
		if strings.Contains(lower, term) {
			entities["date"] = term
			break
		}
	}
	return entities
}

// Tokenize lowercases and splits on non-alphanumeric runes.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
