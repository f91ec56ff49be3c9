package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/llm"
	"github.com/civicgrid/civicnav/internal/model"
)

// NoResultsAnswer is the fixed reply when retrieval finds nothing. The
// model is never consulted in that case: grounding integrity outranks
// always generating.
const NoResultsAnswer = `I don't have specific information about that in my knowledge base. Here are some suggestions:

1. Contact City Hall directly at 555-CITY (555-2489)
2. Visit the city website at www.example-city.gov
3. Try rephrasing your question with more specific terms`

const answerPromptTemplate = `You are a helpful city services assistant. Answer the user's question using ONLY the sources below.
Every factual sentence must cite its supporting source: include the source's entry id and a short verbatim excerpt from its content.
If the sources do not answer the question, say so plainly.

Question: %s

Sources:
%s`

const maxSourceContentLen = 500

type answerPayload struct {
	Answer    string            `json:"answer"`
	Citations []citationPayload `json:"citations"`
}

type citationPayload struct {
	EntryID string `json:"entry_id"`
	Excerpt string `json:"excerpt"`
}

// Answered is the answer agent's output value.
type Answered struct {
	Answer    string
	Citations []model.Citation
}

// AnswerAgent synthesizes a cited answer strictly from the retrieved
// passages. Citations that cannot be traced back to their entry are
// dropped, never kept.
type AnswerAgent struct {
	client llm.Client
	log    zerolog.Logger
}

func NewAnswerAgent(client llm.Client, log zerolog.Logger) *AnswerAgent {
	return &AnswerAgent{
		client: client,
		log:    log.With().Str("component", "answer-agent").Logger(),
	}
}

func (a *AnswerAgent) Answer(ctx context.Context, query string, results []model.SearchResult) (Result[Answered], error) {
	t := startTimer()

	if len(results) == 0 {
		return Result[Answered]{
			Output:    Answered{Answer: NoResultsAnswer, Citations: []model.Citation{}},
			Reasoning: "No relevant results found in knowledge base. Returned fixed no-information response.",
			ToolsUsed: []string{},
			LatencyMs: t.elapsedMs(),
		}, nil
	}

	tools := []string{"llm_complete"}
	prompt := fmt.Sprintf(answerPromptTemplate, query, formatSources(results))

	payload, err := llm.Complete[answerPayload](ctx, a.client, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return Result[Answered]{}, ctx.Err()
		}
		a.log.Warn().Err(err).Msg("synthesis unavailable, building extractive answer")
		return a.extractive(results, t, append(tools, "extractive_fallback")), nil
	}

	citations, dropped := a.validateCitations(payload.Citations, results)
	if len(citations) == 0 {
		// A generative answer with no surviving citations is untrustworthy;
		// the extractive fallback always carries a traceable one.
		a.log.Warn().Int("dropped", dropped).Msg("all citations failed grounding check, using extractive answer")
		return a.extractive(results, t, append(tools, "extractive_fallback")), nil
	}

	reasoning := fmt.Sprintf("Synthesized answer from %d results with %d citations", len(results), len(citations))
	if dropped > 0 {
		reasoning += fmt.Sprintf(" (%d dropped by grounding check)", dropped)
	}
	return Result[Answered]{
		Output:    Answered{Answer: payload.Answer, Citations: citations},
		Reasoning: reasoning + ".",
		ToolsUsed: tools,
		LatencyMs: t.elapsedMs(),
	}, nil
}

// validateCitations keeps only citations whose entry id appears in the
// retrieved set and whose excerpt is a whitespace-normalized substring of
// that entry's content.
func (a *AnswerAgent) validateCitations(payload []citationPayload, results []model.SearchResult) ([]model.Citation, int) {
	byID := make(map[string]model.KnowledgeEntry, len(results))
	for _, r := range results {
		byID[r.Entry.ID] = r.Entry
	}

	var citations []model.Citation
	dropped := 0
	for _, c := range payload {
		entry, ok := byID[c.EntryID]
		if !ok {
			a.log.Warn().Str("entry_id", c.EntryID).Msg("grounding violation: citation references unretrieved entry")
			dropped++
			continue
		}
		excerpt := strings.TrimSpace(c.Excerpt)
		if excerpt == "" || !containsNormalized(entry.Content, excerpt) {
			a.log.Warn().Str("entry_id", c.EntryID).Msg("grounding violation: excerpt not found in cited entry")
			dropped++
			continue
		}
		citations = append(citations, model.Citation{
			EntryID:  entry.ID,
			Title:    entry.Title,
			Excerpt:  excerpt,
			Position: len(citations),
		})
	}
	return citations, dropped
}

// extractive builds a deterministic answer from the top result: its leading
// sentence, cited verbatim.
func (a *AnswerAgent) extractive(results []model.SearchResult, t timer, tools []string) Result[Answered] {
	top := results[0].Entry
	sentence := leadingSentence(top.Content)
	answer := fmt.Sprintf("%s %s", sentence, "(Source: "+top.Title+")")
	citations := []model.Citation{{
		EntryID:  top.ID,
		Title:    top.Title,
		Excerpt:  sentence,
		Position: 0,
	}}
	return Result[Answered]{
		Output:    Answered{Answer: answer, Citations: citations},
		Reasoning: fmt.Sprintf("Extractive answer built from top result '%s'.", top.Title),
		ToolsUsed: tools,
		LatencyMs: t.elapsedMs(),
	}
}

func formatSources(results []model.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		content := r.Entry.Content
		if len(content) > maxSourceContentLen {
			content = content[:maxSourceContentLen]
		}
		fmt.Fprintf(&b, "[%d] entry_id=%s title=%s\n%s\n\n", i+1, r.Entry.ID, r.Entry.Title, content)
	}
	return b.String()
}

// containsNormalized reports whether needle occurs in haystack after
// collapsing all whitespace runs to single spaces.
func containsNormalized(haystack, needle string) bool {
	h := strings.Join(strings.Fields(haystack), " ")
	n := strings.Join(strings.Fields(needle), " ")
	if n == "" {
		return false
	}
	return strings.Contains(h, n)
}

func leadingSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}
