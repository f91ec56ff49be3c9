package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SimpleReranker reorders documents with a single ranking completion.
// On any model failure it falls back to the original order, so reranking
// can only refine results, never lose them.
type SimpleReranker struct {
	client Client
}

func NewSimpleReranker(client Client) *SimpleReranker {
	return &SimpleReranker{client: client}
}

func (r *SimpleReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) == 1 {
		return []int{0}, nil
	}

	var b strings.Builder
	for i, d := range docs {
		content := d
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Fprintf(&b, "[%d] %s\n", i, content)
	}

	prompt := fmt.Sprintf(`You are a search relevance optimization system.
Query: %s

Documents:
%s
Rank the documents above based on their relevance to the query.
Output ONLY the indices of the documents in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, query, b.String())

	resp, err := r.client.Generate(ctx, prompt)
	if err != nil {
		return identityOrder(len(docs)), nil
	}

	indices := parseIndices(resp, len(docs))
	if len(indices) == 0 {
		return identityOrder(len(docs)), nil
	}
	return indices, nil
}

func identityOrder(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

var indexRe = regexp.MustCompile(`\d+`)

// parseIndices extracts a permutation from the reply: out-of-range and
// duplicate indices are dropped, missing ones appended in original order.
func parseIndices(s string, n int) []int {
	matches := indexRe.FindAllString(s, -1)
	seen := make(map[int]bool, n)
	var indices []int
	for _, m := range matches {
		i, err := strconv.Atoi(m)
		if err != nil || i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		indices = append(indices, i)
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			indices = append(indices, i)
		}
	}
	return indices
}
