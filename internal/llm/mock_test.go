package llm

import (
	"context"
)

type MockClient struct {
	Response      string
	ResponseQueue []string
	Err           error
	Calls         int
	Prompts       []string
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

type MockEmbedder struct {
	Vector []float32
	Err    error
	Calls  int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}

// BlockingClient waits for its context to expire before failing, to
// exercise the per-call timeout path.
type BlockingClient struct{}

func (b *BlockingClient) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
