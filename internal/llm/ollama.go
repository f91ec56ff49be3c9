package llm

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/XiaoConstantine/dspy-go/pkg/llms"
)

// OllamaClient runs against a local Ollama daemon via dspy-go.
type OllamaClient struct {
	llm *llms.OllamaLLM
}

func NewOllamaClient(modelName, baseURL string) (*OllamaClient, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	ollamaLLM, err := llms.NewOllamaLLM(
		core.ModelID(modelName),
		llms.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama llm: %w", err)
	}
	return &OllamaClient{llm: ollamaLLM}, nil
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.llm.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	return result.Vector, nil
}
