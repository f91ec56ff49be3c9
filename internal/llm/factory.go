package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/config"
)

// NewTier builds one chain tier from provider configuration.
func NewTier(ctx context.Context, cfg config.ProviderConfig, embeddingDim int) (Tier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		c := NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.BaseURL)
		return Tier{Name: "openai", Client: c, Embedder: c}, nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return Tier{}, err
		}
		return Tier{Name: "gemini", Client: c, Embedder: c}, nil

	case "claude":
		// No embedding API; the chain skips this tier for Embed calls.
		c := NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		return Tier{Name: "claude", Client: c}, nil

	case "ollama":
		c, err := NewOllamaClient(cfg.Model, cfg.BaseURL)
		if err != nil {
			return Tier{}, err
		}
		return Tier{Name: "ollama", Client: c, Embedder: c}, nil

	case "stub":
		s := NewStub(embeddingDim)
		return Tier{Name: "stub", Client: s, Embedder: s}, nil

	default:
		return Tier{}, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// NewChainFromConfig assembles the fallback chain in configured order. The
// stub is appended when absent so the chain always terminates in a tier
// that cannot fail.
func NewChainFromConfig(ctx context.Context, cfg config.LLMConfig, log zerolog.Logger) (*Chain, error) {
	var tiers []Tier
	hasStub := false
	for _, pc := range cfg.Providers {
		tier, err := NewTier(ctx, pc, cfg.EmbeddingDim)
		if err != nil {
			return nil, err
		}
		if tier.Name == "stub" {
			hasStub = true
		}
		tiers = append(tiers, tier)
	}
	if !hasStub {
		s := NewStub(cfg.EmbeddingDim)
		tiers = append(tiers, Tier{Name: "stub", Client: s, Embedder: s})
	}
	return NewChain(tiers, cfg.Timeout(), log), nil
}
