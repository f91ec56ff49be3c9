package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/model"
)

// Tier is one configured backend in the fallback chain. Embedder may be nil
// for backends without an embedding API (Claude).
type Tier struct {
	Name     string
	Client   Client
	Embedder Embedder
}

// Chain walks its tiers top-down on every call and serves from the first
// one that answers. Evaluation is fresh per call: a transient outage never
// demotes a backend. The final tier is expected to be the stub, which
// cannot fail, so a chain-level error means broken configuration.
type Chain struct {
	tiers   []Tier
	timeout time.Duration
	log     zerolog.Logger
}

func NewChain(tiers []Tier, timeout time.Duration, log zerolog.Logger) *Chain {
	return &Chain{
		tiers:   tiers,
		timeout: timeout,
		log:     log.With().Str("component", "llm-chain").Logger(),
	}
}

// Tiers reports the configured tier names in fallback order.
func (c *Chain) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name
	}
	return names
}

func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, tier := range c.tiers {
		if tier.Client == nil {
			continue
		}
		out, err := c.callGenerate(ctx, tier, prompt)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			// Caller cancellation propagates; it is not a tier failure.
			return "", ctx.Err()
		}
		c.log.Warn().Str("tier", tier.Name).Err(err).Msg("generation tier failed, falling through")
		lastErr = err
	}
	return "", fmt.Errorf("%w: all generation tiers exhausted: %v", model.ErrProviderUnavailable, lastErr)
}

func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for _, tier := range c.tiers {
		if tier.Embedder == nil {
			continue
		}
		vec, err := c.callEmbed(ctx, tier, text)
		if err == nil {
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn().Str("tier", tier.Name).Err(err).Msg("embedding tier failed, falling through")
		lastErr = err
	}
	return nil, fmt.Errorf("%w: all embedding tiers exhausted: %v", model.ErrProviderUnavailable, lastErr)
}

func (c *Chain) callGenerate(ctx context.Context, tier Tier, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	out, err := tier.Client.Generate(callCtx, prompt)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %s timed out after %s", model.ErrProviderUnavailable, tier.Name, c.timeout)
	}
	return out, err
}

func (c *Chain) callEmbed(ctx context.Context, tier Tier, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	vec, err := tier.Embedder.Embed(callCtx, text)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s timed out after %s", model.ErrProviderUnavailable, tier.Name, c.timeout)
	}
	return vec, err
}

// Check probes the primary non-stub tier with a minimal completion. A chain
// with only the stub reports healthy by definition.
func (c *Chain) Check(ctx context.Context) bool {
	for _, tier := range c.tiers {
		if tier.Name == "stub" || tier.Client == nil {
			continue
		}
		_, err := c.callGenerate(ctx, tier, "Reply with OK.")
		return err == nil
	}
	return true
}
