package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/model"
)

// Chain tries backends in configured order per call, mirroring the
// language-model fallback chain. The memory backend, which cannot fail,
// belongs at the end.
type Chain struct {
	backends []Provider
	log      zerolog.Logger
}

func NewChain(backends []Provider, log zerolog.Logger) *Chain {
	return &Chain{
		backends: backends,
		log:      log.With().Str("component", "search-chain").Logger(),
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Backends() []Provider { return c.backends }

func (c *Chain) Search(ctx context.Context, q Query) ([]model.SearchResult, error) {
	var lastErr error
	for _, b := range c.backends {
		results, err := b.Search(ctx, q)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn().Str("backend", b.Name()).Err(err).Msg("search backend failed, falling through")
		lastErr = err
	}
	return nil, fmt.Errorf("%w: all search backends exhausted: %v", model.ErrProviderUnavailable, lastErr)
}

func (c *Chain) Health(ctx context.Context) error {
	for _, b := range c.backends {
		if err := b.Health(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no healthy search backend")
}

// CategoryCounts serves from the first backend that can count; zero
// counts are returned when none can.
func (c *Chain) CategoryCounts(ctx context.Context) (map[model.Category]int, error) {
	for _, b := range c.backends {
		counter, ok := b.(CategoryCounter)
		if !ok {
			continue
		}
		counts, err := counter.CategoryCounts(ctx)
		if err == nil {
			return counts, nil
		}
		c.log.Warn().Str("backend", b.Name()).Err(err).Msg("category count failed, falling through")
	}
	return map[model.Category]int{}, nil
}
