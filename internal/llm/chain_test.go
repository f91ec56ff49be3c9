package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/civicgrid/civicnav/internal/model"
)

func testChain(tiers []Tier) *Chain {
	return NewChain(tiers, 5*time.Second, zerolog.Nop())
}

func TestChainGenerate_PrimaryServes(t *testing.T) {
	primary := &MockClient{Response: "primary"}
	secondary := &MockClient{Response: "secondary"}
	c := testChain([]Tier{
		{Name: "a", Client: primary},
		{Name: "b", Client: secondary},
	})

	out, err := c.Generate(context.Background(), "hi")
	assert.NoError(t, err)
	assert.Equal(t, "primary", out)
	assert.Equal(t, 0, secondary.Calls)
}

func TestChainGenerate_FallsThrough(t *testing.T) {
	primary := &MockClient{Err: errors.New("quota exceeded")}
	secondary := &MockClient{Response: "secondary"}
	c := testChain([]Tier{
		{Name: "a", Client: primary},
		{Name: "b", Client: secondary},
	})

	out, err := c.Generate(context.Background(), "hi")
	assert.NoError(t, err)
	assert.Equal(t, "secondary", out)
	assert.Equal(t, 1, primary.Calls)
}

func TestChainGenerate_FreshEvaluationPerCall(t *testing.T) {
	primary := &MockClient{Err: errors.New("transient")}
	secondary := &MockClient{Response: "secondary"}
	c := testChain([]Tier{
		{Name: "a", Client: primary},
		{Name: "b", Client: secondary},
	})

	_, err := c.Generate(context.Background(), "first")
	assert.NoError(t, err)

	// Primary recovers; the next call must try it again.
	primary.Err = nil
	primary.Response = "recovered"
	out, err := c.Generate(context.Background(), "second")
	assert.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, primary.Calls)
}

func TestChainGenerate_AllExhausted(t *testing.T) {
	c := testChain([]Tier{
		{Name: "a", Client: &MockClient{Err: errors.New("down")}},
		{Name: "b", Client: &MockClient{Err: errors.New("also down")}},
	})

	_, err := c.Generate(context.Background(), "hi")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "also down")
}

func TestChainGenerate_TimeoutFallsThrough(t *testing.T) {
	c := NewChain([]Tier{
		{Name: "slow", Client: &BlockingClient{}},
		{Name: "fast", Client: &MockClient{Response: "fast"}},
	}, 10*time.Millisecond, zerolog.Nop())

	out, err := c.Generate(context.Background(), "hi")
	assert.NoError(t, err)
	assert.Equal(t, "fast", out)
}

func TestChainGenerate_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fallback := &MockClient{Response: "never"}
	c := testChain([]Tier{
		{Name: "a", Client: &MockClient{Err: errors.New("down")}},
		{Name: "b", Client: fallback},
	})

	_, err := c.Generate(ctx, "hi")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, fallback.Calls)
}

func TestChainEmbed_SkipsTiersWithoutEmbedder(t *testing.T) {
	embedder := &MockEmbedder{Vector: []float32{0.1, 0.2}}
	c := testChain([]Tier{
		{Name: "claude", Client: &MockClient{Response: "text"}}, // no embedder
		{Name: "openai", Client: &MockClient{}, Embedder: embedder},
	})

	vec, err := c.Embed(context.Background(), "hi")
	assert.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestChainEmbed_AllExhausted(t *testing.T) {
	c := testChain([]Tier{
		{Name: "a", Client: &MockClient{}, Embedder: &MockEmbedder{Err: errors.New("down")}},
	})

	_, err := c.Embed(context.Background(), "hi")
	assert.True(t, errors.Is(err, model.ErrProviderUnavailable))
}

func TestChainCheck(t *testing.T) {
	// Stub-only chain is healthy by definition.
	stubOnly := testChain([]Tier{{Name: "stub", Client: NewStub(8), Embedder: NewStub(8)}})
	assert.True(t, stubOnly.Check(context.Background()))

	healthy := testChain([]Tier{
		{Name: "openai", Client: &MockClient{Response: "OK"}},
		{Name: "stub", Client: NewStub(8)},
	})
	assert.True(t, healthy.Check(context.Background()))

	down := testChain([]Tier{
		{Name: "openai", Client: &MockClient{Err: errors.New("down")}},
		{Name: "stub", Client: NewStub(8)},
	})
	assert.False(t, down.Check(context.Background()))
}

func TestChainTiers(t *testing.T) {
	c := testChain([]Tier{
		{Name: "openai", Client: &MockClient{}},
		{Name: "stub", Client: NewStub(8)},
	})
	assert.Equal(t, []string{"openai", "stub"}, c.Tiers())
}
