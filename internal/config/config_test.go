package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"memory"}, cfg.Search.Backends)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, 0.70, cfg.Search.ConfidenceCutoff)
	assert.Equal(t, 1536, cfg.LLM.EmbeddingDim)
	assert.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "stub", cfg.LLM.Providers[0].Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
port = "9090"

[llm]
timeout_ms = 5000

[[llm.providers]]
provider = "openai"
model = "gpt-4o-mini"

[search]
backends = ["weaviate", "memory"]
top_k = 10
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Providers[0].Provider)
	assert.Equal(t, 5000, cfg.LLM.TimeoutMs)
	assert.Equal(t, []string{"weaviate", "memory"}, cfg.Search.Backends)
	assert.Equal(t, 10, cfg.Search.TopK)

	// Unset values fall back to defaults.
	assert.Equal(t, 2, cfg.Search.MinResults)
	assert.Equal(t, 0.70, cfg.Search.ConfidenceCutoff)
	assert.Equal(t, "CivicKnowledge", cfg.Weaviate.ClassName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFileFallsBack(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadOrDefault_MalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	_, err := LoadOrDefault(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("LLM_MODEL", "claude-sonnet")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_TIMEOUT_MS", "2500")
	t.Setenv("WEAVIATE_HOST", "weaviate.internal:8081")
	t.Setenv("KB_PATH", "/tmp/kb.json")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "claude", cfg.LLM.Providers[0].Provider)
	assert.Equal(t, "claude-sonnet", cfg.LLM.Providers[0].Model)
	assert.Equal(t, "sk-test", cfg.LLM.Providers[0].APIKey)
	assert.Equal(t, 2500, cfg.LLM.TimeoutMs)
	assert.Equal(t, "weaviate.internal:8081", cfg.Weaviate.Host)
	assert.Equal(t, "/tmp/kb.json", cfg.KB.Path)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LLM.Providers[0].Provider = "bard"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Search.Backends = []string{"elasticsearch"}
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Search.ConfidenceCutoff = 1.5
	assert.Error(t, cfg.Validate())
}

func TestTimeouts(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout())
}
