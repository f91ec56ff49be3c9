package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ProviderConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type LLMConfig struct {
	Providers    []ProviderConfig `toml:"providers"`
	TimeoutMs    int              `toml:"timeout_ms"`
	EmbeddingDim int              `toml:"embedding_dim"`
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type SearchConfig struct {
	Backends         []string `toml:"backends"`
	TopK             int      `toml:"top_k"`
	MinResults       int      `toml:"min_results"`
	ConfidenceCutoff float64  `toml:"confidence_cutoff"`
	TimeoutMs        int      `toml:"timeout_ms"`
	Rerank           bool     `toml:"rerank"`
}

func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type WeaviateConfig struct {
	Host      string `toml:"host"`
	Scheme    string `toml:"scheme"`
	APIKey    string `toml:"api_key"`
	ClassName string `toml:"class_name"`
}

type GraphConfig struct {
	URI      string `toml:"uri"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type KnowledgeBaseConfig struct {
	Path string `toml:"path"`
}

type Config struct {
	Server   ServerConfig        `toml:"server"`
	LLM      LLMConfig           `toml:"llm"`
	Search   SearchConfig        `toml:"search"`
	Weaviate WeaviateConfig      `toml:"weaviate"`
	Graph    GraphConfig         `toml:"graph"`
	KB       KnowledgeBaseConfig `toml:"kb"`
}

// Default returns a configuration that runs with zero external services:
// stub language model and in-memory search only.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		LLM: LLMConfig{
			Providers:    []ProviderConfig{{Provider: "stub"}},
			TimeoutMs:    15000,
			EmbeddingDim: 1536,
		},
		Search: SearchConfig{
			Backends:         []string{"memory"},
			TopK:             5,
			MinResults:       2,
			ConfidenceCutoff: 0.70,
			TimeoutMs:        10000,
		},
		Weaviate: WeaviateConfig{Scheme: "http", ClassName: "CivicKnowledge"},
		KB:       KnowledgeBaseConfig{Path: "data/knowledge_base.json"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// LoadOrDefault loads the config file when present and falls back to the
// built-in defaults otherwise. Env overrides apply in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errorsIsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func errorsIsNotExist(err error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if os.IsNotExist(err) {
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = d.LLM.Providers
	}
	if c.LLM.TimeoutMs <= 0 {
		c.LLM.TimeoutMs = d.LLM.TimeoutMs
	}
	if c.LLM.EmbeddingDim <= 0 {
		c.LLM.EmbeddingDim = d.LLM.EmbeddingDim
	}
	if len(c.Search.Backends) == 0 {
		c.Search.Backends = d.Search.Backends
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = d.Search.TopK
	}
	if c.Search.MinResults <= 0 {
		c.Search.MinResults = d.Search.MinResults
	}
	if c.Search.ConfidenceCutoff <= 0 {
		c.Search.ConfidenceCutoff = d.Search.ConfidenceCutoff
	}
	if c.Search.TimeoutMs <= 0 {
		c.Search.TimeoutMs = d.Search.TimeoutMs
	}
	if c.Weaviate.Scheme == "" {
		c.Weaviate.Scheme = d.Weaviate.Scheme
	}
	if c.Weaviate.ClassName == "" {
		c.Weaviate.ClassName = d.Weaviate.ClassName
	}
	if c.KB.Path == "" {
		c.KB.Path = d.KB.Path
	}
}

// ApplyEnv overrides file values with environment variables when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		// Replaces the primary tier only; the rest of the chain keeps the
		// stub reachable.
		var p ProviderConfig
		if len(c.LLM.Providers) > 0 {
			p = c.LLM.Providers[0]
		}
		p.Provider = v
		if len(c.LLM.Providers) > 0 {
			c.LLM.Providers[0] = p
		} else {
			c.LLM.Providers = []ProviderConfig{p}
		}
	}
	if len(c.LLM.Providers) > 0 {
		if v := os.Getenv("LLM_MODEL"); v != "" {
			c.LLM.Providers[0].Model = v
		}
		if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
			c.LLM.Providers[0].EmbeddingModel = v
		}
		if v := os.Getenv("LLM_API_KEY"); v != "" {
			c.LLM.Providers[0].APIKey = v
		}
		if v := os.Getenv("LLM_BASE_URL"); v != "" {
			c.LLM.Providers[0].BaseURL = v
		}
	}
	if v := os.Getenv("LLM_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.LLM.TimeoutMs = ms
		}
	}
	if v := os.Getenv("WEAVIATE_HOST"); v != "" {
		c.Weaviate.Host = v
	}
	if v := os.Getenv("WEAVIATE_API_KEY"); v != "" {
		c.Weaviate.APIKey = v
	}
	if v := os.Getenv("GRAPH_URI"); v != "" {
		c.Graph.URI = v
	}
	if v := os.Getenv("GRAPH_USER"); v != "" {
		c.Graph.Username = v
	}
	if v := os.Getenv("GRAPH_PASSWORD"); v != "" {
		c.Graph.Password = v
	}
	if v := os.Getenv("KB_PATH"); v != "" {
		c.KB.Path = v
	}
}

func (c *Config) Validate() error {
	for _, p := range c.LLM.Providers {
		switch p.Provider {
		case "openai", "gemini", "claude", "ollama", "stub":
		default:
			return fmt.Errorf("unsupported llm provider: %s", p.Provider)
		}
	}
	for _, b := range c.Search.Backends {
		switch b {
		case "weaviate", "graph", "memory":
		default:
			return fmt.Errorf("unsupported search backend: %s", b)
		}
	}
	if c.Search.ConfidenceCutoff > 1 {
		return fmt.Errorf("confidence_cutoff must be within (0, 1], got %v", c.Search.ConfidenceCutoff)
	}
	return nil
}
