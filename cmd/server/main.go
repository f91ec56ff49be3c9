package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/agent"
	"github.com/civicgrid/civicnav/internal/config"
	"github.com/civicgrid/civicnav/internal/driver"
	"github.com/civicgrid/civicnav/internal/kb"
	"github.com/civicgrid/civicnav/internal/llm"
	"github.com/civicgrid/civicnav/internal/search"
	"github.com/civicgrid/civicnav/internal/server"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment as-is")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	chain, err := llm.NewChainFromConfig(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize language model chain")
	}

	backends, closeFn, err := buildBackends(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize search backends")
	}
	defer closeFn(ctx)

	pipeline := agent.NewPipeline(chain, search.NewChain(backends, log), cfg.Search, log)

	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(pipeline, log)
	r := srv.SetupRouter()

	log.Info().Str("port", cfg.Server.Port).Strs("backends", cfg.Search.Backends).Msg("starting server")
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// buildBackends constructs the configured search providers in fallback
// order. The returned close function releases any held connections.
func buildBackends(cfg *config.Config, log zerolog.Logger) ([]search.Provider, func(context.Context), error) {
	var (
		backends []search.Provider
		closers  []func(context.Context) error
	)
	for _, name := range cfg.Search.Backends {
		switch name {
		case "weaviate":
			w, err := search.NewWeaviate(cfg.Weaviate)
			if err != nil {
				return nil, nil, err
			}
			backends = append(backends, w)
		case "graph":
			d, err := driver.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, log)
			if err != nil {
				return nil, nil, err
			}
			closers = append(closers, d.Close)
			backends = append(backends, search.NewGraph(d, cfg.LLM.EmbeddingDim))
		case "memory":
			entries, err := kb.Load(cfg.KB.Path)
			if err != nil {
				return nil, nil, err
			}
			log.Info().Int("entries", len(entries)).Str("path", cfg.KB.Path).Msg("loaded knowledge base")
			backends = append(backends, search.NewMemory(entries))
		}
	}
	closeAll := func(ctx context.Context) {
		for _, c := range closers {
			if err := c(ctx); err != nil {
				log.Warn().Err(err).Msg("backend close failed")
			}
		}
	}
	return backends, closeAll, nil
}
