package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/civicgrid/civicnav/internal/config"
	"github.com/civicgrid/civicnav/internal/driver"
	"github.com/civicgrid/civicnav/internal/kb"
	"github.com/civicgrid/civicnav/internal/llm"
	"github.com/civicgrid/civicnav/internal/search"
)

// The indexer populates the hosted search backends from the knowledge base
// document, computing embeddings for entries that do not carry one.
func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment as-is")
	}

	cfgPath := flag.String("config", "config/config.toml", "path to config file")
	kbPath := flag.String("kb", "", "knowledge base path (overrides config)")
	skipEmbed := flag.Bool("skip-embeddings", false, "index without computing missing embeddings")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *kbPath != "" {
		cfg.KB.Path = *kbPath
	}

	entries, err := kb.Load(cfg.KB.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load knowledge base")
	}
	log.Info().Int("entries", len(entries)).Str("path", cfg.KB.Path).Msg("loaded knowledge base")

	ctx := context.Background()

	if !*skipEmbed {
		chain, err := llm.NewChainFromConfig(ctx, cfg.LLM, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize language model chain")
		}
		embedded := 0
		for i := range entries {
			if len(entries[i].Embedding) > 0 {
				continue
			}
			vec, err := chain.Embed(ctx, entries[i].Title+"\n"+entries[i].Content)
			if err != nil {
				log.Fatal().Err(err).Str("entry_id", entries[i].ID).Msg("failed to embed entry")
			}
			entries[i].Embedding = vec
			embedded++
		}
		log.Info().Int("embedded", embedded).Msg("computed missing embeddings")
	}

	indexed := false
	for _, name := range cfg.Search.Backends {
		switch name {
		case "weaviate":
			w, err := search.NewWeaviate(cfg.Weaviate)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to connect to weaviate")
			}
			if err := w.Store(ctx, entries); err != nil {
				log.Fatal().Err(err).Msg("failed to store entries in weaviate")
			}
			log.Info().Int("entries", len(entries)).Msg("indexed into weaviate")
			indexed = true
		case "graph":
			d, err := driver.NewNeo4jDriver(cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, log)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to connect to graph store")
			}
			g := search.NewGraph(d, cfg.LLM.EmbeddingDim)
			if err := g.BuildIndices(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to build graph indices")
			}
			if err := g.Store(ctx, entries); err != nil {
				log.Fatal().Err(err).Msg("failed to store entries in graph store")
			}
			if err := d.Close(ctx); err != nil {
				log.Warn().Err(err).Msg("graph driver close failed")
			}
			log.Info().Int("entries", len(entries)).Msg("indexed into graph store")
			indexed = true
		}
	}
	if !indexed {
		log.Info().Msg("no hosted backends configured; memory backend loads the knowledge base directly at startup")
	}
}
