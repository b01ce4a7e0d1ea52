// Package app wires storage, providers, ingestion and search from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dshills/promptkb/internal/config"
	"github.com/dshills/promptkb/internal/embedder"
	"github.com/dshills/promptkb/internal/ingest"
	"github.com/dshills/promptkb/internal/intent"
	"github.com/dshills/promptkb/internal/llm"
	"github.com/dshills/promptkb/internal/searcher"
	"github.com/dshills/promptkb/internal/semantic"
	"github.com/dshills/promptkb/internal/storage"
)

// App holds the long-lived components shared by the CLI and the MCP server
type App struct {
	Config   *config.Config
	Storage  storage.Storage
	Embedder embedder.Embedder
	Provider llm.Provider
	Ingester *ingest.Ingester
	Searcher *searcher.Searcher
	logger   *slog.Logger
}

// New opens the database and constructs every component. One embedder instance is
// shared by the ingester and the searcher so both hit the same cache.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := slog.Default().With("component", "app")

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider, err := llm.NewProvider(cfg.LLMConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize llm provider: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ing, err := ingest.New(store, ingest.WithEmbedder(emb))
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize ingester: %w", err)
	}

	scorer := newScorer(cfg.SemanticStrategy(), provider, emb, store)
	srch := searcher.NewFromStorage(store, intent.NewAnalyzer(provider), scorer, cfg.SearcherOptions()...)

	logger.Debug("components initialized",
		"db", cfg.DBPath,
		"llm", provider.Name(),
		"embedder", emb.Provider(),
		"strategy", cfg.SemanticStrategy())

	return &App{
		Config:   cfg,
		Storage:  store,
		Embedder: emb,
		Provider: provider,
		Ingester: ing,
		Searcher: srch,
		logger:   logger,
	}, nil
}

// newScorer selects the semantic scorer for a strategy
func newScorer(strategy string, provider llm.Provider, emb embedder.Embedder, index semantic.VectorIndex) semantic.Scorer {
	switch strategy {
	case config.StrategyLLM:
		return semantic.NewLLMScorer(provider)
	case config.StrategyKeyword:
		return semantic.NewKeywordScorer()
	default:
		return semantic.NewEmbeddingScorer(emb, semantic.WithVectorIndex(index))
	}
}

// ResolveKnowledgeBase finds a knowledge base by ID or, failing that, by name
func (a *App) ResolveKnowledgeBase(ctx context.Context, ref string) (*storage.KnowledgeBase, error) {
	if _, err := uuid.Parse(ref); err == nil {
		kb, err := a.Storage.GetKnowledgeBase(ctx, ref)
		if err == nil || !errors.Is(err, storage.ErrNotFound) {
			return kb, err
		}
	}
	return a.Storage.GetKnowledgeBaseByName(ctx, ref)
}

// Close releases every component
func (a *App) Close() error {
	a.Ingester.Release()
	return errors.Join(a.Embedder.Close(), a.Storage.Close())
}
