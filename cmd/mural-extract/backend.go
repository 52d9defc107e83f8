package main

import (
	"context"
	"fmt"

	"github.com/raine/mural-table-bot/config"
	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/raine/mural-table-bot/internal/storage"
)

// backend is what the commands need from the model provider.
type backend struct {
	analyzer llm.Analyzer
	lister   llm.ModelLister
	models   []string
	close    func() error
}

type backendFactory func(ctx context.Context, opts backendOptions) (*backend, error)

type backendOptions struct {
	noCache bool
	dbPath  string
}

func newGeminiBackend(ctx context.Context, opts backendOptions) (*backend, error) {
	config.LoadEnvFile()
	cfg, err := config.LoadAnalyzer()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewGeminiClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	lister := llm.NewGenaiModelLister(client)
	models := llm.CandidateModels(llm.ResolveModel(ctx, lister, cfg.ModelSelection()), cfg.ModelPreference)

	b := &backend{
		analyzer: llm.NewGeminiAnalyzer(client, models, cfg.AnalyzeTimeout),
		lister:   lister,
		models:   models,
		close:    func() error { return nil },
	}
	if opts.noCache {
		return b, nil
	}

	dbPath := cfg.DBPath
	if opts.dbPath != "" {
		dbPath = opts.dbPath
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	b.analyzer = llm.NewCachedAnalyzer(b.analyzer, store)
	b.close = store.Close
	return b, nil
}
