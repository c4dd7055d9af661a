package main

import (
	"context"
	"fmt"

	"github.com/jonathan/comparable-finder/internal/config"
	"github.com/jonathan/comparable-finder/internal/finder"
	"github.com/jonathan/comparable-finder/internal/llm"
	"github.com/jonathan/comparable-finder/internal/sitefetch"
	"github.com/jonathan/comparable-finder/internal/store"
)

// loadConfig assembles configuration from the optional JSON file, the
// environment, and defaults.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.FillFromEnv()
	cfg.ApplyDefaults()
	cfg.Verbose = cfg.Verbose || verbose
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildStore selects the PostgreSQL store when a database URL is configured,
// otherwise the JSON file store.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		pg, err := store.ConnectPG(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		return pg, nil
	}
	return store.NewFileStore(cfg.HistoryFile), nil
}

// buildFinder wires up the LLM client and the pipeline. The returned client
// must be closed by the caller.
func buildFinder(ctx context.Context, cfg *config.Config) (*finder.Finder, llm.Client, error) {
	client, err := llm.NewGeminiClient(ctx, cfg.APIKey, nil)
	if err != nil {
		return nil, nil, err
	}

	var site *sitefetch.Fetcher
	if cfg.FetchSite {
		opts := sitefetch.DefaultOptions()
		opts.UseBrowser = cfg.UseBrowser
		site = sitefetch.New(opts)
	}

	f, err := finder.New(finder.Config{
		Client:         client,
		Retry:          llm.DefaultRetryPolicy(),
		Logger:         logger,
		SiteFetcher:    site,
		MinResults:     cfg.MinResults,
		MaxResults:     cfg.MaxResults,
		ScoreThreshold: cfg.ScoreThreshold,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return f, client, nil
}
