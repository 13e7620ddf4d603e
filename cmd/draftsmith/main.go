package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajfletch/draftsmith/config"
	"github.com/ajfletch/draftsmith/internal/agent"
	"github.com/ajfletch/draftsmith/internal/ingest"
	"github.com/ajfletch/draftsmith/internal/library"
	"github.com/ajfletch/draftsmith/internal/telemetry"
	"github.com/ajfletch/draftsmith/internal/tools/webfetch"
	"github.com/ajfletch/draftsmith/internal/tools/websearch"
)

func main() {
	root := &cobra.Command{
		Use:   "draftsmith",
		Short: "Research-to-draft pipeline orchestrator",
	}
	root.AddCommand(serveCmd(), runCmd(), refineCmd(), libraryCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg       *config.Config
	provider  agent.Provider
	ingestor  *ingest.Ingestor
	lib       *library.Store
	telemetry *telemetry.Telemetry
}

func buildApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not configured")
	}

	provider := agent.NewOpenAIProvider(
		cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL,
		cfg.LLM.Temperature, cfg.LLM.MaxTokens, cfg.LLM.Timeout,
	)

	kv, err := buildKV(cfg)
	if err != nil {
		return nil, err
	}
	lib := library.NewStore(kv, nil)

	fetcher := webfetch.New(cfg.Tools.Fetch.Timeout, cfg.Tools.Fetch.MaxChars)
	var searcher websearch.Searcher
	switch websearch.Provider(cfg.Tools.Search.Provider) {
	case websearch.ProviderBrave:
		if cfg.Tools.Search.BraveAPIKey != "" {
			searcher, _ = websearch.New(websearch.ProviderBrave, cfg.Tools.Search.BraveAPIKey)
		}
	case websearch.ProviderSerper:
		if cfg.Tools.Search.SerperAPIKey != "" {
			searcher, _ = websearch.New(websearch.ProviderSerper, cfg.Tools.Search.SerperAPIKey)
		}
	}

	ws := ingest.NewWorkspace()
	ingestor := ingest.New(provider, fetcher, searcher, lib, ws, nil)

	return &app{
		cfg:       cfg,
		provider:  provider,
		ingestor:  ingestor,
		lib:       lib,
		telemetry: telemetry.New(),
	}, nil
}

func buildKV(cfg *config.Config) (library.KV, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return library.NewMemoryKV(), nil
	case "file", "":
		return library.NewFileKV(cfg.Storage.File.DataDir)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLite.Path), 0o755); err != nil {
			return nil, err
		}
		return library.NewSQLiteKV(cfg.Storage.SQLite.Path)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r := cfg.Storage.Redis
		return library.NewRedisKV(ctx, r.Host, r.Port, r.Password, r.DB, r.Timeout)
	case "postgres":
		if cfg.Storage.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres backend selected but storage.postgres.url is empty")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return library.NewPostgresKV(ctx, cfg.Storage.Postgres.URL)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func newLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix, log.LstdFlags)
}
