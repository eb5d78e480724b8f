package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autodoc/cv-analyzer/internal/catalog"
	"github.com/autodoc/cv-analyzer/internal/classify"
	"github.com/autodoc/cv-analyzer/internal/config"
	"github.com/autodoc/cv-analyzer/internal/llm"
	"github.com/autodoc/cv-analyzer/internal/logger"
	"github.com/autodoc/cv-analyzer/internal/search"
	"github.com/autodoc/cv-analyzer/internal/server"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes document analysis, catalog browsing and smart search endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a JSON config file")
	rootCmd.AddCommand(serveCmd)
}

// loadConfig merges flag, environment and file configuration, flags winning.
func loadConfig() (config.Config, error) {
	cfg := config.FromEnv()

	if serveConfigPath != "" {
		fileCfg, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
	}

	cfg = cfg.MergeWithDefaults(config.Config{
		Port:             8080,
		CatalogNamespace: catalog.DefaultNamespace,
		CatalogTable:     catalog.DefaultTable,
	})
	if servePort != 0 {
		cfg.Port = servePort
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if cfg.DatabaseURL == "" {
		return config.Config{}, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.APIKey == "" {
		return config.Config{}, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	return cfg, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogJSON, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck // Best-effort flush on exit

	ctx := context.Background()

	llmCfg := llm.DefaultConfig()
	if cfg.Model != "" {
		llmCfg = llmCfg.WithModel(llm.TierLite, cfg.Model)
	}

	client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	store, err := catalog.Connect(ctx, catalog.Config{
		DatabaseURL: cfg.DatabaseURL,
		Namespace:   cfg.CatalogNamespace,
		Table:       cfg.CatalogTable,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to connect to catalog: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure catalog schema: %w", err)
	}

	srv := server.New(server.Config{Port: cfg.Port},
		classify.New(client, log),
		search.New(client, log),
		store, log)

	return srv.Start()
}
