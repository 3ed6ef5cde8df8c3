package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"qdb-quote-parser/internal/app"
	"qdb-quote-parser/internal/config"
	"qdb-quote-parser/internal/fetcher"
	"qdb-quote-parser/internal/normalize"
	"qdb-quote-parser/internal/observability"
	"qdb-quote-parser/internal/storage"
	"qdb-quote-parser/internal/storage/mssql"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(observability.Options{
		Path:       cfg.Observability.LogPath,
		Level:      cfg.Observability.LogLevel,
		MaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		MaxBackups: cfg.Observability.LogMaxBackups,
		MaxAgeDays: cfg.Observability.LogMaxAgeDays,
	})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Run failed", "error", err.Error())
		_ = logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := app.GracefulShutdown(logger)
	defer cancel()

	// Фетчер: HTTP или headless Chrome
	var f fetcher.PageFetcher
	if cfg.Rod.Enabled {
		rf, err := fetcher.NewRodFetcher(cfg, nil, logger)
		if err != nil {
			return err
		}
		f = rf
	} else {
		f = fetcher.NewFetcher(cfg, logger)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close fetcher", "error", err.Error())
		}
	}()

	var repo storage.Repository
	if cfg.Storage.Driver == "mssql" {
		r, err := mssql.NewRepository(ctx, cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
		if err != nil {
			return err
		}
		if err := r.EnsureSchema(ctx); err != nil {
			_ = r.Close()
			return err
		}
		repo = r
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close repository", "error", err.Error())
			}
		}()
	}

	orch := app.NewOrchestrator(cfg.Source.URL, logger, f, normalize.NewNormalizer(cfg.Normalize), repo)

	runOnce := func(ctx context.Context) error {
		stats, err := orch.Run(ctx)
		if err != nil {
			return err
		}
		printQuotes(stats)
		return nil
	}

	if cfg.Scheduler.Mode == "interval" {
		logger.Info("Starting scheduler", "interval", cfg.GetSchedulerInterval().String())
		app.RunInterval(ctx, cfg.GetSchedulerInterval(), cfg.GetRunTimeout(), logger, runOnce)
		return nil
	}

	runCtx, runCancel := context.WithTimeout(ctx, cfg.GetRunTimeout())
	defer runCancel()
	return runOnce(runCtx)
}

func printQuotes(stats *app.RunStats) {
	fmt.Printf("✓ %s: %d quotes from %s\n\n", stats.Source, len(stats.Quotes), stats.URL)
	for i, q := range stats.Quotes {
		fmt.Printf("[%d]\n%s\n\n", i+1, q)
	}
}
