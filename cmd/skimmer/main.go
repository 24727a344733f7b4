package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/collect/sources"
	"github.com/tdngyn/skimmer/internal/core/config"
	"github.com/tdngyn/skimmer/internal/health"
	redisclient "github.com/tdngyn/skimmer/internal/infra/redis"
	"github.com/tdngyn/skimmer/internal/infra/storage/postgres"
	"github.com/tdngyn/skimmer/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single collection sweep and exit")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Credentials referenced from config come in through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)
	slog.Info("Logger initialized", "level", slogLevel.String())

	runnerSources := make([]pipeline.Source, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		c, ok := sources.New(src, logger)
		if !ok {
			continue
		}
		runnerSources = append(runnerSources, pipeline.Source{
			Collector: c,
			Retry:     src.RetryConfig(),
			Strategy:  collect.NewStrategy(c.SourceName(), src.AdaptiveParams()),
			MaxItems:  src.MaxItems,
		})
	}
	if len(runnerSources) == 0 {
		slog.Error("No valid sources configured")
		os.Exit(1)
	}

	var seen pipeline.SeenStore
	var seenStore *redisclient.SeenStore
	if cfg.Redis.Enabled() {
		seenStore, err = redisclient.NewSeenStore(cfg.Redis, cfg.Pipeline.SeenTTL)
		if err != nil {
			slog.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer seenStore.Close()
		seen = seenStore
	}

	var archive pipeline.Archive
	var archiveReader health.ArchiveReader
	if cfg.Database.Enabled() {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			slog.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		repo := postgres.NewItemRepo(db)
		archive = repo
		archiveReader = repo
	}

	runner := pipeline.NewRunner(runnerSources, seen, archive, logger)
	defer runner.Close()

	monitor := health.NewMonitor(runnerSources)
	healthServer := health.NewServer(monitor, archiveReader, cfg.Server.Port)
	go func() {
		if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, shutting down...", "signal", sig)
		cancel()
	}()

	if err := run(ctx, runner, cfg.Pipeline.Interval, *once); err != nil &&
		!errors.Is(err, context.Canceled) {
		slog.Error("Collection run failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := healthServer.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	slog.Info("Skimmer stopped gracefully")
}

// run executes collection sweeps until cancelled: once when requested or
// no interval is configured, otherwise on a fixed ticker.
func run(ctx context.Context, runner *pipeline.Runner, interval time.Duration, once bool) error {
	if _, err := runner.Collect(ctx); err != nil {
		return err
	}
	if once || interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := runner.Collect(ctx); err != nil {
				return err
			}
		}
	}
}
