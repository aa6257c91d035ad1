package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qmercier/livedash/internal/evolution"
	"github.com/qmercier/livedash/internal/feed"
	"github.com/qmercier/livedash/internal/ingest"
	"github.com/qmercier/livedash/internal/notify"
	pkgconfig "github.com/qmercier/livedash/internal/pkg/config"
	"github.com/qmercier/livedash/internal/pkg/logging"
	"github.com/qmercier/livedash/internal/pkg/metrics"
	"github.com/qmercier/livedash/internal/pkg/storage"
	"github.com/qmercier/livedash/internal/web"
)

const defaultConfigPath = "configs/local.yaml"

type flags struct {
	configPath string
	runFor     time.Duration
}

func main() {
	if err := run(); err != nil {
		slog.Error("Livedash service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	logging.Setup("livedash")
	slog.Info("Starting livedash service...", "config", cfg.configPath)

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := storage.Connect(appConfig.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store := storage.NewPostgresCatalogue(db)
	defer store.Close()

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	ingestMetrics := metrics.NewIngestMetrics()
	tracker := evolution.NewTracker(store)
	client := feed.NewClient(&appConfig.Feed)

	hub := web.NewHub()
	go hub.Run(ctx)

	scheduler := ingest.NewScheduler(client, store, ingestMetrics, appConfig.Ingest.Interval, appConfig.Ingest.BatchInterval)
	scheduler.SetBroadcaster(hub)

	notifier := notify.NewNotifier(
		appConfig.Telegram.BotToken,
		appConfig.Telegram.ChatID,
		appConfig.Telegram.MoveThresholdPercent,
		store,
		tracker,
	)
	if notifier != nil {
		defer notifier.Stop()
		scheduler.SetBatchHook(notifier.Scan)
	}

	go scheduler.Run(ctx)

	server := web.NewServer(&appConfig.Server, store, tracker, hub, ingestMetrics.Handler())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	server.Stop(context.Background())
	return nil
}

func parseFlags() flags {
	var cfg flags
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}
	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file")
	flag.DurationVar(&cfg.runFor, "run-for", 0, "Auto-stop after duration. 0 = run until SIGINT/SIGTERM")
	flag.Parse()
	return cfg
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		slog.Info("Service will auto-stop", "run_for", runFor)
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
}
