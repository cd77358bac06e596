package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/postpulse/postpulse/internal/app"
	"github.com/postpulse/postpulse/internal/classifier"
	"github.com/postpulse/postpulse/internal/config"
	"github.com/postpulse/postpulse/internal/database"
	"github.com/postpulse/postpulse/internal/domain"
	"github.com/postpulse/postpulse/internal/logging"
	"github.com/postpulse/postpulse/internal/redis"
	"github.com/postpulse/postpulse/internal/server"
	"github.com/postpulse/postpulse/internal/source"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting postpulse server", "env", cfg.AppEnv, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		return err
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	sourceClient, err := source.NewClient(cfg.SourceBaseURL, cfg.SourceCookiesFile, cfg.SourceRateLimit, cfg.SourceTimeout)
	if err != nil {
		return err
	}

	var clf domain.Classifier
	switch cfg.ClassifierProvider {
	case "remote":
		clf = classifier.NewRemote(cfg.ClassifierEndpoint, cfg.ClassifierTimeout)
	default:
		clf = classifier.NewVader()
	}
	slog.Info("Classifier configured", "provider", cfg.ClassifierProvider)

	service := app.NewService(
		database.NewRunRepo(pool),
		database.NewItemRepo(pool),
		redis.NewTimelineCache(rdb, cfg.TimelineCacheTTL),
		clf,
		sourceClient,
		clockwork.NewRealClock(),
		cfg.RepliesPerPost,
		cfg.TopN,
	)

	srv := server.New(cfg, service, pool, rdb)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("Server stopped cleanly")
	return nil
}
