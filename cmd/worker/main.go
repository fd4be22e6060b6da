package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/notify-outbox/internal/config"
	"github.com/kursadbilgin/notify-outbox/internal/handler"
	"github.com/kursadbilgin/notify-outbox/internal/infra/postgresql"
	infraredis "github.com/kursadbilgin/notify-outbox/internal/infra/redis"
	"github.com/kursadbilgin/notify-outbox/internal/oauth"
	"github.com/kursadbilgin/notify-outbox/internal/observability"
	"github.com/kursadbilgin/notify-outbox/internal/provider"
	"github.com/kursadbilgin/notify-outbox/internal/ratelimit"
	"github.com/kursadbilgin/notify-outbox/internal/repository"
	"github.com/kursadbilgin/notify-outbox/internal/service"
	"github.com/kursadbilgin/notify-outbox/internal/settings"
	"github.com/kursadbilgin/notify-outbox/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("notify-outbox worker exited with error", zap.Error(err))
	}
	logger.Info("notify-outbox worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := observability.NewMetrics()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	deps := handler.Dependencies{
		Postgres: func(ctx context.Context) error { return postgresql.Ping(ctx, db) },
	}

	var rdb *goredis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err = infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Redis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	limiter, err := newLimiter(rdb, cfg.ProviderRateLimitPerSec)
	if err != nil {
		return err
	}

	client := provider.NewHTTPClient()
	tokens := oauth.NewTokenCache(client)
	tokens.SetMetrics(metrics)

	registry := provider.NewDefaultRegistry(provider.Options{
		Logger: logger,
		Client: client,
		Tokens: tokens,
	})

	resolver := settings.NewService(repository.NewGormSettingsRepo(db), cfg.DefaultsTTL(), logger)
	jobs := repository.NewGormJobRepo(db, cfg.StaleAfter())

	worker := service.NewDeliveryWorker(jobs, resolver, registry, limiter, service.WorkerConfig{
		PollInterval: cfg.PollInterval(),
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
	}, logger)
	worker.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	handler.RegisterHealthRoutes(app, deps)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(groupCtx)
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("health server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}

// newLimiter prefers the shared Redis window so every worker process draws
// from the same budget. A limit of 0 disables throttling.
func newLimiter(rdb *goredis.Client, perSecond int) (ratelimit.Limiter, error) {
	switch {
	case perSecond <= 0:
		return ratelimit.Noop{}, nil
	case rdb != nil:
		return infraredis.NewThrottle(rdb, perSecond)
	default:
		return ratelimit.NewLocal(perSecond), nil
	}
}
