package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	httpadapter "github.com/couchcryptid/feelslike-weather-service/internal/adapter/http"
	"github.com/couchcryptid/feelslike-weather-service/internal/cache"
	"github.com/couchcryptid/feelslike-weather-service/internal/config"
	"github.com/couchcryptid/feelslike-weather-service/internal/fetch"
	"github.com/couchcryptid/feelslike-weather-service/internal/kma"
	"github.com/couchcryptid/feelslike-weather-service/internal/observability"
	"github.com/couchcryptid/feelslike-weather-service/internal/resolver"
	"github.com/couchcryptid/feelslike-weather-service/internal/retrieval"
	"github.com/couchcryptid/feelslike-weather-service/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	tables, err := resolver.Load(cfg.DataDir)
	if err != nil {
		logger.Error("failed to load resolver tables", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	res := resolver.New(tables)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opt)
		logger.Info("redis cache enabled", "addr", opt.Addr)
	} else {
		logger.Info("redis not configured, using in-process cache only")
	}
	store := cache.New(redisClient, logger, clock)

	fetcher := fetch.New(fetch.Config{
		Timeout:          cfg.KMATimeout,
		MaxRetries:       cfg.KMARetries,
		FailureThreshold: cfg.BreakerThreshold,
		Cooldown:         cfg.BreakerCooldown,
	}, logger, clock, metrics)
	client := kma.NewClient(cfg.KMAServiceKey, cfg.KMAScheme, fetcher, logger)

	orch := retrieval.New(kma.NewSource(client), store, clock, logger, metrics)
	svc := service.New(res, orch, clock, logger, metrics, retrieval.BatchOptions{
		Concurrency: cfg.BatchConcurrency,
		ItemTimeout: cfg.BatchItemTimeout,
	})

	ready := httpadapter.ReadinessFunc(func(ctx context.Context) error {
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	})
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
