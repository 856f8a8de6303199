// Command notify sweeps a list of regions, scores their current hazard
// risk, and publishes alerts for those at or above the threshold. Meant to
// run on a cron schedule next to the server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	kafkaadapter "github.com/couchcryptid/feelslike-weather-service/internal/adapter/kafka"
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

	regionsFlag := flag.String("regions", "", "comma-separated region names (default: ALERT_REGIONS)")
	cooldown := flag.Duration("cooldown", time.Hour, "suppress repeat alerts for the same region and level")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall sweep deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	regions := splitRegions(*regionsFlag)
	if len(regions) == 0 {
		regions = splitRegions(os.Getenv("ALERT_REGIONS"))
	}
	if len(regions) == 0 {
		logger.Error("no regions: pass -regions or set ALERT_REGIONS")
		os.Exit(1)
	}

	tables, err := resolver.Load(cfg.DataDir)
	if err != nil {
		logger.Error("failed to load resolver tables", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close() //nolint:errcheck
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:          cfg.KMATimeout,
		MaxRetries:       cfg.KMARetries,
		FailureThreshold: cfg.BreakerThreshold,
		Cooldown:         cfg.BreakerCooldown,
	}, logger, clock, metrics)
	client := kma.NewClient(cfg.KMAServiceKey, cfg.KMAScheme, fetcher, logger)
	store := cache.New(redisClient, logger, clock)
	orch := retrieval.New(kma.NewSource(client), store, clock, logger, metrics)
	svc := service.New(resolver.New(tables), orch, clock, logger, metrics, retrieval.BatchOptions{
		Concurrency: cfg.BatchConcurrency,
		ItemTimeout: cfg.BatchItemTimeout,
	})

	publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.AlertTopic, *cooldown, clock, logger, metrics)
	defer publisher.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reports := svc.Batch(ctx, regions)

	var alerts []kafkaadapter.Alert
	for _, report := range reports {
		if !report.OK || report.Risk == nil {
			if report.Error != "" {
				logger.Warn("region skipped", "region", report.Region, "error", report.Error)
			}
			continue
		}
		if report.Risk.Score < cfg.AlertThreshold {
			continue
		}
		alerts = append(alerts, kafkaadapter.Alert{
			Region:              report.Region,
			Level:               report.Risk.Level,
			Score:               report.Risk.Score,
			ApparentTemperature: report.Metrics.ApparentTemperature,
		})
	}

	if len(alerts) == 0 {
		logger.Info("no alerts", "regions", len(regions), "threshold", cfg.AlertThreshold)
		return
	}

	sent, suppressed, err := publisher.Publish(ctx, alerts)
	if err != nil {
		logger.Error("publish alerts failed", "error", err)
		os.Exit(1)
	}
	logger.Info("sweep complete", "regions", len(regions), "sent", sent, "suppressed", suppressed)
}

func splitRegions(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
