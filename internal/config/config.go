// Package config loads all service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Resolver lookup tables.
	DataDir string

	// KMA upstream.
	KMAServiceKey string
	KMAScheme     string
	KMATimeout    time.Duration
	KMARetries    int

	// Circuit breaker guarding the upstream host.
	BreakerThreshold int
	BreakerCooldown  time.Duration

	// Cache backend; empty means in-process only.
	RedisURL string

	// Batch endpoint bounds.
	BatchConcurrency int
	BatchItemTimeout time.Duration

	// Hazard alert publishing.
	KafkaBrokers   []string
	AlertTopic     string
	AlertsEnabled  bool
	AlertThreshold int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	kmaTimeout, err := parseDuration("KMA_TIMEOUT", 3500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	breakerCooldown, err := parseDuration("BREAKER_COOLDOWN", time.Minute)
	if err != nil {
		return nil, err
	}
	batchItemTimeout, err := parseDuration("BATCH_ITEM_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}

	kmaRetries, err := parseInt("KMA_RETRIES", 1)
	if err != nil {
		return nil, err
	}
	breakerThreshold, err := parseInt("BREAKER_THRESHOLD", 3)
	if err != nil {
		return nil, err
	}
	batchConcurrency, err := parseInt("BATCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	alertThreshold, err := parseInt("ALERT_THRESHOLD", 60)
	if err != nil {
		return nil, err
	}

	alertsEnabled := false
	if v := os.Getenv("ALERTS_ENABLED"); v != "" {
		alertsEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir: envOrDefault("DATA_DIR", "data"),

		KMAServiceKey: os.Getenv("KMA_SERVICE_KEY"),
		KMAScheme:     envOrDefault("KMA_SCHEME", "http"),
		KMATimeout:    kmaTimeout,
		KMARetries:    kmaRetries,

		BreakerThreshold: breakerThreshold,
		BreakerCooldown:  breakerCooldown,

		RedisURL: os.Getenv("REDIS_URL"),

		BatchConcurrency: batchConcurrency,
		BatchItemTimeout: batchItemTimeout,

		KafkaBrokers:   splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		AlertTopic:     envOrDefault("ALERT_TOPIC", "feelslike-hazard-alerts"),
		AlertsEnabled:  alertsEnabled,
		AlertThreshold: alertThreshold,
	}

	if cfg.KMAServiceKey == "" {
		return nil, errors.New("KMA_SERVICE_KEY is required")
	}
	if cfg.KMAScheme != "http" && cfg.KMAScheme != "https" {
		return nil, fmt.Errorf("invalid KMA_SCHEME %q", cfg.KMAScheme)
	}
	if cfg.AlertsEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("ALERTS_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
