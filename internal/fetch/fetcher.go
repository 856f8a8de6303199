// Package fetch wraps plain HTTP GETs with the resilience policy the KMA
// upstream needs: per-attempt timeouts, bounded retries with jittered
// exponential backoff, and a per-host circuit breaker so a flaky upstream
// degrades into fast failures instead of piled-up slow ones.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/couchcryptid/feelslike-weather-service/internal/observability"
)

// retryableStatus lists the HTTP statuses worth retrying; everything else
// non-2xx is surfaced immediately.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config tunes the resilience policy. Zero values take the defaults below.
type Config struct {
	Timeout          time.Duration // per-attempt bound, default 3.5s
	MaxRetries       int           // retries after the first attempt, default 1
	RetryBase        time.Duration // backoff base, doubled per retry, default 300ms
	RetryJitter      time.Duration // uniform random addition per backoff, default 100ms
	FailureThreshold int           // consecutive failures before the circuit opens, default 3
	Cooldown         time.Duration // open-circuit duration, default 60s
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 3500 * time.Millisecond
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 1
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 300 * time.Millisecond
	}
	if c.RetryJitter < 0 {
		c.RetryJitter = 0
	} else if c.RetryJitter == 0 {
		c.RetryJitter = 100 * time.Millisecond
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 60 * time.Second
	}
	return c
}

// Fetcher performs resilient GETs. Safe for concurrent use; the circuit
// breaker state is shared across callers.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	breaker *breaker
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Fetcher with the given policy.
func New(cfg Config, logger *slog.Logger, clock clockwork.Clock, metrics *observability.Metrics) *Fetcher {
	cfg = cfg.withDefaults()
	return &Fetcher{
		cfg:     cfg,
		client:  &http.Client{},
		breaker: newBreaker(cfg.FailureThreshold, cfg.Cooldown, clock),
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Get fetches rawURL, retrying retryable outcomes within the configured
// budget. It returns the response body on any 2xx status. Failure modes:
// domain.CircuitOpenError without a network attempt while the host's circuit
// is open; domain.ErrUpstreamTimeout for transport-level failures;
// domain.UpstreamHTTPError for a non-2xx status.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := u.Host

	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := f.backoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		if !f.breaker.allow(host) {
			return nil, &domain.CircuitOpenError{Host: host}
		}

		body, retryable, err := f.attempt(ctx, rawURL)
		if err == nil {
			f.breaker.recordSuccess(host)
			f.metrics.BreakerOpen.WithLabelValues(host).Set(0)
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable {
			return nil, err
		}

		if f.breaker.recordFailure(host) {
			f.metrics.BreakerOpen.WithLabelValues(host).Set(1)
		}
		lastErr = err
		f.logger.Warn("upstream attempt failed",
			"host", host,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, lastErr
}

// attempt runs one bounded GET. The second return value reports whether the
// failure is retryable.
func (f *Fetcher) attempt(ctx context.Context, rawURL string) ([]byte, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // draining for connection reuse
		httpErr := &domain.UpstreamHTTPError{Status: resp.StatusCode, Host: req.URL.Host}
		return nil, retryableStatus[resp.StatusCode], httpErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamTimeout, err)
	}
	return body, false, nil
}

// backoff sleeps for the n-th retry delay: base·2ⁿ plus uniform jitter.
func (f *Fetcher) backoff(ctx context.Context, n int) error {
	delay := f.cfg.RetryBase << n
	if f.cfg.RetryJitter > 0 {
		delay += rand.N(f.cfg.RetryJitter)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.clock.After(delay):
		return nil
	}
}
