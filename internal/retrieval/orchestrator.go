// Package retrieval coordinates one weather lookup end to end: pick the
// publish slot, consult the cache, fetch from KMA on a miss, and fall back to
// the most recent good payload when the upstream is down.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/feelslike-weather-service/internal/cache"
	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
	"github.com/couchcryptid/feelslike-weather-service/internal/observability"
	"github.com/couchcryptid/feelslike-weather-service/internal/schedule"
)

// Latest-payload retention per product. The slot entry expires with its
// publish window; these only bound how old a stale fallback may get.
const (
	latestTTLShortTerm = time.Hour
	latestTTLDefault   = 15 * time.Minute
)

// Subject identifies what a product is fetched for: a grid cell for the
// forecast products, an administrative area number for bulletins.
type Subject struct {
	Cell   *domain.GridCell
	AreaNo string
}

func (s Subject) discriminator() string {
	if s.Cell != nil {
		return s.Cell.String()
	}
	return s.AreaNo
}

// Upstream performs the product-specific KMA request and returns the
// serialized item list.
type Upstream interface {
	FetchProduct(ctx context.Context, product domain.Product, subject Subject, base domain.BaseTime) (json.RawMessage, error)
}

// Orchestrator is the retrieval coordinator. Safe for concurrent use.
type Orchestrator struct {
	upstream Upstream
	store    *cache.Store
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates an Orchestrator.
func New(upstream Upstream, store *cache.Store, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		upstream: upstream,
		store:    store,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Get returns the payload for product and subject, preferring the cache entry
// of the current publish slot. On upstream failure the most recent good
// payload is served with Stale set; with no fallback either, the error wraps
// ErrUpstreamUnavailable.
func (o *Orchestrator) Get(ctx context.Context, product domain.Product, subject Subject) (json.RawMessage, domain.CacheMeta, error) {
	slot, err := schedule.For(product, o.clock.Now())
	if err != nil {
		return nil, domain.CacheMeta{}, err
	}

	key := cache.NewKey(product, subject.discriminator(), slot.Base.String())
	meta := domain.CacheMeta{
		TTLSeconds:        int(slot.TTL / time.Second),
		NextRefreshMillis: slot.TTL.Milliseconds(),
	}

	if data, ok := o.store.Get(ctx, key); ok {
		o.metrics.CacheLookups.WithLabelValues(string(product), "hit").Inc()
		meta.Hit = true
		return data, meta, nil
	}
	o.metrics.CacheLookups.WithLabelValues(string(product), "miss").Inc()

	start := o.clock.Now()
	data, err := o.upstream.FetchProduct(ctx, product, subject, slot.Base)
	o.metrics.UpstreamDuration.WithLabelValues(string(product)).Observe(o.clock.Since(start).Seconds())

	if err != nil {
		o.metrics.UpstreamRequests.WithLabelValues(string(product), "error").Inc()
		if stale, ok := o.store.Get(ctx, key.Latest()); ok {
			o.metrics.CacheLookups.WithLabelValues(string(product), "stale_hit").Inc()
			o.logger.Warn("upstream failed, serving stale payload",
				"product", product, "subject", subject.discriminator(), "error", err)
			meta.Stale = true
			return stale, meta, nil
		}
		return nil, meta, fmt.Errorf("fetch %s for %s: %w",
			product, subject.discriminator(), errors.Join(domain.ErrUpstreamUnavailable, err))
	}
	o.metrics.UpstreamRequests.WithLabelValues(string(product), "success").Inc()

	o.store.Set(ctx, key, data, slot.TTL)
	o.store.Set(ctx, key.Latest(), data, latestTTL(product))

	return data, meta, nil
}

func latestTTL(product domain.Product) time.Duration {
	if product == domain.ShortTermGrid {
		return latestTTLShortTerm
	}
	return latestTTLDefault
}
