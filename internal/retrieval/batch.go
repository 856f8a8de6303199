package retrieval

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/feelslike-weather-service/internal/domain"
)

const (
	defaultBatchConcurrency = 4
	defaultItemTimeout      = 8 * time.Second
)

// BatchItem is one lookup within a batch request.
type BatchItem struct {
	Product domain.Product
	Subject Subject
}

// BatchResult mirrors one BatchItem at the same index.
type BatchResult struct {
	Data json.RawMessage
	Meta domain.CacheMeta
	Err  error
}

// BatchOptions bound a batch run. Zero values pick the defaults.
type BatchOptions struct {
	Concurrency int
	ItemTimeout time.Duration
}

// GetBatch resolves all items with a bounded worker pool. Results are in
// input order; one item failing never affects its neighbors.
func (o *Orchestrator) GetBatch(ctx context.Context, items []BatchItem, opts BatchOptions) []BatchResult {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultBatchConcurrency
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = defaultItemTimeout
	}
	if opts.Concurrency > len(items) {
		opts.Concurrency = len(items)
	}

	runID := uuid.NewString()
	start := o.clock.Now()
	o.logger.Info("batch started", "run_id", runID, "items", len(items), "concurrency", opts.Concurrency)
	o.metrics.BatchSize.Observe(float64(len(items)))

	results := make([]BatchResult, len(items))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for range opts.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = o.getOne(ctx, items[i], opts.ItemTimeout)
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	o.logger.Info("batch finished", "run_id", runID,
		"items", len(items), "duration", o.clock.Since(start))
	return results
}

func (o *Orchestrator) getOne(ctx context.Context, item BatchItem, timeout time.Duration) BatchResult {
	itemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := o.clock.Now()
	data, meta, err := o.Get(itemCtx, item.Product, item.Subject)
	o.metrics.BatchItemDuration.Observe(o.clock.Since(start).Seconds())

	return BatchResult{Data: data, Meta: meta, Err: err}
}
