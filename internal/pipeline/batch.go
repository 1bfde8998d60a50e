package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of fetches run at once when no limit is
// configured.
const DefaultConcurrency = 4

// FetchFunc retrieves the raw document of one source.
type FetchFunc func(ctx context.Context, source string) (string, error)

// Result is the outcome of fetching one source.
type Result struct {
	// Source is the fetched source.
	Source string

	// Body is the raw document. It is empty when Err is set.
	Body string

	// Err is the fetch error, if any.
	Err error

	// Elapsed is how long the fetch took.
	Elapsed time.Duration
}

// BatchFetcher runs a FetchFunc for many sources concurrently.
type BatchFetcher struct {
	fetch       FetchFunc
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchFetcher.
type BatchOption func(*BatchFetcher)

// WithBatchLogger sets a custom logger for batch fetching.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchFetcher) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent fetches.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchFetcher) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchFetcher creates a BatchFetcher around fetch.
func NewBatchFetcher(fetch FetchFunc, opts ...BatchOption) *BatchFetcher {
	b := &BatchFetcher{
		fetch:       fetch,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Concurrency returns the configured fetch limit.
func (b *BatchFetcher) Concurrency() int {
	return b.concurrency
}

// FetchAll fetches every source and returns one Result per source, in the
// same order as sources. A failing fetch never cancels the others. Sources
// not yet started when ctx is cancelled get ctx's error as their Err.
func (b *BatchFetcher) FetchAll(ctx context.Context, sources []string) []Result {
	results := make([]Result, len(sources))
	b.FetchAllWithCallback(ctx, sources, func(r Result, i int) {
		results[i] = r
	})
	return results
}

// FetchAllWithCallback fetches every source and calls callback with each
// result and the index of its source. The callback runs on the goroutine
// that performed the fetch, so it must be safe for concurrent use unless it
// only writes to index-private storage.
func (b *BatchFetcher) FetchAllWithCallback(ctx context.Context, sources []string, callback func(r Result, index int)) {
	b.logger.Debug("starting batch fetch",
		"total_sources", len(sources),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			callback(b.fetchOne(ctx, source, i, len(sources)), i)
			// Errors are carried in the Result so one failure never stops
			// the rest of the batch.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	b.logger.Debug("batch fetch complete",
		"total_sources", len(sources),
		"elapsed", time.Since(startTime),
	)
}

func (b *BatchFetcher) fetchOne(ctx context.Context, source string, index, total int) Result {
	if err := ctx.Err(); err != nil {
		return Result{Source: source, Err: err}
	}

	b.logger.Debug("fetching source",
		"source", source,
		"index", index+1,
		"total", total,
	)

	start := time.Now()
	body, err := b.fetch(ctx, source)
	elapsed := time.Since(start)
	if err != nil {
		b.logger.Warn("fetch failed",
			"source", source,
			"error", err,
		)
		return Result{Source: source, Err: err, Elapsed: elapsed}
	}

	b.logger.Debug("fetch completed",
		"source", source,
		"bytes", len(body),
		"elapsed", elapsed,
	)
	return Result{Source: source, Body: body, Elapsed: elapsed}
}
