package observe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lakewatch/lakewatch/pkg/platform"
	"github.com/lakewatch/lakewatch/pkg/statement"
	"github.com/lakewatch/lakewatch/pkg/telemetry/logging"
	"github.com/lakewatch/lakewatch/pkg/telemetry/metrics"
)

// TableNames carries the system table names the fast paths query.
// Empty names disable the corresponding fast path.
type TableNames struct {
	JobRuns      string
	QueryHistory string
	Audit        string
}

// Deps bundles the collaborators shared by the domain services.
type Deps struct {
	// Platform is the live control-plane client used by slow paths.
	Platform platform.Client

	// Executor runs fast-path statements. Nil disables fast paths.
	Executor statement.Executor

	// WarehouseID is the warehouse fast-path statements run on.
	// Empty disables fast paths.
	WarehouseID string

	// Tables names the system tables fast paths read.
	Tables TableNames

	// Logger receives engine logs. Nil falls back to a default.
	Logger *logging.Logger

	// Metrics receives engine metrics. Nil disables recording.
	Metrics *metrics.Collector

	// Clock supplies "now". Nil means time.Now. Tests inject a fixed
	// clock so window math is deterministic.
	Clock func() time.Time

	// MaxConcurrentFetches bounds the detail fan-out during live
	// enumeration. Zero or negative means 8.
	MaxConcurrentFetches int
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

func (d Deps) log() *logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.Default()
}

func (d Deps) fanout() int {
	if d.MaxConcurrentFetches > 0 {
		return d.MaxConcurrentFetches
	}
	return 8
}

// fastPathReady reports whether fast-path statements can run at all.
func (d Deps) fastPathReady() bool {
	return d.Executor != nil && d.WarehouseID != ""
}

// runWithFallback coordinates the two query paths for one operation.
//
// The fast path runs first when available. If it fails, the failure is
// logged at warn, counted, and the slow path runs once; there is never
// a second hop. An operation fails only when every path it attempted
// failed, and then with an APIError wrapping the last failure.
func runWithFallback[T any](ctx context.Context, d Deps, domain, op string, fast, slow func(context.Context) ([]T, error)) ([]T, error) {
	start := d.now()

	if fast != nil {
		records, err := fast(ctx)
		if err == nil {
			d.Metrics.RecordQuery(domain, "fast", "ok", d.now().Sub(start))
			return records, nil
		}
		if ctx.Err() != nil {
			d.Metrics.RecordQuery(domain, "fast", "error", d.now().Sub(start))
			return nil, &APIError{Op: op, Err: err}
		}
		if slow == nil {
			d.Metrics.RecordQuery(domain, "fast", "error", d.now().Sub(start))
			return nil, &APIError{Op: op, Err: err}
		}

		d.log().Warn("fast path failed, falling back to live enumeration",
			"domain", domain,
			"operation", op,
			"error", err,
		)
		d.Metrics.RecordFallback(domain, op)

		records, slowErr := slow(ctx)
		if slowErr != nil {
			d.Metrics.RecordQuery(domain, "slow", "error", d.now().Sub(start))
			return nil, &APIError{Op: op, Err: fmt.Errorf("fast path: %v; slow path: %w", err, slowErr)}
		}
		d.Metrics.RecordQuery(domain, "slow", "ok", d.now().Sub(start))
		return records, nil
	}

	records, err := slow(ctx)
	if err != nil {
		d.Metrics.RecordQuery(domain, "slow", "error", d.now().Sub(start))
		return nil, &APIError{Op: op, Err: err}
	}
	d.Metrics.RecordQuery(domain, "slow", "ok", d.now().Sub(start))
	return records, nil
}

// forEachConcurrent runs fn for every item with at most workers in
// flight. A failed item is reported through onErr and skipped; the
// walk itself only fails when the context is done.
func forEachConcurrent[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error, onErr func(T, error)) error {
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, item := range items {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(ctx, item); err != nil {
				if onErr != nil {
					onErr(item, err)
				}
			}
		}(item)
	}

	wg.Wait()
	return ctx.Err()
}
