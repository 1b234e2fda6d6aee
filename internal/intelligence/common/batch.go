package common

import (
	"context"
	stdliberrors "errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/turtacn/ContractLens/pkg/errors"
)

var ErrShutdown = stdliberrors.New("batch processor is shutting down")

// ItemStatus is the outcome of a single batch item.
type ItemStatus int

const (
	ItemStatusSuccess ItemStatus = iota
	ItemStatusFailed
	ItemStatusTimeout
	ItemStatusCancelled
)

func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "SUCCESS"
	case ItemStatusFailed:
		return "FAILED"
	case ItemStatusTimeout:
		return "TIMEOUT"
	case ItemStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ProcessFunc processes a single item.
type ProcessFunc[T, R any] func(ctx context.Context, item T) (R, error)

// ItemResult holds the outcome of one item. Results keep input order.
type ItemResult[R any] struct {
	Index      int        `json:"index"`
	Result     R          `json:"result"`
	Error      error      `json:"-"`
	DurationMs float64    `json:"duration_ms"`
	Status     ItemStatus `json:"status"`
}

// BatchResult aggregates a whole run.
type BatchResult[R any] struct {
	Results           []*ItemResult[R] `json:"results"`
	TotalCount        int              `json:"total_count"`
	SuccessCount      int              `json:"success_count"`
	FailureCount      int              `json:"failure_count"`
	TimeoutCount      int              `json:"timeout_count"`
	CancelledCount    int              `json:"cancelled_count"`
	TotalDurationMs   float64          `json:"total_duration_ms"`
	AvgItemDurationMs float64          `json:"avg_item_duration_ms"`
}

// BatchProcessor runs a function over a slice of items with bounded
// concurrency. A failing item never aborts its siblings.
type BatchProcessor[T, R any] interface {
	Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error)
	Shutdown(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type batchConfig struct {
	name           string
	maxConcurrency int
	itemTimeout    time.Duration
	batchTimeout   time.Duration
	metrics        IntelligenceMetrics
	logger         Logger
}

func defaultBatchConfig() *batchConfig {
	return &batchConfig{
		name:           "batch",
		maxConcurrency: runtime.NumCPU(),
		itemTimeout:    30 * time.Second,
		batchTimeout:   5 * time.Minute,
	}
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*batchConfig)

// WithBatchName sets the label used in metrics and logs.
func WithBatchName(name string) BatchOption {
	return func(c *batchConfig) {
		if name != "" {
			c.name = name
		}
	}
}

func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

func WithItemTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.itemTimeout = d
		}
	}
}

func WithBatchTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.batchTimeout = d
		}
	}
}

func WithBatchMetrics(m IntelligenceMetrics) BatchOption {
	return func(c *batchConfig) { c.metrics = m }
}

func WithBatchLogger(l Logger) BatchOption {
	return func(c *batchConfig) { c.logger = l }
}

// ---------------------------------------------------------------------------
// batchProcessor
// ---------------------------------------------------------------------------

type batchProcessor[T, R any] struct {
	cfg *batchConfig

	shutdownOnce sync.Once
	isShutdown   atomic.Bool
	active       sync.WaitGroup
}

// NewBatchProcessor creates a BatchProcessor with the supplied options.
func NewBatchProcessor[T, R any](opts ...BatchOption) BatchProcessor[T, R] {
	cfg := defaultBatchConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = NewNoopIntelligenceMetrics()
	}
	if cfg.logger == nil {
		cfg.logger = NewNoopLogger()
	}
	return &batchProcessor[T, R]{cfg: cfg}
}

func (bp *batchProcessor[T, R]) Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error) {
	if fn == nil {
		return nil, errors.InvalidParam("process function must not be nil")
	}
	if bp.isShutdown.Load() {
		return nil, ErrShutdown
	}
	n := len(items)
	if n == 0 {
		return &BatchResult[R]{Results: []*ItemResult[R]{}}, nil
	}

	bp.active.Add(1)
	defer bp.active.Done()

	start := time.Now()
	batchCtx, cancel := context.WithTimeout(ctx, bp.cfg.batchTimeout)
	defer cancel()

	sem := semaphore.NewWeighted(int64(bp.cfg.maxConcurrency))
	results := make([]*ItemResult[R], n)

	var wg sync.WaitGroup
	for i := range items {
		if err := sem.Acquire(batchCtx, 1); err != nil {
			for j := i; j < n; j++ {
				results[j] = &ItemResult[R]{Index: j, Error: err, Status: classifyError(batchCtx, err)}
			}
			break
		}
		wg.Add(1)
		go func(idx int, item T) {
			defer wg.Done()
			defer sem.Release(1)
			results[idx] = bp.processOne(batchCtx, idx, item, fn)
		}(i, items[i])
	}
	wg.Wait()

	br := buildBatchResult(results, time.Since(start))
	bp.cfg.metrics.RecordBatchProcessing(ctx, &BatchMetricParams{
		BatchName:         bp.cfg.name,
		TotalItems:        br.TotalCount,
		SuccessItems:      br.SuccessCount,
		FailedItems:       br.FailureCount - br.TimeoutCount - br.CancelledCount,
		TimeoutItems:      br.TimeoutCount,
		CancelledItems:    br.CancelledCount,
		TotalDurationMs:   br.TotalDurationMs,
		AvgItemDurationMs: br.AvgItemDurationMs,
		MaxConcurrency:    bp.cfg.maxConcurrency,
	})
	if br.FailureCount > 0 {
		bp.cfg.logger.Warn("batch finished with failures",
			"batch", bp.cfg.name, "total", br.TotalCount, "failed", br.FailureCount, "timeout", br.TimeoutCount)
	}
	return br, nil
}

// Shutdown stops accepting batches and waits for in-flight ones.
func (bp *batchProcessor[T, R]) Shutdown(ctx context.Context) error {
	bp.shutdownOnce.Do(func() { bp.isShutdown.Store(true) })

	done := make(chan struct{})
	go func() {
		bp.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processOne makes a single attempt under the item timeout. Retrying is the
// caller's decision.
func (bp *batchProcessor[T, R]) processOne(batchCtx context.Context, idx int, item T, fn ProcessFunc[T, R]) *ItemResult[R] {
	start := time.Now()
	itemCtx, cancel := context.WithTimeout(batchCtx, bp.cfg.itemTimeout)
	defer cancel()

	result, err := fn(itemCtx, item)
	if err != nil {
		return &ItemResult[R]{Index: idx, Error: err, Status: classifyError(itemCtx, err), DurationMs: msSince(start)}
	}
	return &ItemResult[R]{Index: idx, Result: result, Status: ItemStatusSuccess, DurationMs: msSince(start)}
}

func buildBatchResult[R any](results []*ItemResult[R], total time.Duration) *BatchResult[R] {
	br := &BatchResult[R]{
		Results:         results,
		TotalCount:      len(results),
		TotalDurationMs: float64(total.Microseconds()) / 1000.0,
	}
	var sum float64
	for _, r := range results {
		switch r.Status {
		case ItemStatusSuccess:
			br.SuccessCount++
		case ItemStatusTimeout:
			br.TimeoutCount++
			br.FailureCount++
		case ItemStatusCancelled:
			br.CancelledCount++
			br.FailureCount++
		default:
			br.FailureCount++
		}
		sum += r.DurationMs
	}
	if br.TotalCount > 0 {
		br.AvgItemDurationMs = sum / float64(br.TotalCount)
	}
	return br
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}

func classifyError(batchCtx context.Context, err error) ItemStatus {
	switch {
	case err == nil:
		return ItemStatusSuccess
	case stdliberrors.Is(err, context.DeadlineExceeded):
		return ItemStatusTimeout
	case stdliberrors.Is(err, context.Canceled):
		return ItemStatusCancelled
	}
	switch batchCtx.Err() {
	case context.DeadlineExceeded:
		return ItemStatusTimeout
	case context.Canceled:
		return ItemStatusCancelled
	}
	return ItemStatusFailed
}

//Personal.AI order the ending
