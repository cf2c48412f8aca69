package store

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ca-srg/aisearch/internal/metrics"
	"github.com/ca-srg/aisearch/internal/types"
)

const backendDisabled = "disabled"

// Analytics is the persisted view served by GET /api/analytics
type Analytics struct {
	RecentSearches []types.SearchSummary
	TotalSearches  int64
	AvgSearchTime  int64
}

// BestEffort wraps an optional Store. Writes run in the background and never
// report failure to the caller; reads fall back to fixed defaults per value.
// A nil *BestEffort behaves as disabled persistence.
type BestEffort struct {
	store   Store
	timeout time.Duration
	logger  *log.Logger
	wg      sync.WaitGroup
}

// NewBestEffort wraps s. s may be nil.
func NewBestEffort(s Store, timeout time.Duration, logger *log.Logger) *BestEffort {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BestEffort{
		store:   s,
		timeout: timeout,
		logger:  logger,
	}
}

// Enabled reports whether a backend is attached
func (b *BestEffort) Enabled() bool {
	return b != nil && b.store != nil
}

// Backend names the attached backend, or "disabled"
func (b *BestEffort) Backend() string {
	if !b.Enabled() {
		return backendDisabled
	}
	return b.store.Backend()
}

// SaveSearch persists record in the background
func (b *BestEffort) SaveSearch(record *types.SearchRecord) {
	if !b.Enabled() || record == nil {
		return
	}
	b.goWrite("save_search", func(ctx context.Context) error {
		return b.store.SaveSearch(ctx, record)
	})
}

// SaveCrawlerSnapshot persists snapshot in the background
func (b *BestEffort) SaveCrawlerSnapshot(snapshot *types.CrawlerSnapshot) {
	if !b.Enabled() || snapshot == nil {
		return
	}
	b.goWrite("save_crawler_snapshot", func(ctx context.Context) error {
		return b.store.SaveCrawlerSnapshot(ctx, snapshot)
	})
}

func (b *BestEffort) goWrite(op string, write func(ctx context.Context) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := write(ctx); err != nil {
			b.logger.Printf("Persistence %s failed (ignored): %v", op, err)
			metrics.RecordPersistenceFailure(ctx, op)
		}
	}()
}

// Analytics reads the dashboard values. Each value falls back on its own:
// recent searches to an empty list, the total to DefaultTotalSearches, and the
// average to DefaultAvgSearchTime when unreadable or zero.
func (b *BestEffort) Analytics(ctx context.Context) Analytics {
	result := Analytics{
		RecentSearches: []types.SearchSummary{},
		TotalSearches:  DefaultTotalSearches,
		AvgSearchTime:  DefaultAvgSearchTime,
	}
	if !b.Enabled() {
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if recent, err := b.store.RecentSearches(ctx, RecentSearchLimit); err != nil {
		b.readFailed(ctx, "recent_searches", err)
	} else if recent != nil {
		result.RecentSearches = recent
	}

	if total, err := b.store.CountSearches(ctx); err != nil {
		b.readFailed(ctx, "count_searches", err)
	} else {
		result.TotalSearches = total
	}

	if avg, err := b.store.AverageSearchTime(ctx); err != nil {
		b.readFailed(ctx, "average_search_time", err)
	} else if rounded := int64(math.Round(avg)); rounded > 0 {
		result.AvgSearchTime = rounded
	}

	return result
}

func (b *BestEffort) readFailed(ctx context.Context, op string, err error) {
	b.logger.Printf("Persistence %s failed, using fallback: %v", op, err)
	metrics.RecordPersistenceFailure(ctx, op)
}

// Flush waits for in-flight background writes
func (b *BestEffort) Flush() {
	if b == nil {
		return
	}
	b.wg.Wait()
}

// Close flushes pending writes and closes the backend
func (b *BestEffort) Close() error {
	if !b.Enabled() {
		return nil
	}
	b.Flush()
	return b.store.Close()
}
