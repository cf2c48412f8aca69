package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ca-srg/aisearch/internal/store"
	"github.com/ca-srg/aisearch/internal/types"
)

var _ store.Store = (*StoreMock)(nil)

// StoreMock is an in-memory implementation of store.Store
type StoreMock struct {
	mu sync.RWMutex

	// Mock behavior settings
	ShouldFailSave     bool
	ShouldFailRecent   bool
	ShouldFailCount    bool
	ShouldFailAverage  bool
	ShouldFailSnapshot bool
	WriteLatency       time.Duration

	// Mock state tracking
	Searches          []*types.SearchRecord
	Snapshots         []*types.CrawlerSnapshot
	SaveCallCount     int
	SnapshotCallCount int
	Closed            bool
}

// NewStoreMock creates a new mock instance
func NewStoreMock() *StoreMock {
	return &StoreMock{}
}

func (m *StoreMock) Backend() string {
	return "mock"
}

// SaveSearch mocks persisting a search
func (m *StoreMock) SaveSearch(ctx context.Context, record *types.SearchRecord) error {
	if m.WriteLatency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.WriteLatency):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCallCount++
	if m.ShouldFailSave {
		return fmt.Errorf("mock save failure for query %q", record.Query)
	}

	copied := *record
	m.Searches = append(m.Searches, &copied)
	return nil
}

func (m *StoreMock) RecentSearches(_ context.Context, limit int) ([]types.SearchSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ShouldFailRecent {
		return nil, fmt.Errorf("mock recent searches failure")
	}

	records := make([]*types.SearchRecord, len(m.Searches))
	copy(records, m.Searches)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	summaries := make([]types.SearchSummary, 0, limit)
	for _, r := range records {
		if len(summaries) >= limit {
			break
		}
		summaries = append(summaries, types.SearchSummary{
			Query:        r.Query,
			TotalResults: r.TotalResults,
			SearchTime:   r.SearchTime,
			Timestamp:    r.Timestamp,
		})
	}
	return summaries, nil
}

func (m *StoreMock) CountSearches(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ShouldFailCount {
		return 0, fmt.Errorf("mock count failure")
	}
	return int64(len(m.Searches)), nil
}

func (m *StoreMock) AverageSearchTime(context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ShouldFailAverage {
		return 0, fmt.Errorf("mock average failure")
	}
	if len(m.Searches) == 0 {
		return 0, nil
	}

	var sum int64
	for _, r := range m.Searches {
		sum += r.SearchTime
	}
	return float64(sum) / float64(len(m.Searches)), nil
}

// SaveCrawlerSnapshot mocks persisting a crawler snapshot
func (m *StoreMock) SaveCrawlerSnapshot(_ context.Context, snapshot *types.CrawlerSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SnapshotCallCount++
	if m.ShouldFailSnapshot {
		return fmt.Errorf("mock snapshot failure")
	}

	copied := *snapshot
	m.Snapshots = append(m.Snapshots, &copied)
	return nil
}

func (m *StoreMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// SearchCount returns the number of stored searches
func (m *StoreMock) SearchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Searches)
}

// SnapshotCount returns the number of stored crawler snapshots
func (m *StoreMock) SnapshotCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Snapshots)
}
