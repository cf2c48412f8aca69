package metrics

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "aisearch/metrics"

// ObserverCounter reports how many real-time observers are connected
type ObserverCounter func() int

var (
	otelMetricsOnce       sync.Once
	otelRegistrationError error

	mu                  sync.RWMutex
	searchRequests      metric.Int64Counter
	searchDuration      metric.Float64Histogram
	searchResults       metric.Int64Histogram
	persistenceFailures metric.Int64Counter
	realtimeBroadcasts  metric.Int64Counter
	observerCounter     ObserverCounter
)

// InitOTelMetrics registers the search, persistence and real-time instruments.
// This should be called after observability.Init() has been called.
func InitOTelMetrics() error {
	otelMetricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		var errs []error

		requests, err := meter.Int64Counter(
			"aisearch.search.requests",
			metric.WithDescription("Number of aggregated searches served"),
			metric.WithUnit("{searches}"),
		)
		errs = append(errs, err)

		duration, err := meter.Float64Histogram(
			"aisearch.search.duration",
			metric.WithDescription("Wall-clock time spent aggregating a search"),
			metric.WithUnit("ms"),
		)
		errs = append(errs, err)

		results, err := meter.Int64Histogram(
			"aisearch.search.results",
			metric.WithDescription("Number of results returned per search"),
			metric.WithUnit("{results}"),
		)
		errs = append(errs, err)

		failures, err := meter.Int64Counter(
			"aisearch.persistence.failures",
			metric.WithDescription("Persistence operations that failed and were absorbed"),
			metric.WithUnit("{operations}"),
		)
		errs = append(errs, err)

		broadcasts, err := meter.Int64Counter(
			"aisearch.realtime.broadcasts",
			metric.WithDescription("Events published to real-time observers"),
			metric.WithUnit("{events}"),
		)
		errs = append(errs, err)

		_, err = meter.Int64ObservableGauge(
			"aisearch.realtime.observers",
			metric.WithDescription("Currently connected real-time observers"),
			metric.WithUnit("{observers}"),
			metric.WithInt64Callback(observerCallback),
		)
		errs = append(errs, err)

		if err := errors.Join(errs...); err != nil {
			log.Printf("metrics: failed to create instruments: %v", err)
			otelRegistrationError = err
			return
		}

		mu.Lock()
		searchRequests = requests
		searchDuration = duration
		searchResults = results
		persistenceFailures = failures
		realtimeBroadcasts = broadcasts
		mu.Unlock()
	})
	return otelRegistrationError
}

// observerCallback is called by the OTel SDK to collect the current observer count
func observerCallback(_ context.Context, observer metric.Int64Observer) error {
	mu.RLock()
	counter := observerCounter
	mu.RUnlock()

	if counter == nil {
		observer.Observe(0)
		return nil
	}
	observer.Observe(int64(counter()))
	return nil
}

// SetObserverCounter wires the function backing the observer gauge
func SetObserverCounter(counter ObserverCounter) {
	mu.Lock()
	defer mu.Unlock()
	observerCounter = counter
}

// RecordSearch records one completed search.
// platformFilter is empty when every platform was searched.
func RecordSearch(ctx context.Context, platformFilter string, elapsed time.Duration, resultCount int) {
	mu.RLock()
	requests, duration, results := searchRequests, searchDuration, searchResults
	mu.RUnlock()

	if requests == nil {
		return
	}

	if platformFilter == "" {
		platformFilter = "all"
	}
	attrs := metric.WithAttributes(attribute.String("platform_filter", platformFilter))

	requests.Add(ctx, 1, attrs)
	duration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	results.Record(ctx, int64(resultCount), attrs)
}

// RecordPersistenceFailure counts a swallowed persistence error for op
func RecordPersistenceFailure(ctx context.Context, op string) {
	mu.RLock()
	failures := persistenceFailures
	mu.RUnlock()

	if failures == nil {
		return
	}
	failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordBroadcast counts an event published to observers
func RecordBroadcast(ctx context.Context, event string) {
	mu.RLock()
	broadcasts := realtimeBroadcasts
	mu.RUnlock()

	if broadcasts == nil {
		return
	}
	broadcasts.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// ResetOTelForTesting resets the OTel initialization state for testing purposes.
// This should only be used in tests.
func ResetOTelForTesting() {
	mu.Lock()
	defer mu.Unlock()

	otelMetricsOnce = sync.Once{}
	otelRegistrationError = nil
	searchRequests = nil
	searchDuration = nil
	searchResults = nil
	persistenceFailures = nil
	realtimeBroadcasts = nil
	observerCounter = nil
}
