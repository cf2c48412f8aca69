package search

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/ca-srg/aisearch/internal/crawler"
	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/randsrc"
	"github.com/ca-srg/aisearch/internal/store"
	"github.com/ca-srg/aisearch/internal/store/mocks"
	"github.com/ca-srg/aisearch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	name string
	data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{name: event, data: data})
}

func (p *recordingPublisher) snapshot() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// steppingClock advances by step on every call
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := current
		current = current.Add(step)
		return now
	}
}

func newTestService(t *testing.T, persistence *store.BestEffort, pub Publisher, now func() time.Time) *Service {
	t.Helper()

	reg := platform.Default()
	rnd := randsrc.New(21)
	svc, err := NewService(ServiceConfig{
		Aggregator:  NewAggregator(reg, NewGenerator(reg, rnd), rnd),
		Simulator:   crawler.NewSimulator(reg, rnd),
		Persistence: persistence,
		Publisher:   pub,
		Logger:      log.New(io.Discard, "", 0),
		Now:         now,
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.Error(t, err)

	_, err = NewService(ServiceConfig{Aggregator: NewAggregator(nil, nil, nil)})
	assert.Error(t, err)
}

func TestServiceSearchVectorDatabases(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, nil, pub, nil)

	resp, err := svc.Search(context.Background(), types.SearchRequest{Query: "vector databases"})
	require.NoError(t, err)

	assert.Equal(t, "vector databases", resp.Query)
	assert.LessOrEqual(t, resp.TotalResults, 15)
	assert.Equal(t, len(resp.Results), resp.TotalResults)
	assertSortedDescending(t, resp.Results)

	require.NotEmpty(t, resp.Explanation.Platforms)
	for _, p := range resp.Explanation.Platforms {
		assert.True(t, svc.Registry().Contains(p))
	}
	assert.GreaterOrEqual(t, resp.SearchTime, int64(0))
}

func TestServiceSearchBroadcastsOnce(t *testing.T) {
	pub := &recordingPublisher{}
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, nil, pub, steppingClock(start, 7*time.Millisecond))

	resp, err := svc.Search(context.Background(), types.SearchRequest{
		Query:   "transformers",
		Filters: types.SearchFilters{RelevanceThreshold: 30},
	})
	require.NoError(t, err)

	// start and end readings are one step apart
	assert.Equal(t, int64(7), resp.SearchTime)

	events := pub.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, types.EventSearchAnalytics, events[0].name)

	event, ok := events[0].data.(types.SearchAnalyticsEvent)
	require.True(t, ok)
	assert.Equal(t, "transformers", event.Query)
	assert.Equal(t, len(resp.Results), event.ResultCount)
	assert.Equal(t, resp.SearchTime, event.SearchTime)
}

func TestServiceSearchWithoutPublisher(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	_, err := svc.Search(context.Background(), types.SearchRequest{Query: "q"})
	assert.NoError(t, err)
}

func TestServiceSearchErrors(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(t, nil, pub, nil)

	_, err := svc.Search(context.Background(), types.SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = svc.Search(context.Background(), types.SearchRequest{
		Query:   "q",
		Filters: types.SearchFilters{ContentType: "video"},
	})
	assert.ErrorIs(t, err, ErrInvalidContentType)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Search(ctx, types.SearchRequest{Query: "q"})
	assert.ErrorIs(t, err, ErrGenerationFailed)

	assert.Empty(t, pub.snapshot(), "failed searches are not broadcast")
}

func TestServiceSearchPersistsBestEffort(t *testing.T) {
	mock := mocks.NewStoreMock()
	persistence := store.NewBestEffort(mock, time.Second, log.New(io.Discard, "", 0))
	svc := newTestService(t, persistence, nil, nil)

	resp, err := svc.Search(context.Background(), types.SearchRequest{Query: "embeddings"})
	require.NoError(t, err)
	persistence.Flush()

	require.Equal(t, 1, mock.SearchCount())
	saved := mock.Searches[0]
	assert.Equal(t, "embeddings", saved.Query)
	assert.Equal(t, resp.TotalResults, saved.TotalResults)
	assert.Equal(t, resp.SearchTime, saved.SearchTime)
	assert.NotEmpty(t, saved.ID)

	analytics := svc.Analytics(context.Background())
	assert.Equal(t, int64(1), analytics.TotalSearches)
	assert.Len(t, analytics.RecentSearches, 1)
	assert.Equal(t, 5, analytics.ActiveCrawlers)
	assert.Equal(t, "mock", svc.PersistenceBackend())
}

func TestServiceSearchSurvivesPersistenceFailure(t *testing.T) {
	mock := mocks.NewStoreMock()
	mock.ShouldFailSave = true
	mock.ShouldFailCount = true
	mock.ShouldFailAverage = true
	mock.ShouldFailRecent = true
	persistence := store.NewBestEffort(mock, time.Second, log.New(io.Discard, "", 0))
	svc := newTestService(t, persistence, nil, nil)

	_, err := svc.Search(context.Background(), types.SearchRequest{Query: "q"})
	require.NoError(t, err)
	persistence.Flush()

	analytics := svc.Analytics(context.Background())
	assert.Equal(t, int64(1247), analytics.TotalSearches)
	assert.Equal(t, int64(156), analytics.AvgSearchTime)
	assert.Empty(t, analytics.RecentSearches)
}

func TestServiceAnalyticsDisabledPersistence(t *testing.T) {
	svc := newTestService(t, nil, nil, nil)

	analytics := svc.Analytics(context.Background())
	assert.Equal(t, int64(1247), analytics.TotalSearches)
	assert.Equal(t, int64(156), analytics.AvgSearchTime)
	assert.NotNil(t, analytics.RecentSearches)
	assert.Equal(t, 5, analytics.ActiveCrawlers)
	assert.Equal(t, "disabled", svc.PersistenceBackend())
}

func TestServiceCrawlerStatuses(t *testing.T) {
	mock := mocks.NewStoreMock()
	persistence := store.NewBestEffort(mock, time.Second, log.New(io.Discard, "", 0))
	svc := newTestService(t, persistence, nil, nil)

	statuses, err := svc.CrawlerStatuses(context.Background())
	require.NoError(t, err)
	persistence.Flush()

	assert.Len(t, statuses, 5)
	assert.Equal(t, 1, mock.SnapshotCount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.CrawlerStatuses(ctx)
	assert.Error(t, err)
}

func TestTruncateQueryAttribute(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'あ'
	}

	assert.Equal(t, "short", truncateQueryAttribute("short"))
	assert.Len(t, []rune(truncateQueryAttribute(string(long))), 256)
}
