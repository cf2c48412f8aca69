package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ca-srg/aisearch/internal/crawler"
	"github.com/ca-srg/aisearch/internal/metrics"
	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/store"
	"github.com/ca-srg/aisearch/internal/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var searchTracer = otel.Tracer("aisearch/search")

// Publisher broadcasts named events to real-time observers without blocking
type Publisher interface {
	Publish(event string, data any)
}

// Service runs searches end to end: aggregation, explanation, persistence and broadcast
type Service struct {
	registry    *platform.Registry
	aggregator  *Aggregator
	simulator   *crawler.Simulator
	persistence *store.BestEffort
	publisher   Publisher
	logger      *log.Logger
	now         func() time.Time
}

// ServiceConfig wires the collaborators of a Service. Persistence and Publisher may be nil.
type ServiceConfig struct {
	Registry    *platform.Registry
	Aggregator  *Aggregator
	Simulator   *crawler.Simulator
	Persistence *store.BestEffort
	Publisher   Publisher
	Logger      *log.Logger
	Now         func() time.Time
}

// NewService creates a new search service
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Aggregator == nil {
		return nil, fmt.Errorf("aggregator cannot be nil")
	}
	if cfg.Simulator == nil {
		return nil, fmt.Errorf("crawler simulator cannot be nil")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = cfg.Aggregator.Registry()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		registry:    registry,
		aggregator:  cfg.Aggregator,
		simulator:   cfg.Simulator,
		persistence: cfg.Persistence,
		publisher:   cfg.Publisher,
		logger:      logger,
		now:         now,
	}, nil
}

// Registry returns the platform registry
func (s *Service) Registry() *platform.Registry {
	return s.registry
}

// PersistenceBackend names the active persistence backend
func (s *Service) PersistenceBackend() string {
	return s.persistence.Backend()
}

// Search aggregates results for req. Persistence and broadcast happen after the
// response is assembled and never affect it.
func (s *Service) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	ctx, span := searchTracer.Start(ctx, "search.aggregate")
	defer span.End()

	span.SetAttributes(
		attribute.String("search.query", truncateQueryAttribute(req.Query)),
		attribute.String("search.platform_filter", req.Filters.Platform),
		attribute.String("search.content_type", string(req.Filters.ContentType)),
		attribute.Float64("search.relevance_threshold", req.Filters.RelevanceThreshold),
	)

	if strings.TrimSpace(req.Query) == "" {
		span.SetStatus(codes.Error, "invalid_query")
		return nil, ErrEmptyQuery
	}

	start := s.now()

	results, err := s.aggregator.Aggregate(ctx, req.Query, req.Filters)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrInvalidContentType) {
			span.SetStatus(codes.Error, "invalid_filter")
		} else {
			span.SetStatus(codes.Error, "generation_failed")
		}
		return nil, err
	}

	explanation := Explain(req.Query, results, s.registry)
	elapsed := s.now().Sub(start)
	searchTime := elapsed.Milliseconds()

	response := &types.SearchResponse{
		Query:        req.Query,
		Results:      results,
		TotalResults: len(results),
		SearchTime:   searchTime,
		Explanation:  explanation,
	}

	span.SetAttributes(
		attribute.Int("search.total_results", len(results)),
		attribute.Int64("search.time_ms", searchTime),
	)
	metrics.RecordSearch(ctx, req.Filters.Platform, elapsed, len(results))

	finishedAt := s.now()
	s.persistence.SaveSearch(&types.SearchRecord{
		ID:           uuid.NewString(),
		Query:        req.Query,
		Results:      results,
		TotalResults: len(results),
		SearchTime:   searchTime,
		Timestamp:    finishedAt,
	})

	if s.publisher != nil {
		s.publisher.Publish(types.EventSearchAnalytics, types.SearchAnalyticsEvent{
			Query:       req.Query,
			ResultCount: len(results),
			SearchTime:  searchTime,
			Timestamp:   finishedAt,
		})
	}

	return response, nil
}

// Analytics returns the dashboard summary, falling back to defaults when
// persistence is disabled or failing
func (s *Service) Analytics(ctx context.Context) types.AnalyticsResponse {
	analytics := s.persistence.Analytics(ctx)
	return types.AnalyticsResponse{
		RecentSearches: analytics.RecentSearches,
		TotalSearches:  analytics.TotalSearches,
		AvgSearchTime:  analytics.AvgSearchTime,
		ActiveCrawlers: s.registry.Len(),
	}
}

// CrawlerStatuses simulates every crawler and records the snapshot best-effort
func (s *Service) CrawlerStatuses(ctx context.Context) ([]types.CrawlerStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	statuses := s.simulator.All()
	s.persistence.SaveCrawlerSnapshot(s.simulator.Snapshot(statuses))
	return statuses, nil
}

func truncateQueryAttribute(query string) string {
	const maxLen = 256
	runes := []rune(query)
	if len(runes) <= maxLen {
		return query
	}
	return string(runes[:maxLen])
}
