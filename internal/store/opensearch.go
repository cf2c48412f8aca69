package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/ca-srg/aisearch/internal/types"
	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"
	"golang.org/x/time/rate"
)

const backendOpenSearch = "opensearch"

// OpenSearchConfig configures the OpenSearch backend
type OpenSearchConfig struct {
	Endpoint        string
	IndexPrefix     string
	Region          string
	AWSSigning      bool
	InsecureSkipTLS bool
	RateLimit       float64
	RateBurst       int
	MaxRetries      int
	RetryDelay      time.Duration
	RequestTimeout  time.Duration
	Logger          *log.Logger
}

// OpenSearchStore persists documents into <prefix>-searches and <prefix>-crawler-status
type OpenSearchStore struct {
	client      *opensearchapi.Client
	transport   *http.Transport
	rateLimiter *rate.Limiter
	config      OpenSearchConfig
	logger      *log.Logger
}

type searchDocument struct {
	Query        string               `json:"query"`
	Results      []types.SearchResult `json:"results"`
	TotalResults int                  `json:"totalResults"`
	SearchTime   int64                `json:"searchTime"`
	Timestamp    time.Time            `json:"timestamp"`
}

type crawlerSnapshotDocument struct {
	TakenAt     time.Time             `json:"takenAt"`
	ActiveCount int                   `json:"activeCount"`
	Statuses    []types.CrawlerStatus `json:"statuses"`
}

// NewOpenSearchStore creates the client and verifies the cluster is reachable
func NewOpenSearchStore(ctx context.Context, cfg OpenSearchConfig) (*OpenSearchStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.IndexPrefix == "" {
		return nil, fmt.Errorf("index prefix is required")
	}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10.0
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipTLS,
		},
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	clientConfig := opensearch.Config{
		Addresses: []string{cfg.Endpoint},
		Transport: transport,
	}

	if cfg.AWSSigning {
		if cfg.Region == "" {
			return nil, fmt.Errorf("region is required for AWS signing")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		signer, err := requestsigner.NewSignerWithService(awsCfg, "es")
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS signer: %w", err)
		}
		clientConfig.Signer = signer
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{Client: clientConfig})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	s := &OpenSearchStore{
		client:      client,
		transport:   transport,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		config:      cfg,
		logger:      logger,
	}

	if err := s.HealthCheck(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *OpenSearchStore) Backend() string {
	return backendOpenSearch
}

func (s *OpenSearchStore) searchesIndex() string {
	return s.config.IndexPrefix + "-searches"
}

func (s *OpenSearchStore) crawlerIndex() string {
	return s.config.IndexPrefix + "-crawler-status"
}

// HealthCheck calls the cluster health API
func (s *OpenSearchStore) HealthCheck(ctx context.Context) error {
	return s.executeWithRetry(ctx, "health_check", func() error {
		resp, err := s.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{})
		if err != nil {
			var raw *opensearch.Response
			if resp != nil {
				raw = resp.Inspect().Response
			}
			return classifyResponse("health_check", raw, err)
		}
		return nil
	})
}

func (s *OpenSearchStore) SaveSearch(ctx context.Context, record *types.SearchRecord) error {
	if record == nil {
		return fmt.Errorf("search record cannot be nil")
	}

	body, err := json.Marshal(searchDocument{
		Query:        record.Query,
		Results:      record.Results,
		TotalResults: record.TotalResults,
		SearchTime:   record.SearchTime,
		Timestamp:    record.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode search document: %w", err)
	}

	return s.index(ctx, "save_search", s.searchesIndex(), record.ID, body)
}

func (s *OpenSearchStore) SaveCrawlerSnapshot(ctx context.Context, snapshot *types.CrawlerSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("crawler snapshot cannot be nil")
	}

	body, err := json.Marshal(crawlerSnapshotDocument{
		TakenAt:     snapshot.TakenAt.UTC(),
		ActiveCount: snapshot.ActiveCount,
		Statuses:    snapshot.Statuses,
	})
	if err != nil {
		return fmt.Errorf("failed to encode crawler snapshot: %w", err)
	}

	return s.index(ctx, "save_crawler_snapshot", s.crawlerIndex(), snapshot.ID, body)
}

func (s *OpenSearchStore) index(ctx context.Context, op, index, id string, body []byte) error {
	return s.executeWithRetry(ctx, op, func() error {
		resp, err := s.client.Index(ctx, opensearchapi.IndexReq{
			Index:      index,
			DocumentID: id,
			Body:       bytes.NewReader(body),
		})
		if err != nil {
			var raw *opensearch.Response
			if resp != nil {
				raw = resp.Inspect().Response
			}
			return classifyResponse(op, raw, err)
		}
		return nil
	})
}

func (s *OpenSearchStore) RecentSearches(ctx context.Context, limit int) ([]types.SearchSummary, error) {
	if limit <= 0 {
		return []types.SearchSummary{}, nil
	}

	query := map[string]any{
		"size":    limit,
		"sort":    []any{map[string]any{"timestamp": map[string]string{"order": "desc"}}},
		"_source": []string{"query", "totalResults", "searchTime", "timestamp"},
	}

	resp, err := s.search(ctx, "recent_searches", query)
	if err != nil {
		return nil, err
	}

	summaries := make([]types.SearchSummary, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var summary types.SearchSummary
		if err := json.Unmarshal(hit.Source, &summary); err != nil {
			return nil, fmt.Errorf("failed to decode search document %s: %w", hit.ID, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *OpenSearchStore) CountSearches(ctx context.Context) (int64, error) {
	resp, err := s.search(ctx, "count_searches", map[string]any{
		"size":             0,
		"track_total_hits": true,
	})
	if err != nil {
		return 0, err
	}
	return int64(resp.Hits.Total.Value), nil
}

func (s *OpenSearchStore) AverageSearchTime(ctx context.Context) (float64, error) {
	resp, err := s.search(ctx, "average_search_time", map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"avg_search_time": map[string]any{
				"avg": map[string]string{"field": "searchTime"},
			},
		},
	})
	if err != nil {
		return 0, err
	}

	var aggs struct {
		AvgSearchTime struct {
			Value *float64 `json:"value"`
		} `json:"avg_search_time"`
	}
	if len(resp.Aggregations) == 0 {
		return 0, nil
	}
	if err := json.Unmarshal(resp.Aggregations, &aggs); err != nil {
		return 0, fmt.Errorf("failed to decode aggregation: %w", err)
	}
	if aggs.AvgSearchTime.Value == nil {
		return 0, nil
	}
	return *aggs.AvgSearchTime.Value, nil
}

func (s *OpenSearchStore) search(ctx context.Context, op string, query map[string]any) (*opensearchapi.SearchResp, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s query: %w", op, err)
	}

	var result *opensearchapi.SearchResp
	err = s.executeWithRetry(ctx, op, func() error {
		resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
			Indices: []string{s.searchesIndex()},
			Body:    bytes.NewReader(body),
		})
		if err != nil {
			var raw *opensearch.Response
			if resp != nil {
				raw = resp.Inspect().Response
			}
			return classifyResponse(op, raw, err)
		}
		if resp == nil {
			return &StoreError{Op: op, Backend: backendOpenSearch, Err: errors.New("received nil response")}
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// executeWithRetry runs operation behind the rate limiter, retrying retryable
// failures with exponential backoff
func (s *OpenSearchStore) executeWithRetry(ctx context.Context, op string, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * s.config.RetryDelay
			s.logger.Printf("Retrying %s after %v (attempt %d/%d)", op, delay, attempt, s.config.MaxRetries)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := s.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				s.logger.Printf("%s succeeded after %d retries", op, attempt)
			}
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return err
		}
		s.logger.Printf("%s failed (attempt %d/%d): %v", op, attempt+1, s.config.MaxRetries+1, err)
	}

	return fmt.Errorf("%s failed after %d attempts, last error: %w", op, s.config.MaxRetries+1, lastErr)
}

// Close releases idle connections held by the transport
func (s *OpenSearchStore) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

func classifyResponse(op string, resp *opensearch.Response, err error) error {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return ClassifyHTTPStatus(backendOpenSearch, op, status, err)
}
