package types

import (
	"time"
)

// ContentType classifies a synthetic search result
type ContentType string

const (
	ContentTypeArticle       ContentType = "article"
	ContentTypeDocumentation ContentType = "documentation"
	ContentTypeTutorial      ContentType = "tutorial"
	ContentTypeResearch      ContentType = "research"
	ContentTypeCode          ContentType = "code"
)

// ContentTypes lists every content type in draw order
var ContentTypes = []ContentType{
	ContentTypeArticle,
	ContentTypeDocumentation,
	ContentTypeTutorial,
	ContentTypeResearch,
	ContentTypeCode,
}

// Valid reports whether c is one of the known content types
func (c ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if c == known {
			return true
		}
	}
	return false
}

// SearchResult represents a single fabricated result from one AI platform
type SearchResult struct {
	Title          string      `json:"title"`
	URL            string      `json:"url"`
	Snippet        string      `json:"snippet"`
	RelevanceScore float64     `json:"relevanceScore"`
	AIPlatform     string      `json:"aiPlatform"`
	ContentType    ContentType `json:"contentType"`
	Timestamp      time.Time   `json:"timestamp"`
}

// SearchFilters narrows an aggregation. Zero values mean "no constraint".
type SearchFilters struct {
	ContentType        ContentType `json:"contentType,omitempty"`
	Platform           string      `json:"platform,omitempty"`
	RelevanceThreshold float64     `json:"relevanceThreshold,omitempty"`
}

// Explanation describes the ranking steps applied to a result set
type Explanation struct {
	Strategy  string   `json:"strategy"`
	Steps     []string `json:"steps"`
	Platforms []string `json:"platforms"`
}

// SearchRequest is the body accepted by POST /api/search
type SearchRequest struct {
	Query   string        `json:"query"`
	Filters SearchFilters `json:"filters"`
}

// SearchResponse is returned by POST /api/search
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"totalResults"`
	SearchTime   int64          `json:"searchTime"`
	Explanation  Explanation    `json:"explanation"`
}

// CrawlerState is the health of a simulated crawler
type CrawlerState string

const (
	CrawlerActive      CrawlerState = "active"
	CrawlerMaintenance CrawlerState = "maintenance"
)

// CrawlerStatus is a simulated health record for one platform crawler
type CrawlerStatus struct {
	Platform          string       `json:"platform"`
	Status            CrawlerState `json:"status"`
	LastCrawl         time.Time    `json:"lastCrawl"`
	DocumentsIndexed  int          `json:"documentsIndexed"`
	AvgResponseTimeMs int          `json:"avgResponseTime"`
}

// Real-time event names
const (
	EventSearchAnalytics = "searchAnalytics"
	EventCrawlerStatus   = "crawlerStatus"
	EventSchedulerTick   = "schedulerTick"
	EventHeartbeat       = "heartbeat"
	EventConnected       = "connected"
)

// SearchAnalyticsEvent is broadcast to real-time observers after each search
type SearchAnalyticsEvent struct {
	Query       string    `json:"query"`
	ResultCount int       `json:"resultCount"`
	SearchTime  int64     `json:"searchTime"`
	Timestamp   time.Time `json:"timestamp"`
}

// SearchRecord is the persisted form of a completed search
type SearchRecord struct {
	ID           string         `json:"id"`
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"totalResults"`
	SearchTime   int64          `json:"searchTime"`
	Timestamp    time.Time      `json:"timestamp"`
}

// SearchSummary is the projection of a SearchRecord shown on the analytics dashboard
type SearchSummary struct {
	Query        string    `json:"query"`
	TotalResults int       `json:"totalResults"`
	SearchTime   int64     `json:"searchTime"`
	Timestamp    time.Time `json:"timestamp"`
}

// CrawlerSnapshot is a persisted batch of crawler statuses taken at one instant
type CrawlerSnapshot struct {
	ID          string          `json:"id"`
	TakenAt     time.Time       `json:"takenAt"`
	Statuses    []CrawlerStatus `json:"statuses"`
	ActiveCount int             `json:"activeCount"`
}

// AnalyticsResponse is returned by GET /api/analytics
type AnalyticsResponse struct {
	RecentSearches []SearchSummary `json:"recentSearches"`
	TotalSearches  int64           `json:"totalSearches"`
	AvgSearchTime  int64           `json:"avgSearchTime"`
	ActiveCrawlers int             `json:"activeCrawlers"`
}

// ErrorResponse is the JSON error body used by the API handlers
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Config represents the server configuration
type Config struct {
	// HTTP listener
	Host string `json:"host" env:"HOST,default=0.0.0.0"`
	Port int    `json:"port" env:"PORT,default=3001"`

	// Optional persistence
	PersistenceURL        string        `json:"persistence_url" env:"PERSISTENCE_URL"`
	PersistenceTimeout    time.Duration `json:"persistence_timeout" env:"PERSISTENCE_TIMEOUT,default=2s"`
	OpenSearchIndexPrefix string        `json:"opensearch_index_prefix" env:"OPENSEARCH_INDEX_PREFIX,default=aisearch"`
	OpenSearchRegion      string        `json:"opensearch_region" env:"OPENSEARCH_REGION,default=us-east-1"`
	OpenSearchAWSSigning  bool          `json:"opensearch_aws_signing" env:"OPENSEARCH_AWS_SIGNING,default=false"`
	OpenSearchInsecureTLS bool          `json:"opensearch_insecure_skip_tls" env:"OPENSEARCH_INSECURE_SKIP_TLS,default=false"`
	OpenSearchRateLimit   float64       `json:"opensearch_rate_limit" env:"OPENSEARCH_RATE_LIMIT,default=10.0"`
	OpenSearchRateBurst   int           `json:"opensearch_rate_burst" env:"OPENSEARCH_RATE_BURST,default=20"`
	OpenSearchMaxRetries  int           `json:"opensearch_max_retries" env:"OPENSEARCH_MAX_RETRIES,default=2"`
	OpenSearchRetryDelay  time.Duration `json:"opensearch_retry_delay" env:"OPENSEARCH_RETRY_DELAY,default=200ms"`

	// Search core
	PlatformRegistryFile string `json:"platform_registry_file" env:"PLATFORM_REGISTRY_FILE"`
	RandomSeed           uint64 `json:"random_seed" env:"RANDOM_SEED,default=0"`

	// HTTP plumbing
	RateLimitPerMinute int    `json:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE,default=100"`
	CORSAllowedOrigin  string `json:"cors_allowed_origin" env:"CORS_ALLOWED_ORIGIN,default=http://localhost:4200"`

	// Real-time notifier
	RealtimeHeartbeatInterval time.Duration `json:"realtime_heartbeat_interval" env:"REALTIME_HEARTBEAT_INTERVAL,default=30s"`
	RealtimeBufferSize        int           `json:"realtime_buffer_size" env:"REALTIME_BUFFER_SIZE,default=100"`
	RealtimeMaxClients        int           `json:"realtime_max_clients" env:"REALTIME_MAX_CLIENTS,default=100"`

	// Crawler snapshot scheduler
	CrawlerSnapshotEnabled  bool          `json:"crawler_snapshot_enabled" env:"CRAWLER_SNAPSHOT_ENABLED,default=false"`
	CrawlerSnapshotInterval time.Duration `json:"crawler_snapshot_interval" env:"CRAWLER_SNAPSHOT_INTERVAL,default=5m"`

	// OpenTelemetry
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=aisearch"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}
