package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/aisearch/internal/types"
	env "github.com/netflix/go-env"
)

// Type alias for Config
type Config = types.Config

const (
	minRealtimeHeartbeat    = time.Second
	minCrawlerSnapshotEvery = time.Minute
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	config.PersistenceURL = strings.TrimSpace(config.PersistenceURL)
	config.PlatformRegistryFile = strings.TrimSpace(config.PlatformRegistryFile)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", config.Port)
	}

	if config.PersistenceTimeout <= 0 {
		config.PersistenceTimeout = 2 * time.Second
	}

	if config.RateLimitPerMinute < 1 {
		config.RateLimitPerMinute = 100
	}

	if config.RealtimeHeartbeatInterval < minRealtimeHeartbeat {
		config.RealtimeHeartbeatInterval = 30 * time.Second
	}
	if config.RealtimeBufferSize < 1 {
		config.RealtimeBufferSize = 100
	}
	if config.RealtimeMaxClients < 1 {
		config.RealtimeMaxClients = 100
	}

	if config.CrawlerSnapshotInterval < minCrawlerSnapshotEvery {
		config.CrawlerSnapshotInterval = minCrawlerSnapshotEvery
	}

	if config.PersistenceURL != "" {
		if err := validatePersistenceURL(config); err != nil {
			return fmt.Errorf("persistence configuration validation failed: %w", err)
		}
	}

	return nil
}

// validatePersistenceURL checks the connection string shape and the OpenSearch tuning knobs
func validatePersistenceURL(config *Config) error {
	parsed, err := url.Parse(config.PersistenceURL)
	if err != nil {
		return fmt.Errorf("invalid PERSISTENCE_URL: %w", err)
	}

	switch parsed.Scheme {
	case "sqlite", "file":
		return nil
	case "http", "https":
	default:
		return fmt.Errorf("PERSISTENCE_URL scheme must be sqlite, file, http or https, got: %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("PERSISTENCE_URL must include a valid host")
	}

	if config.OpenSearchIndexPrefix == "" {
		return fmt.Errorf("OPENSEARCH_INDEX_PREFIX cannot be empty")
	}
	if config.OpenSearchAWSSigning && config.OpenSearchRegion == "" {
		return fmt.Errorf("OPENSEARCH_REGION is required when OPENSEARCH_AWS_SIGNING is enabled")
	}

	if config.OpenSearchRateLimit <= 0 {
		config.OpenSearchRateLimit = 10.0
	}
	if config.OpenSearchRateLimit > 1000 {
		return fmt.Errorf("OPENSEARCH_RATE_LIMIT cannot exceed 1000 requests/second")
	}
	if config.OpenSearchRateBurst <= 0 {
		config.OpenSearchRateBurst = 20
	}

	if config.OpenSearchMaxRetries < 0 {
		config.OpenSearchMaxRetries = 0
	}
	if config.OpenSearchMaxRetries > 10 {
		return fmt.Errorf("OPENSEARCH_MAX_RETRIES cannot exceed 10")
	}
	if config.OpenSearchRetryDelay <= 0 {
		config.OpenSearchRetryDelay = 200 * time.Millisecond
	}

	return nil
}
