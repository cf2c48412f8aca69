package store

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/ca-srg/aisearch/internal/types"
)

// Open selects a backend from cfg.PersistenceURL.
// An empty URL returns ErrNotConfigured; sqlite:// and file: select SQLite,
// http(s):// selects OpenSearch.
func Open(ctx context.Context, cfg *types.Config, logger *log.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	raw := strings.TrimSpace(cfg.PersistenceURL)
	if raw == "" {
		return nil, ErrNotConfigured
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid persistence URL: %w", err)
	}

	switch parsed.Scheme {
	case "sqlite", "file":
		s, err := NewSQLiteStore(sqlitePath(strings.TrimPrefix(raw, parsed.Scheme+":")))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "http", "https":
		s, err := NewOpenSearchStore(ctx, OpenSearchConfig{
			Endpoint:        raw,
			IndexPrefix:     cfg.OpenSearchIndexPrefix,
			Region:          cfg.OpenSearchRegion,
			AWSSigning:      cfg.OpenSearchAWSSigning,
			InsecureSkipTLS: cfg.OpenSearchInsecureTLS,
			RateLimit:       cfg.OpenSearchRateLimit,
			RateBurst:       cfg.OpenSearchRateBurst,
			MaxRetries:      cfg.OpenSearchMaxRetries,
			RetryDelay:      cfg.OpenSearchRetryDelay,
			RequestTimeout:  cfg.PersistenceTimeout,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported persistence scheme %q", parsed.Scheme)
	}
}

// sqlitePath strips the authority marker so sqlite:///abs/x.db yields /abs/x.db
// and sqlite://rel/x.db yields rel/x.db
func sqlitePath(rest string) string {
	rest = strings.TrimPrefix(rest, "//")
	if rest == "" {
		return "aisearch.db"
	}
	return rest
}
