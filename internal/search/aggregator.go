package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/randsrc"
	"github.com/ca-srg/aisearch/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of results generated per platform
	DefaultBatchSize = 3
	// DefaultMaxResults caps the aggregated result list
	DefaultMaxResults = 15
)

// Aggregator fans a query out across platforms and ranks the combined results
type Aggregator struct {
	registry   *platform.Registry
	generator  *Generator
	rnd        randsrc.Source
	batchSize  int
	maxResults int
}

// NewAggregator creates an aggregator over registry. Per-platform random
// sources are derived from rnd in registry order.
func NewAggregator(registry *platform.Registry, generator *Generator, rnd randsrc.Source) *Aggregator {
	if registry == nil {
		registry = platform.Default()
	}
	if rnd == nil {
		rnd = randsrc.New(0)
	}
	if generator == nil {
		generator = NewGenerator(registry, rnd)
	}

	return &Aggregator{
		registry:   registry,
		generator:  generator,
		rnd:        rnd,
		batchSize:  DefaultBatchSize,
		maxResults: DefaultMaxResults,
	}
}

// Registry returns the platforms this aggregator searches
func (a *Aggregator) Registry() *platform.Registry {
	return a.registry
}

// Aggregate searches the selected platforms, drops results below the relevance
// threshold, sorts by relevance (highest first) and keeps at most 15.
func (a *Aggregator) Aggregate(ctx context.Context, query string, filters types.SearchFilters) ([]types.SearchResult, error) {
	if filters.ContentType != "" && !filters.ContentType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContentType, filters.ContentType)
	}

	platforms := a.registry.Names()
	if filters.Platform != "" {
		platforms = []string{filters.Platform}
	}

	// Derive child sources before fanning out so a seeded run is reproducible
	sources := make([]randsrc.Source, len(platforms))
	for i := range platforms {
		sources[i] = randsrc.Derive(a.rnd)
	}

	batches := make([][]types.SearchResult, len(platforms))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, name := range platforms {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			batches[i] = a.generator.generate(sources[i], query, name, a.batchSize, filters.ContentType)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	results := make([]types.SearchResult, 0, len(platforms)*a.batchSize)
	for _, batch := range batches {
		for _, r := range batch {
			if r.RelevanceScore < filters.RelevanceThreshold {
				continue
			}
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if len(results) > a.maxResults {
		results = results[:a.maxResults]
	}
	return results, nil
}
