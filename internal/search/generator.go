package search

import (
	"fmt"
	"time"

	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/randsrc"
	"github.com/ca-srg/aisearch/internal/types"
)

// Generator fabricates search results for a single platform
type Generator struct {
	registry *platform.Registry
	rnd      randsrc.Source
	now      func() time.Time
}

// GeneratorOption customizes a Generator
type GeneratorOption func(*Generator)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a generator that resolves URLs through registry
func NewGenerator(registry *platform.Registry, rnd randsrc.Source, opts ...GeneratorOption) *Generator {
	if registry == nil {
		registry = platform.Default()
	}
	if rnd == nil {
		rnd = randsrc.New(0)
	}

	g := &Generator{
		registry: registry,
		rnd:      rnd,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces count results for platformName, each with a fresh random score.
// An empty contentType draws one uniformly per result. Negative counts yield no results.
func (g *Generator) Generate(query, platformName string, count int, contentType types.ContentType) []types.SearchResult {
	return g.generate(g.rnd, query, platformName, count, contentType)
}

func (g *Generator) generate(rnd randsrc.Source, query, platformName string, count int, contentType types.ContentType) []types.SearchResult {
	if count <= 0 {
		return []types.SearchResult{}
	}

	url := g.registry.SearchURL(platformName, query)
	results := make([]types.SearchResult, 0, count)

	for i := 0; i < count; i++ {
		ct := contentType
		if ct == "" {
			ct = types.ContentTypes[rnd.IntN(len(types.ContentTypes))]
		}

		results = append(results, types.SearchResult{
			Title: fmt.Sprintf("%s - %s from %s", query, ct, platformName),
			URL:   url,
			Snippet: fmt.Sprintf(
				"Comprehensive %s information from %s. This %s has been classified as high-quality and relevant to your search intent. Learn about advanced techniques and best practices.",
				query, platformName, ct,
			),
			RelevanceScore: rnd.Float64() * 100,
			AIPlatform:     platformName,
			ContentType:    ct,
			Timestamp:      g.now(),
		})
	}

	return results
}
