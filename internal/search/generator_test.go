package search

import (
	"strings"
	"testing"
	"time"

	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/randsrc"
	"github.com/ca-srg/aisearch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShape(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(platform.Default(), randsrc.New(1), WithClock(func() time.Time { return now }))

	results := g.Generate("vector databases", "Anthropic Claude", 4, "")
	require.Len(t, results, 4)

	for _, r := range results {
		assert.Equal(t, "Anthropic Claude", r.AIPlatform)
		assert.Equal(t, "https://www.google.com/search?q=site:anthropic.com+vector%20databases", r.URL)
		assert.True(t, r.ContentType.Valid())
		assert.Equal(t, "vector databases - "+string(r.ContentType)+" from Anthropic Claude", r.Title)
		assert.Contains(t, r.Snippet, "vector databases")
		assert.Contains(t, r.Snippet, "Anthropic Claude")
		assert.GreaterOrEqual(t, r.RelevanceScore, 0.0)
		assert.Less(t, r.RelevanceScore, 100.0)
		assert.Equal(t, now, r.Timestamp)
	}
}

func TestGenerateFixedContentType(t *testing.T) {
	g := NewGenerator(nil, randsrc.New(2))

	for _, r := range g.Generate("rag", "Meta LLaMA", 10, types.ContentTypeCode) {
		assert.Equal(t, types.ContentTypeCode, r.ContentType)
	}
}

func TestGenerateUnknownPlatformUsesFallbackURL(t *testing.T) {
	g := NewGenerator(nil, randsrc.New(3))

	results := g.Generate("agents", "Mistral", 1, "")
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.google.com/search?q=agents%20Mistral", results[0].URL)
}

func TestGenerateCountEdgeCases(t *testing.T) {
	g := NewGenerator(nil, randsrc.New(4))

	assert.Empty(t, g.Generate("q", "OpenAI GPT", 0, ""))
	assert.Empty(t, g.Generate("q", "OpenAI GPT", -2, ""))
	assert.NotNil(t, g.Generate("q", "OpenAI GPT", 0, ""))
}

func TestGenerateEmptyQueryPassesThrough(t *testing.T) {
	g := NewGenerator(nil, randsrc.New(5))

	results := g.Generate("", "OpenAI GPT", 1, "")
	require.Len(t, results, 1)
	assert.True(t, strings.HasPrefix(results[0].Title, " - "))
}

func TestGenerateSeededIsReproducible(t *testing.T) {
	now := func() time.Time { return time.Unix(0, 0) }
	a := NewGenerator(nil, randsrc.New(77), WithClock(now)).Generate("q", "Google Bard", 3, "")
	b := NewGenerator(nil, randsrc.New(77), WithClock(now)).Generate("q", "Google Bard", 3, "")

	assert.Equal(t, a, b)
}
