package search

import (
	"fmt"

	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/types"
)

const rankingStrategy = "Multi-stage AI ranking applied"

// Explain describes how results were produced. platforms lists the distinct
// result platforms in first-seen order.
func Explain(query string, results []types.SearchResult, registry *platform.Registry) types.Explanation {
	platformCount := 0
	if registry != nil {
		platformCount = registry.Len()
	}

	seen := make(map[string]struct{}, platformCount)
	platforms := make([]string, 0, platformCount)
	for _, r := range results {
		if _, ok := seen[r.AIPlatform]; ok {
			continue
		}
		seen[r.AIPlatform] = struct{}{}
		platforms = append(platforms, r.AIPlatform)
	}

	return types.Explanation{
		Strategy: rankingStrategy,
		Steps: []string{
			fmt.Sprintf("Content classified across %d AI platforms", platformCount),
			"Relevance scoring using semantic analysis",
			"Quality filtering based on source authority",
			"Cross-platform deduplication applied",
			fmt.Sprintf("Results optimized for low latency (%d results in <200ms)", len(results)),
		},
		Platforms: platforms,
	}
}
