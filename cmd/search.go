package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/ca-srg/aisearch/internal/config"
	"github.com/ca-srg/aisearch/internal/types"
)

var (
	searchQuery       string
	searchPlatform    string
	searchContentType string
	searchThreshold   float64
	searchSeed        uint64
	searchJSON        bool
	searchTimeout     time.Duration
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one aggregated search and print the results",
	Long: `
Run a single cross-platform search through the same pipeline as POST /api/search.
Nothing is persisted and no events are broadcast.

Examples:
  aisearch search -q "vector databases"
  aisearch search -q "fine-tuning" --platform "Meta LLaMA" --threshold 50
  aisearch search -q "rag" --content-type tutorial --seed 42 --json
`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Search query (required)")
	searchCmd.Flags().StringVar(&searchPlatform, "platform", "", "Only search this platform")
	searchCmd.Flags().StringVar(&searchContentType, "content-type", "", "Force a content type: article|documentation|tutorial|research|code")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "Minimum relevance score (0-100)")
	searchCmd.Flags().Uint64Var(&searchSeed, "seed", 0, "Random seed for reproducible output (overrides RANDOM_SEED)")
	searchCmd.Flags().BoolVarP(&searchJSON, "json", "j", false, "Output results in JSON format")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 10*time.Second, "Search timeout")

	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	seed := cfg.RandomSeed
	if cmd.Flags().Changed("seed") {
		seed = searchSeed
	}

	app, err := newCore(cfg.PlatformRegistryFile, seed, nil, nil, log.New(io.Discard, "", 0))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), searchTimeout)
	defer cancel()

	resp, err := app.service.Search(ctx, types.SearchRequest{
		Query: searchQuery,
		Filters: types.SearchFilters{
			ContentType:        types.ContentType(searchContentType),
			Platform:           searchPlatform,
			RelevanceThreshold: searchThreshold,
		},
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return writeJSONOutput(out, resp)
	}

	fmt.Fprintf(out, "\nQuery: %s\n", resp.Query)
	fmt.Fprintf(out, "Found %d results in %dms\n", resp.TotalResults, resp.SearchTime)
	fmt.Fprintf(out, "Strategy: %s\n", resp.Explanation.Strategy)
	for _, step := range resp.Explanation.Steps {
		fmt.Fprintf(out, "  - %s\n", step)
	}

	fmt.Fprintln(out, "\nResults:")
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "  (no results found)")
		return nil
	}
	for i, r := range resp.Results {
		fmt.Fprintf(out, "\n  %d. %s\n", i+1, r.Title)
		fmt.Fprintf(out, "     Score: %.1f [%s, %s]\n", r.RelevanceScore, r.AIPlatform, r.ContentType)
		fmt.Fprintf(out, "     URL: %s\n", r.URL)
	}
	return nil
}

func writeJSONOutput(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
