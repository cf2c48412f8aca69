package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ca-srg/aisearch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and returns stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PERSISTENCE_URL", "")
	t.Setenv("PLATFORM_REGISTRY_FILE", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestSearchCommandJSONIsReproducible(t *testing.T) {
	run := func() types.SearchResponse {
		out, err := executeCommand(t, "search", "-q", "vector databases", "--seed", "42", "--json",
			"--platform", "", "--content-type", "", "--threshold", "25")
		require.NoError(t, err)

		var resp types.SearchResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
		return resp
	}

	first, second := run(), run()

	assert.Equal(t, "vector databases", first.Query)
	require.Equal(t, len(first.Results), len(second.Results))
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Title, second.Results[i].Title)
		assert.Equal(t, first.Results[i].RelevanceScore, second.Results[i].RelevanceScore)
		assert.GreaterOrEqual(t, first.Results[i].RelevanceScore, 25.0)
	}
}

func TestSearchCommandText(t *testing.T) {
	out, err := executeCommand(t, "search", "-q", "transformers", "--seed", "3", "--json=false",
		"--platform", "OpenAI GPT", "--content-type", "", "--threshold", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "Query: transformers")
	assert.Contains(t, out, "Strategy: Multi-stage AI ranking applied")
	assert.Contains(t, out, "[OpenAI GPT,")
	assert.NotContains(t, out, "Meta LLaMA,")
}

func TestSearchCommandRejectsUnknownContentType(t *testing.T) {
	_, err := executeCommand(t, "search", "-q", "q", "--content-type", "video", "--platform", "", "--threshold", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content type")
}

func TestCrawlersCommand(t *testing.T) {
	out, err := executeCommand(t, "crawlers", "--seed", "5", "--json")
	require.NoError(t, err)

	var statuses []types.CrawlerStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses), out)
	require.Len(t, statuses, 5)
	assert.Equal(t, "OpenAI GPT", statuses[0].Platform)

	out, err = executeCommand(t, "crawlers", "--seed", "5", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "PLATFORM")
	assert.Contains(t, out, "Anthropic Claude")
}

func TestLoadRegistry(t *testing.T) {
	reg, err := loadRegistry("")
	require.NoError(t, err)
	assert.Equal(t, 5, reg.Len())

	path := filepath.Join(t.TempDir(), "platforms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`platforms:
  - name: Mistral
    endpoint: https://api.mistral.ai
    home_url: https://mistral.ai
    search_url: https://www.google.com/search?q={query}+mistral
`), 0o600))

	reg, err = loadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mistral"}, reg.Names())

	_, err = loadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
