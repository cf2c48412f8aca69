package realtime

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ca-srg/aisearch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent reads lines until a complete SSE event has been consumed
func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()

	var name, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			return name, data
		}
	}
}

func TestServeSSEStreamsEvents(t *testing.T) {
	hub := newTestHub(t, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer server.Close()

	resp, err := http.Get(server.URL + "?filter=searchAnalytics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, types.EventConnected, name)
	assert.Contains(t, data, "clientId")
	assert.Equal(t, 1, hub.ClientCount())

	hub.Publish(types.EventCrawlerStatus, map[string]int{"activeCount": 5})
	hub.Publish(types.EventSearchAnalytics, types.SearchAnalyticsEvent{Query: "rag", ResultCount: 3, SearchTime: 4})

	name, data = readEvent(t, reader)
	assert.Equal(t, types.EventSearchAnalytics, name)
	assert.Contains(t, data, `"query":"rag"`)
	assert.Contains(t, data, `"resultCount":3`)
	assert.Contains(t, data, `"searchTime":4`)
}

func TestServeSSEUnregistersOnDisconnect(t *testing.T) {
	hub := newTestHub(t, nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)

	name, _ := readEvent(t, bufio.NewReader(resp.Body))
	require.Equal(t, types.EventConnected, name)
	require.Equal(t, 1, hub.ClientCount())

	resp.Body.Close()
	assert.Eventually(t, func() bool {
		// the handler only notices the disconnect on its next write or context cancel
		hub.Publish(types.EventHeartbeat, nil)
		return hub.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServeSSERejectsWhenFull(t *testing.T) {
	hub := newTestHub(t, &Config{HeartbeatInterval: time.Hour, BufferSize: 10, MaxClients: 1})
	_, err := hub.Register("websocket", nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	hub.ServeSSE(rec, httptest.NewRequest(http.MethodGet, "/sse/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseFilters(t *testing.T) {
	assert.Nil(t, parseFilters(""))
	assert.Equal(t, []string{"a", "b"}, parseFilters("a, b,,"))
}
