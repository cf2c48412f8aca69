package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ca-srg/aisearch/internal/types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, server *httptest.Server, query string, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocketStreamsEvents(t *testing.T) {
	hub := newTestHub(t, nil)
	server := httptest.NewServer(NewWebSocketHandler(hub, "*"))
	defer server.Close()

	conn := dialTestServer(t, server, "", nil)

	connected := readFrame(t, conn)
	assert.Equal(t, types.EventConnected, connected.Event)
	assert.Contains(t, string(connected.Data), "clientId")
	assert.Equal(t, 1, hub.ClientCount())

	hub.Publish(types.EventSearchAnalytics, types.SearchAnalyticsEvent{Query: "llm", ResultCount: 7, SearchTime: 2})

	frame := readFrame(t, conn)
	assert.Equal(t, types.EventSearchAnalytics, frame.Event)

	var payload types.SearchAnalyticsEvent
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "llm", payload.Query)
	assert.Equal(t, 7, payload.ResultCount)
}

func TestWebSocketFilter(t *testing.T) {
	hub := newTestHub(t, nil)
	server := httptest.NewServer(NewWebSocketHandler(hub, ""))
	defer server.Close()

	conn := dialTestServer(t, server, "?filter=crawlerStatus", nil)
	readFrame(t, conn)

	hub.Publish(types.EventSearchAnalytics, "skipped")
	hub.Publish(types.EventCrawlerStatus, "delivered")

	frame := readFrame(t, conn)
	assert.Equal(t, types.EventCrawlerStatus, frame.Event)
	assert.Equal(t, `"delivered"`, string(frame.Data))
}

func TestWebSocketUnregistersOnClose(t *testing.T) {
	hub := newTestHub(t, nil)
	server := httptest.NewServer(NewWebSocketHandler(hub, "*"))
	defer server.Close()

	conn := dialTestServer(t, server, "", nil)
	readFrame(t, conn)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	hub := newTestHub(t, nil)
	server := httptest.NewServer(NewWebSocketHandler(hub, "http://localhost:4200"))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	header := http.Header{}
	header.Set("Origin", "http://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:4200")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestWebSocketClosesWhenFull(t *testing.T) {
	hub := newTestHub(t, &Config{HeartbeatInterval: time.Hour, BufferSize: 10, MaxClients: 1})
	_, err := hub.Register("sse", nil)
	require.NoError(t, err)

	server := httptest.NewServer(NewWebSocketHandler(hub, "*"))
	defer server.Close()

	conn := dialTestServer(t, server, "", nil)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)
}

func TestWebSocketClosedOnHubStop(t *testing.T) {
	hub := NewHub(&Config{HeartbeatInterval: time.Hour}, nil)
	hub.Start(t.Context())

	server := httptest.NewServer(NewWebSocketHandler(hub, "*"))
	defer server.Close()

	conn := dialTestServer(t, server, "", nil)
	readFrame(t, conn)

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
