package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ca-srg/aisearch/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4096
)

// Frame is the JSON text frame sent to WebSocket observers
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WebSocketHandler upgrades requests and streams events as JSON frames
type WebSocketHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a handler accepting connections from allowedOrigin.
// An empty origin or "*" accepts any origin.
func NewWebSocketHandler(hub *Hub, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client, err := h.hub.Register("websocket", parseFilters(r.URL.Query().Get("filter")))
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		return
	}
	defer h.hub.Unregister(client.ID)

	connected, _ := json.Marshal(map[string]string{"clientId": client.ID})
	if err := writeFrame(conn, Frame{Event: types.EventConnected, Data: connected}); err != nil {
		return
	}

	readDone := make(chan struct{})
	go h.readPump(conn, readDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-client.Done:
			closeGoingAway(conn)
			return
		case msg, ok := <-client.Messages:
			if !ok {
				closeGoingAway(conn)
				return
			}
			if err := writeFrame(conn, Frame{Event: msg.Event, Data: msg.Data}); err != nil {
				h.hub.logger.Printf("WebSocket client %s write error: %v", client.ID, err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames so control messages are processed. Observers
// are receive-only; any payload they send is discarded.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.hub.logger.Printf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

func closeGoingAway(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(writeWait))
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}
