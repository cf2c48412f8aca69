// Package realtime fans events out to connected observers over SSE and WebSocket.
// Delivery is fire-and-forget: a full queue or a slow client drops the event.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ca-srg/aisearch/internal/metrics"
	"github.com/ca-srg/aisearch/internal/types"
	"github.com/google/uuid"
)

// Config holds configuration for the hub
type Config struct {
	HeartbeatInterval time.Duration
	BufferSize        int
	MaxClients        int
}

// Message is one encoded event delivered to a client
type Message struct {
	Event string
	Data  json.RawMessage
}

type event struct {
	name string
	data any
}

// Client represents a connected observer
type Client struct {
	ID        string
	Transport string
	Messages  chan Message
	Filters   []string // Event types to receive (empty = all)
	Done      chan struct{}
	mu        sync.Mutex
	isClosed  bool
}

// Hub manages observer connections and broadcasts events to them
type Hub struct {
	clients    map[string]*Client
	mu         sync.RWMutex
	config     *Config
	logger     *log.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	eventQueue chan event
}

// NewHub creates a new hub
func NewHub(config *Config, logger *log.Logger) *Hub {
	if config == nil {
		config = &Config{}
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}
	if config.MaxClients <= 0 {
		config.MaxClients = 100
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Hub{
		clients:    make(map[string]*Client),
		config:     config,
		logger:     logger,
		eventQueue: make(chan event, config.BufferSize),
	}
}

// Start starts the dispatcher and heartbeat loops
func (h *Hub) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)
	go h.heartbeatLoop()
	go h.eventDispatcher()
}

// Stop stops the hub and disconnects every client
func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		h.closeClient(client)
	}
	h.clients = make(map[string]*Client)
}

// Register adds a new client with a generated ID
func (h *Hub) Register(transport string, filters []string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.config.MaxClients {
		return nil, fmt.Errorf("maximum number of real-time clients reached")
	}

	client := &Client{
		ID:        uuid.NewString(),
		Transport: transport,
		Messages:  make(chan Message, h.config.BufferSize),
		Filters:   filters,
		Done:      make(chan struct{}),
	}

	h.clients[client.ID] = client
	h.logger.Printf("%s client registered: %s (total: %d)", transport, client.ID, len(h.clients))
	return client, nil
}

// Unregister removes a client
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[id]; ok {
		h.closeClient(client)
		delete(h.clients, id)
		h.logger.Printf("%s client unregistered: %s (remaining: %d)", client.Transport, id, len(h.clients))
	}
}

// closeClient closes a client's channels safely
func (h *Hub) closeClient(client *Client) {
	client.mu.Lock()
	defer client.mu.Unlock()

	if !client.isClosed {
		client.isClosed = true
		close(client.Done)
		close(client.Messages)
	}
}

// Publish queues an event for every connected client. It never blocks.
func (h *Hub) Publish(name string, data any) {
	select {
	case h.eventQueue <- event{name: name, data: data}:
		metrics.RecordBroadcast(context.Background(), name)
	default:
		h.logger.Printf("Event queue full, dropping event: %s", name)
	}
}

// eventDispatcher dispatches events to clients
func (h *Hub) eventDispatcher() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.eventQueue:
			h.broadcast(ev)
		}
	}
}

// broadcast delivers an event to all matching clients
func (h *Hub) broadcast(ev event) {
	data, err := json.Marshal(ev.data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s event data: %v", ev.name, err)
		return
	}

	message := Message{Event: ev.name, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !wantsEvent(client, ev.name) {
			continue
		}
		select {
		case client.Messages <- message:
		default:
			h.logger.Printf("Client %s buffer full, dropping event", client.ID)
		}
	}
}

// wantsEvent checks if the event should be sent to the client
func wantsEvent(client *Client, eventType string) bool {
	if len(client.Filters) == 0 {
		return true
	}
	for _, filter := range client.Filters {
		if filter == eventType {
			return true
		}
	}
	return false
}

// heartbeatLoop sends heartbeat events to keep connections alive
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.Publish(types.EventHeartbeat, map[string]string{
				"timestamp": time.Now().Format(time.RFC3339),
			})
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
