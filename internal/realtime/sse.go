package realtime

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ca-srg/aisearch/internal/types"
)

// ServeSSE streams events as Server-Sent Events.
// The optional filter query parameter is a comma-separated list of event names.
func (h *Hub) ServeSSE(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	client, err := h.Register("sse", parseFilters(r.URL.Query().Get("filter")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer h.Unregister(client.ID)

	_, _ = fmt.Fprintf(w, "event: %s\ndata: {\"clientId\":%q}\n\n", types.EventConnected, client.ID)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case msg, ok := <-client.Messages:
			if !ok {
				return
			}
			_, _ = w.Write(formatSSEMessage(msg))
			flusher.Flush()
		}
	}
}

// formatSSEMessage formats an SSE message
func formatSSEMessage(msg Message) []byte {
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", msg.Event, string(msg.Data)))
}

func parseFilters(raw string) []string {
	if raw == "" {
		return nil
	}
	var filters []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			filters = append(filters, f)
		}
	}
	return filters
}
