package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ca-srg/aisearch/internal/search"
	"github.com/ca-srg/aisearch/internal/types"
)

const maxSearchBodyBytes = 1 << 20

// handleSearch handles POST /api/search
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	resp, err := s.service.Search(r.Context(), req)
	switch {
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, search.ErrInvalidContentType):
		s.writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
			Error:   "Invalid search request",
			Message: err.Error(),
		})
	case err != nil:
		s.logger.Printf("Search error: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{
			Error:   "Search failed",
			Message: err.Error(),
		})
	default:
		s.writeJSON(w, http.StatusOK, resp)
	}
}

// handleCrawlers handles GET /api/crawlers
func (s *Server) handleCrawlers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	statuses, err := s.service.CrawlerStatuses(r.Context())
	if err != nil {
		s.logger.Printf("Crawler status error: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, types.ErrorResponse{
			Error: "Failed to get crawler status",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, statuses)
}

// handleAnalytics handles GET /api/analytics
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, s.service.Analytics(r.Context()))
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startedAt)
	response := &StatusResponse{
		Status:        "ok",
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Persistence:   s.service.PersistenceBackend(),
		Platforms:     s.service.Registry().Names(),
	}
	if s.hub != nil {
		response.Observers = s.hub.ClientCount()
	}
	if s.scheduler != nil {
		response.Scheduler = s.scheduler.GetState()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleSchedulerStatus handles the scheduler status API
func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.scheduler == nil {
		http.Error(w, "Scheduler not configured", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, s.scheduler.GetState())
}

// handleSchedulerToggle handles the scheduler toggle API
func (s *Server) handleSchedulerToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.scheduler == nil {
		http.Error(w, "Scheduler not configured", http.StatusNotFound)
		return
	}

	if s.scheduler.IsEnabled() {
		s.scheduler.Stop()
		s.writeJSON(w, http.StatusOK, map[string]any{
			"enabled": false,
			"message": "Scheduler stopped",
		})
		return
	}

	if err := s.scheduler.Start(s.baseCtx); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"enabled": s.scheduler.IsEnabled(),
		"message": "Scheduler started",
	})
}

// handleSchedulerInterval handles the scheduler interval API
func (s *Server) handleSchedulerInterval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.scheduler == nil {
		http.Error(w, "Scheduler not configured", http.StatusNotFound)
		return
	}

	// form value first, JSON body otherwise
	intervalStr := r.FormValue("interval")
	if intervalStr == "" {
		var req struct {
			Interval string `json:"interval"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			intervalStr = req.Interval
		}
	}

	if intervalStr == "" {
		http.Error(w, "Interval required", http.StatusBadRequest)
		return
	}

	duration, err := time.ParseDuration(intervalStr)
	if err != nil {
		http.Error(w, "Invalid interval format", http.StatusBadRequest)
		return
	}

	if err := s.scheduler.SetInterval(duration); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"interval": s.scheduler.GetState().Interval.String(),
		"message":  "Interval updated",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Failed to encode JSON: %v", err)
	}
}
