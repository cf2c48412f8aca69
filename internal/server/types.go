package server

import "github.com/ca-srg/aisearch/internal/crawler"

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	Status        string                  `json:"status"`
	Uptime        string                  `json:"uptime"`
	UptimeSeconds int64                   `json:"uptimeSeconds"`
	Observers     int                     `json:"observers"`
	Persistence   string                  `json:"persistence"`
	Platforms     []string                `json:"platforms"`
	Scheduler     *crawler.SchedulerState `json:"scheduler,omitempty"`
}
