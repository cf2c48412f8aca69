// Package crawler simulates per-platform crawler health and records snapshots of it.
package crawler

import (
	"time"

	"github.com/ca-srg/aisearch/internal/platform"
	"github.com/ca-srg/aisearch/internal/randsrc"
	"github.com/ca-srg/aisearch/internal/types"
	"github.com/google/uuid"
)

const (
	maintenanceProbability = 0.1
	maxCrawlAge            = time.Hour
	minDocumentsIndexed    = 100000
	documentsIndexedSpan   = 1000000
	minAvgResponseTimeMs   = 50
	avgResponseTimeSpanMs  = 200
)

// Simulator draws fresh crawler statuses on every call
type Simulator struct {
	registry *platform.Registry
	rnd      randsrc.Source
	now      func() time.Time
}

// NewSimulator creates a simulator over registry
func NewSimulator(registry *platform.Registry, rnd randsrc.Source) *Simulator {
	if registry == nil {
		registry = platform.Default()
	}
	if rnd == nil {
		rnd = randsrc.New(0)
	}
	return &Simulator{
		registry: registry,
		rnd:      rnd,
		now:      time.Now,
	}
}

// SetClock overrides the time source
func (s *Simulator) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// StatusFor returns an independent random status for platformName
func (s *Simulator) StatusFor(platformName string) types.CrawlerStatus {
	state := types.CrawlerActive
	if s.rnd.Float64() <= maintenanceProbability {
		state = types.CrawlerMaintenance
	}

	age := time.Duration(s.rnd.Float64() * float64(maxCrawlAge))

	return types.CrawlerStatus{
		Platform:          platformName,
		Status:            state,
		LastCrawl:         s.now().Add(-age),
		DocumentsIndexed:  s.rnd.IntN(documentsIndexedSpan) + minDocumentsIndexed,
		AvgResponseTimeMs: s.rnd.IntN(avgResponseTimeSpanMs) + minAvgResponseTimeMs,
	}
}

// All returns one status per registered platform, in registry order
func (s *Simulator) All() []types.CrawlerStatus {
	names := s.registry.Names()
	statuses := make([]types.CrawlerStatus, 0, len(names))
	for _, name := range names {
		statuses = append(statuses, s.StatusFor(name))
	}
	return statuses
}

// Snapshot wraps statuses into a persistable record
func (s *Simulator) Snapshot(statuses []types.CrawlerStatus) *types.CrawlerSnapshot {
	active := 0
	for _, st := range statuses {
		if st.Status == types.CrawlerActive {
			active++
		}
	}
	return &types.CrawlerSnapshot{
		ID:          uuid.NewString(),
		TakenAt:     s.now(),
		Statuses:    statuses,
		ActiveCount: active,
	}
}
