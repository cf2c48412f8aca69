package crawler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ca-srg/aisearch/internal/store"
	"github.com/ca-srg/aisearch/internal/types"
	"github.com/robfig/cron/v3"
)

const (
	defaultSchedulerInterval = 5 * time.Minute
	minSchedulerInterval     = time.Minute
)

// Publisher broadcasts named events to real-time observers
type Publisher interface {
	Publish(event string, data any)
}

// SchedulerRunFunc is the function called when the scheduler triggers
type SchedulerRunFunc func(ctx context.Context) error

// SchedulerState represents the state of the snapshot scheduler
type SchedulerState struct {
	Enabled   bool          `json:"enabled"`
	Interval  time.Duration `json:"interval"`
	NextRunAt time.Time     `json:"next_run_at,omitempty"`
	LastRunAt time.Time     `json:"last_run_at,omitempty"`
}

// Scheduler periodically records crawler snapshots on a cron schedule
type Scheduler struct {
	mu        sync.RWMutex
	enabled   bool
	running   bool
	interval  time.Duration
	lastRunAt time.Time
	runFunc   SchedulerRunFunc
	publisher Publisher
	logger    *log.Logger
	cron      *cron.Cron
	entryID   cron.EntryID
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a new scheduler. Intervals below one minute fall back to the default.
func NewScheduler(interval time.Duration, publisher Publisher, logger *log.Logger) *Scheduler {
	if interval < minSchedulerInterval {
		interval = defaultSchedulerInterval
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Scheduler{
		interval:  interval,
		publisher: publisher,
		logger:    logger,
	}
}

// SnapshotRunFunc returns a run function that records one snapshot of every
// crawler and broadcasts it as a crawlerStatus event
func SnapshotRunFunc(sim *Simulator, persistence *store.BestEffort, publisher Publisher) SchedulerRunFunc {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		statuses := sim.All()
		persistence.SaveCrawlerSnapshot(sim.Snapshot(statuses))
		if publisher != nil {
			publisher.Publish(types.EventCrawlerStatus, statuses)
		}
		return nil
	}
}

// SetRunFunc sets the function to call when the scheduler triggers
func (s *Scheduler) SetRunFunc(fn SchedulerRunFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runFunc = fn
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.enabled {
		s.mu.Unlock()
		return nil // Already running
	}

	if s.runFunc == nil {
		s.mu.Unlock()
		s.logger.Println("Scheduler: no run function set")
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New()
	if err := s.scheduleLocked(); err != nil {
		s.cancel()
		s.cron = nil
		s.mu.Unlock()
		return err
	}
	s.cron.Start()
	s.enabled = true
	interval := s.interval
	s.mu.Unlock()

	s.logger.Printf("Scheduler started with interval: %v", interval)
	s.sendSchedulerEvent()

	return nil
}

// scheduleLocked registers the tick with cron. Callers must hold s.mu.
func (s *Scheduler) scheduleLocked() error {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.tick(s.runContext())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule crawler snapshots: %w", err)
	}
	s.entryID = id
	return nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if !s.enabled {
		s.mu.Unlock()
		return
	}

	s.enabled = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	c := s.cron
	s.cron = nil
	s.entryID = 0
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}

	s.logger.Println("Scheduler stopped")
	s.sendSchedulerEvent()
}

// tick handles a scheduler tick
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	runFunc := s.runFunc
	if !s.enabled || runFunc == nil {
		s.mu.Unlock()
		return
	}

	if s.running {
		s.logger.Println("Scheduler: skipping tick, previous run still in progress")
		s.mu.Unlock()
		return
	}

	s.running = true
	s.lastRunAt = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.sendSchedulerEvent()
	}()

	if err := runFunc(ctx); err != nil {
		s.logger.Printf("Scheduler: run failed: %v", err)
	}
}

// SetInterval sets the scheduler interval
func (s *Scheduler) SetInterval(interval time.Duration) error {
	if interval < minSchedulerInterval {
		interval = minSchedulerInterval
	}

	s.mu.Lock()
	s.interval = interval
	if s.enabled && s.cron != nil {
		if err := s.scheduleLocked(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	s.logger.Printf("Scheduler interval updated to: %v", interval)
	s.sendSchedulerEvent()

	return nil
}

// GetState returns the current scheduler state
func (s *Scheduler) GetState() *SchedulerState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &SchedulerState{
		Enabled:   s.enabled,
		Interval:  s.interval,
		LastRunAt: s.lastRunAt,
	}
	if s.enabled && s.cron != nil && s.entryID != 0 {
		state.NextRunAt = s.cron.Entry(s.entryID).Next
	}
	return state
}

// IsEnabled returns whether the scheduler is enabled
func (s *Scheduler) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// sendSchedulerEvent publishes the scheduler state to real-time observers
func (s *Scheduler) sendSchedulerEvent() {
	if s.publisher != nil {
		s.publisher.Publish(types.EventSchedulerTick, s.GetState())
	}
}
