package workers

import (
	"context"
	"sync"
	"time"

	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/metrics"
	"infinite-experiment/reconboard/internal/models/entities"
)

// Poller is the part of the run orchestrator the scheduler drives.
type Poller interface {
	PollAll(ctx context.Context) map[string]error
	Tracked() []string
}

// PollHandle controls one running poll loop.
type PollHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the loop and waits for it to exit.
func (h *PollHandle) Stop() {
	h.cancel()
	<-h.done
}

func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// PollScheduler runs PollAll on a fixed interval while auto-refresh is on
// and at least one mapping is tracked. The loop ends by itself once no
// mapping remains.
type PollScheduler struct {
	poller   Poller
	interval time.Duration
	metrics  *metrics.MetricsRegistry

	mu          sync.Mutex
	autoRefresh bool
	handle      *PollHandle
	lastCycle   time.Time
}

func NewPollScheduler(poller Poller, interval time.Duration, autoRefresh bool, m *metrics.MetricsRegistry) *PollScheduler {
	return &PollScheduler{
		poller:      poller,
		interval:    interval,
		autoRefresh: autoRefresh,
		metrics:     m,
	}
}

// Ensure starts the loop if it should be running and is not. It reports
// whether a loop is running afterwards.
func (s *PollScheduler) Ensure(parent context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return true
	}
	if !s.autoRefresh || len(s.poller.Tracked()) == 0 {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	h := &PollHandle{cancel: cancel, done: make(chan struct{})}
	s.handle = h
	s.metrics.SetSchedulerRunning(true)

	go s.run(ctx, h)
	return true
}

// Stop ends the running loop, if any, and waits for it.
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// SetAutoRefresh toggles polling. Turning it off stops the loop immediately.
func (s *PollScheduler) SetAutoRefresh(parent context.Context, enabled bool) bool {
	s.mu.Lock()
	s.autoRefresh = enabled
	s.mu.Unlock()

	if !enabled {
		s.Stop()
		return false
	}
	return s.Ensure(parent)
}

func (s *PollScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

func (s *PollScheduler) Status() entities.PollerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.PollerStatus{
		Running:         s.handle != nil,
		AutoRefresh:     s.autoRefresh,
		TrackedMappings: len(s.poller.Tracked()),
		LastCycleAt:     s.lastCycle,
	}
}

func (s *PollScheduler) run(ctx context.Context, h *PollHandle) {
	defer close(h.done)
	defer s.detach(h)

	logging.Info("Poll scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	if !s.cycle(ctx, h) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info("Poll scheduler stopped")
			return
		case <-ticker.C:
			if !s.cycle(ctx, h) {
				return
			}
		}
	}
}

// cycle polls every tracked mapping and reports whether the loop continues.
// An idle loop gives up its handle under the same lock Ensure takes, so a
// mapping tracked right after is picked up by a fresh loop.
func (s *PollScheduler) cycle(ctx context.Context, h *PollHandle) bool {
	s.mu.Lock()
	if len(s.poller.Tracked()) == 0 {
		if s.handle == h {
			s.handle = nil
			s.metrics.SetSchedulerRunning(false)
		}
		s.mu.Unlock()
		logging.Info("Poll scheduler idle, no mappings tracked")
		return false
	}
	s.mu.Unlock()

	failed := s.poller.PollAll(ctx)
	if len(failed) > 0 {
		logging.Debug("Poll cycle had failures", "failed", len(failed))
	}

	s.mu.Lock()
	s.lastCycle = time.Now()
	s.mu.Unlock()
	return ctx.Err() == nil
}

func (s *PollScheduler) detach(h *PollHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == h {
		s.handle = nil
	}
	h.cancel()
	s.metrics.SetSchedulerRunning(s.handle != nil)
}
