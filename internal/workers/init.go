package workers

import (
	"context"

	"infinite-experiment/reconboard/internal/config"
	"infinite-experiment/reconboard/internal/metrics"
	"infinite-experiment/reconboard/internal/models/entities"
)

// WorkersContainer owns the background workers and the context they run under.
type WorkersContainer struct {
	Poller *PollScheduler

	ctx context.Context
}

// InitWorkers builds the background workers and starts the ones that have
// work to do right away.
func InitWorkers(ctx context.Context, poller Poller, cfg config.PollingConfig, m *metrics.MetricsRegistry) *WorkersContainer {
	scheduler := NewPollScheduler(poller, cfg.Interval, cfg.AutoRefresh, m)
	scheduler.Ensure(ctx)

	return &WorkersContainer{
		Poller: scheduler,
		ctx:    ctx,
	}
}

// EnsurePolling restarts the poll loop after new mappings became tracked.
func (w *WorkersContainer) EnsurePolling() bool {
	return w.Poller.Ensure(w.ctx)
}

func (w *WorkersContainer) SetAutoRefresh(enabled bool) bool {
	return w.Poller.SetAutoRefresh(w.ctx, enabled)
}

func (w *WorkersContainer) PollerStatus() entities.PollerStatus {
	return w.Poller.Status()
}

// Shutdown stops every worker and waits for them to exit.
func (w *WorkersContainer) Shutdown() {
	w.Poller.Stop()
}
