package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"infinite-experiment/reconboard/internal/common"
	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/metrics"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/providers"
)

// RunPhase is the orchestrator's view of one mapping's run.
type RunPhase string

const (
	PhaseIdle      RunPhase = "Idle"
	PhaseTriggered RunPhase = "Triggered"
	PhasePolling   RunPhase = "Polling"
	PhaseSucceeded RunPhase = "Succeeded"
	PhaseFailed    RunPhase = "Failed"
)

func (p RunPhase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// RunRecorder stores terminal results. The run ledger implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, result entities.ReconciliationResult) error
}

// RunSnapshot is a copy of one mapping's state.
type RunSnapshot struct {
	ReconciliationID string
	Phase            RunPhase
	Result           *entities.ReconciliationResult
	LastError        string
	LastPolledAt     time.Time
}

type runRecord struct {
	mu         sync.Mutex
	phase      RunPhase
	result     *entities.ReconciliationResult
	lastError  string
	lastPolled time.Time
}

func (r *runRecord) snapshot(id string) RunSnapshot {
	s := RunSnapshot{
		ReconciliationID: id,
		Phase:            r.phase,
		LastError:        r.lastError,
		LastPolledAt:     r.lastPolled,
	}
	if r.result != nil {
		res := r.result.Clone()
		s.Result = &res
	}
	return s
}

// RunOrchestrator drives the Idle -> Triggered -> Polling -> Succeeded/Failed
// state machine per mapping id. Each record has its own lock; backend calls
// are made without holding it.
type RunOrchestrator struct {
	backend  RunBackend
	recorder RunRecorder
	events   common.RunEventPublisher
	metrics  *metrics.MetricsRegistry
	now      func() time.Time

	// PollConcurrency bounds in-flight status requests per cycle.
	PollConcurrency int

	mu      sync.RWMutex
	records map[string]*runRecord
	tracked map[string]struct{}
}

type RunOrchestratorOption func(*RunOrchestrator)

func WithRunRecorder(r RunRecorder) RunOrchestratorOption {
	return func(o *RunOrchestrator) { o.recorder = r }
}

func WithRunEvents(p common.RunEventPublisher) RunOrchestratorOption {
	return func(o *RunOrchestrator) { o.events = p }
}

func WithRunMetrics(m *metrics.MetricsRegistry) RunOrchestratorOption {
	return func(o *RunOrchestrator) { o.metrics = m }
}

func NewRunOrchestrator(backend RunBackend, opts ...RunOrchestratorOption) *RunOrchestrator {
	o := &RunOrchestrator{
		backend:         backend,
		events:          common.NopRunEventPublisher{},
		now:             time.Now,
		PollConcurrency: 8,
		records:         make(map[string]*runRecord),
		tracked:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// lookup returns the stored record for id. An unknown id gets a detached
// record that is only kept once the backend has accepted the id.
func (o *RunOrchestrator) lookup(id string) (*runRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if rec, ok := o.records[id]; ok {
		return rec, true
	}
	return &runRecord{phase: PhaseIdle}, false
}

// keep stores rec for id unless another record got there first, and returns
// the stored one.
func (o *RunOrchestrator) keep(id string, rec *runRecord) *runRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.records[id]; ok {
		return existing
	}
	o.records[id] = rec
	return rec
}

// Track makes ids part of every poll cycle. It is the only way into the
// poll set.
func (o *RunOrchestrator) Track(ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		if _, ok := o.records[id]; !ok {
			o.records[id] = &runRecord{phase: PhaseIdle}
		}
		o.tracked[id] = struct{}{}
	}
	o.metrics.SetTrackedMappings(len(o.tracked))
}

// Forget drops a mapping and its cached state, typically after it was deleted.
func (o *RunOrchestrator) Forget(ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		delete(o.records, id)
		delete(o.tracked, id)
	}
	o.metrics.SetTrackedMappings(len(o.tracked))
}

// untrack removes id from the poll set but keeps its last known state.
func (o *RunOrchestrator) untrack(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.tracked[id]; !ok {
		return
	}
	delete(o.tracked, id)
	o.metrics.SetTrackedMappings(len(o.tracked))
}

func (o *RunOrchestrator) IsTracked(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.tracked[id]
	return ok
}

// Tracked returns the tracked ids in sorted order.
func (o *RunOrchestrator) Tracked() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]string, 0, len(o.tracked))
	for id := range o.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *RunOrchestrator) Snapshot(id string) (RunSnapshot, bool) {
	o.mu.RLock()
	rec, ok := o.records[id]
	o.mu.RUnlock()
	if !ok {
		return RunSnapshot{ReconciliationID: id, Phase: PhaseIdle}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(id), true
}

// Trigger starts a run and moves the mapping to Polling without waiting for
// completion. Concurrent triggers are not deduplicated. Triggering does not
// add id to the poll set.
func (o *RunOrchestrator) Trigger(ctx context.Context, id string) (string, error) {
	rec, _ := o.lookup(id)

	rec.mu.Lock()
	prev := rec.phase
	rec.phase = PhaseTriggered
	rec.mu.Unlock()

	ack, status, err := o.backend.TriggerRun(ctx, id)
	if err != nil {
		rec.mu.Lock()
		// A concurrent poll may have moved the phase on; only undo our own mark.
		if rec.phase == PhaseTriggered {
			rec.phase = prev
		}
		rec.lastError = err.Error()
		rec.mu.Unlock()

		o.metrics.ObserveTrigger("error")
		logging.Warn("Trigger run failed", "reconciliation_id", id, "status", status, "error", err)
		return "", fmt.Errorf("trigger run %s: %w", id, err)
	}

	rec = o.keep(id, rec)
	rec.mu.Lock()
	rec.phase = PhasePolling
	rec.lastError = ""
	rec.mu.Unlock()

	o.metrics.ObserveTrigger("ok")
	logging.Info("Reconciliation run triggered", "reconciliation_id", id, "ack", ack)
	return ack, nil
}

// PollOnce fetches the status and, on SUCCESS, the full result. A failed
// status fetch keeps the cached result; with none cached a synthetic FAILED
// "Unable to determine status" result is reported. A malformed id leaves the
// poll set. Polling never adds id to it.
func (o *RunOrchestrator) PollOnce(ctx context.Context, id string) (RunSnapshot, error) {
	rec, stored := o.lookup(id)

	update, status, err := o.backend.GetRunStatus(ctx, id)
	if err != nil {
		o.metrics.ObservePoll("error")
		logging.Warn("Status poll failed", "reconciliation_id", id, "status", status, "error", err)
		if providers.IsMalformed(err) {
			o.untrack(id)
		}

		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.lastPolled = o.now()
		rec.lastError = err.Error()
		if rec.result == nil {
			rec.result = &entities.ReconciliationResult{
				ReconciliationID: id,
				Status:           entities.StatusFailed,
				Message:          constants.MsgStatusUnknown,
			}
			rec.phase = PhaseFailed
		}
		return rec.snapshot(id), fmt.Errorf("poll status %s: %w", id, err)
	}
	o.metrics.ObservePoll(string(update.Status))

	var details *entities.ReconciliationResult
	var detailsErr error
	if update.Status == entities.StatusSuccess {
		details, _, detailsErr = o.backend.GetRunResult(ctx, id)
		if detailsErr != nil && !providers.IsNotFound(detailsErr) {
			logging.Warn("Result fetch failed", "reconciliation_id", id, "error", detailsErr)
		}
	}

	if !stored {
		rec = o.keep(id, rec)
	}

	rec.mu.Lock()
	prevPhase := rec.phase
	var prevTimestamp string
	if rec.result == nil {
		rec.result = &entities.ReconciliationResult{ReconciliationID: id}
	} else {
		prevTimestamp = rec.result.ExecutionTimestamp
	}
	rec.result.ApplyStatus(*update)
	if details != nil {
		rec.result.MergeDetails(*details)
		rec.result.ReconciliationID = id
	}
	rec.phase = phaseFor(update.Status, details != nil)
	rec.lastPolled = o.now()
	rec.lastError = ""
	if detailsErr != nil && !providers.IsNotFound(detailsErr) {
		rec.lastError = detailsErr.Error()
	}
	snap := rec.snapshot(id)
	rec.mu.Unlock()

	if snap.Phase.Terminal() && (prevPhase != snap.Phase || prevTimestamp != snap.Result.ExecutionTimestamp) {
		o.finished(ctx, snap)
	}
	return snap, nil
}

// phaseFor maps a backend status to a phase. SUCCESS stays Polling until the
// details have been merged.
func phaseFor(status entities.ReconciliationStatus, merged bool) RunPhase {
	switch status {
	case entities.StatusSuccess:
		if merged {
			return PhaseSucceeded
		}
		return PhasePolling
	case entities.StatusFailed:
		return PhaseFailed
	default:
		return PhasePolling
	}
}

func (o *RunOrchestrator) finished(ctx context.Context, snap RunSnapshot) {
	result := *snap.Result

	if o.recorder != nil {
		if err := o.recorder.RecordRun(ctx, result); err != nil {
			logging.Warn("Failed to record run", "reconciliation_id", snap.ReconciliationID, "error", err)
		}
	}

	event := common.RunEvent{
		ReconciliationID:   snap.ReconciliationID,
		Status:             string(result.Status),
		ExecutionTimestamp: result.ExecutionTimestamp,
		Message:            result.Message,
		ObservedAt:         o.now().UTC(),
	}
	if err := o.events.PublishRunEvent(ctx, event); err != nil {
		logging.Warn("Failed to publish run event", "reconciliation_id", snap.ReconciliationID, "error", err)
	}

	logging.WithReconciliation(snap.ReconciliationID).Infow("Reconciliation run finished",
		"phase", snap.Phase,
		"execution_timestamp", result.ExecutionTimestamp,
	)
}

// PollAll polls every tracked mapping concurrently. Each poll settles on its
// own; the returned map holds the ids whose status fetch failed.
func (o *RunOrchestrator) PollAll(ctx context.Context) map[string]error {
	ids := o.Tracked()
	start := o.now()

	var (
		mu     sync.Mutex
		failed = make(map[string]error)
		g      errgroup.Group
	)
	if o.PollConcurrency > 0 {
		g.SetLimit(o.PollConcurrency)
	}

	for _, id := range ids {
		g.Go(func() error {
			if _, err := o.PollOnce(ctx, id); err != nil {
				mu.Lock()
				failed[id] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	o.metrics.ObservePollCycle(o.now().Sub(start).Seconds())
	if len(failed) > 0 {
		logging.Warn("Poll cycle finished with failures", "tracked", len(ids), "failed", len(failed))
	}
	return failed
}

// WaitForTerminal polls id every interval until it reaches a terminal phase
// or ctx ends.
func (o *RunOrchestrator) WaitForTerminal(ctx context.Context, id string, interval time.Duration) (RunSnapshot, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := o.PollOnce(ctx, id)
		if err != nil && errors.Is(err, context.Canceled) {
			return snap, err
		}
		if err == nil && snap.Phase.Terminal() {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ticker.C:
		}
	}
}
