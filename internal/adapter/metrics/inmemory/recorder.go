package inmemory

import (
	"sync"

	"oceandepths/internal/domain/lifecycle"
)

type Snapshot struct {
	ActionStarted   uint64            `json:"action_started"`
	ActionCompleted uint64            `json:"action_completed"`
	ActionPending   uint64            `json:"action_pending"`
	ActionCancelled uint64            `json:"action_cancelled"`
	ActionRejected  uint64            `json:"action_rejected"`
	ActionConflict  uint64            `json:"action_conflict"`
	ActionFailure   uint64            `json:"action_failure"`
	StartedByType   map[string]uint64 `json:"started_by_type"`
	CompletedByType map[string]uint64 `json:"completed_by_type"`
	ResourceSyncs   uint64            `json:"resource_syncs"`
	DriftDetected   uint64            `json:"drift_detected"`
}

type Recorder struct {
	mu          sync.Mutex
	started     map[string]uint64
	completed   map[string]uint64
	pending     uint64
	cancelled   uint64
	rejected    uint64
	conflict    uint64
	failure     uint64
	syncs       uint64
	driftReport uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		started:   map[string]uint64{},
		completed: map[string]uint64{},
	}
}

func (r *Recorder) RecordStarted(actionType lifecycle.ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started[string(actionType)]++
}

func (r *Recorder) RecordCompleted(actionType lifecycle.ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[string(actionType)]++
}

func (r *Recorder) RecordPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending++
}

func (r *Recorder) RecordCancelled() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled++
}

func (r *Recorder) RecordRejected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

func (r *Recorder) RecordConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflict++
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

func (r *Recorder) RecordSync(driftDetected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs++
	if driftDetected {
		r.driftReport++
	}
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		ActionPending:   r.pending,
		ActionCancelled: r.cancelled,
		ActionRejected:  r.rejected,
		ActionConflict:  r.conflict,
		ActionFailure:   r.failure,
		StartedByType:   make(map[string]uint64, len(r.started)),
		CompletedByType: make(map[string]uint64, len(r.completed)),
		ResourceSyncs:   r.syncs,
		DriftDetected:   r.driftReport,
	}
	for k, v := range r.started {
		out.StartedByType[k] = v
		out.ActionStarted += v
	}
	for k, v := range r.completed {
		out.CompletedByType[k] = v
		out.ActionCompleted += v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
