package inmemory

import (
	"testing"

	"oceandepths/internal/domain/lifecycle"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordStarted(lifecycle.ActionBuild)
	r.RecordStarted(lifecycle.ActionBuild)
	r.RecordStarted(lifecycle.ActionResearch)
	r.RecordCompleted(lifecycle.ActionBuild)
	r.RecordPending()
	r.RecordCancelled()
	r.RecordRejected()
	r.RecordConflict()
	r.RecordFailure()
	r.RecordSync(false)
	r.RecordSync(true)

	s := r.Snapshot()
	if s.ActionStarted != 3 {
		t.Fatalf("expected started 3, got %d", s.ActionStarted)
	}
	if s.StartedByType[string(lifecycle.ActionBuild)] != 2 {
		t.Fatalf("expected build started 2, got %d", s.StartedByType[string(lifecycle.ActionBuild)])
	}
	if s.ActionCompleted != 1 || s.CompletedByType[string(lifecycle.ActionBuild)] != 1 {
		t.Fatalf("expected one build completion, got %+v", s)
	}
	if s.ActionPending != 1 || s.ActionCancelled != 1 || s.ActionRejected != 1 {
		t.Fatalf("unexpected lifecycle counters: %+v", s)
	}
	if s.ActionConflict != 1 || s.ActionFailure != 1 {
		t.Fatalf("unexpected error counters: %+v", s)
	}
	if s.ResourceSyncs != 2 || s.DriftDetected != 1 {
		t.Fatalf("expected 2 syncs with 1 drift, got %d/%d", s.ResourceSyncs, s.DriftDetected)
	}
}

func TestRecorderSnapshotIsCopy(t *testing.T) {
	r := NewRecorder()
	r.RecordStarted(lifecycle.ActionBuild)
	s := r.Snapshot()
	s.StartedByType["build"] = 99
	if r.Snapshot().StartedByType["build"] != 1 {
		t.Fatalf("snapshot must not alias recorder state")
	}
}
