package ports

import "oceandepths/internal/domain/lifecycle"

type ActionMetrics interface {
	RecordStarted(actionType lifecycle.ActionType)
	RecordCompleted(actionType lifecycle.ActionType)
	RecordPending()
	RecordCancelled()
	RecordRejected()
	RecordConflict()
	RecordFailure()
}

type DriftMetrics interface {
	RecordSync(driftDetected bool)
}
