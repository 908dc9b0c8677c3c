package ports

import (
	"context"
	"time"

	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"
)

// CityRepository is the World Store. GetForUpdate holds the city exclusively
// until the surrounding transaction ends; SaveWithVersion replaces the
// document only when the stored version still equals expectedVersion.
type CityRepository interface {
	GetByID(ctx context.Context, cityID string) (city.City, error)
	GetForUpdate(ctx context.Context, cityID string) (city.City, error)
	Create(ctx context.Context, c city.City) error
	SaveWithVersion(ctx context.Context, c city.City, expectedVersion int64) error
	ListIDsByPlayer(ctx context.Context, playerID string) ([]string, error)
}

type ActionRepository interface {
	InsertPending(ctx context.Context, action lifecycle.PendingAction) error
	FindPending(ctx context.Context, actionID string) (lifecycle.PendingAction, error)
	FindCompleted(ctx context.Context, actionID string) (lifecycle.CompletedAction, error)
	// ClaimCompletion flips in_progress to completed in one step. Exactly one
	// caller observes true for a given action.
	ClaimCompletion(ctx context.Context, actionID string, at time.Time) (bool, error)
	// MoveToCompleted appends the audit record and drops the pending row.
	MoveToCompleted(ctx context.Context, record lifecycle.CompletedAction) error
	// MarkCancelled flips in_progress to cancelled; false when the action was
	// no longer in progress.
	MarkCancelled(ctx context.Context, actionID string) (bool, error)
	ListInProgress(ctx context.Context, cityID, playerID string) ([]lifecycle.PendingAction, error)
}
