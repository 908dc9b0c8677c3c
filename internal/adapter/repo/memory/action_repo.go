package memory

import (
	"context"
	"time"

	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/lifecycle"
)

type ActionRepo struct {
	store *Store
}

func NewActionRepo(store *Store) ActionRepo {
	return ActionRepo{store: store}
}

func (r ActionRepo) InsertPending(ctx context.Context, a lifecycle.PendingAction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.pending[a.ID]; ok {
		return ports.ErrConflict
	}
	r.store.touchPending(ctx, a.ID)
	r.store.pending[a.ID] = a
	return nil
}

func (r ActionRepo) FindPending(_ context.Context, actionID string) (lifecycle.PendingAction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.pending[actionID]
	if !ok {
		return lifecycle.PendingAction{}, ports.ErrNotFound
	}
	return a, nil
}

func (r ActionRepo) FindCompleted(_ context.Context, actionID string) (lifecycle.CompletedAction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.completed[actionID]
	if !ok {
		return lifecycle.CompletedAction{}, ports.ErrNotFound
	}
	return a, nil
}

func (r ActionRepo) ClaimCompletion(ctx context.Context, actionID string, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.pending[actionID]
	if !ok || a.Status != lifecycle.StatusInProgress {
		return false, nil
	}
	r.store.touchPending(ctx, actionID)
	a.Status = lifecycle.StatusCompleted
	a.CompletedAt = &at
	r.store.pending[actionID] = a
	return true, nil
}

func (r ActionRepo) MoveToCompleted(ctx context.Context, record lifecycle.CompletedAction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.completed[record.OriginalActionID]; ok {
		return ports.ErrConflict
	}
	r.store.touchCompleted(ctx, record.OriginalActionID)
	r.store.touchPending(ctx, record.OriginalActionID)
	r.store.completed[record.OriginalActionID] = record
	delete(r.store.pending, record.OriginalActionID)
	return nil
}

func (r ActionRepo) MarkCancelled(ctx context.Context, actionID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.pending[actionID]
	if !ok || a.Status != lifecycle.StatusInProgress {
		return false, nil
	}
	r.store.touchPending(ctx, actionID)
	a.Status = lifecycle.StatusCancelled
	r.store.pending[actionID] = a
	return true, nil
}

func (r ActionRepo) ListInProgress(_ context.Context, cityID, playerID string) ([]lifecycle.PendingAction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]lifecycle.PendingAction, 0)
	for _, a := range r.store.pending {
		if a.CityID == cityID && a.PlayerID == playerID && a.Status == lifecycle.StatusInProgress {
			out = append(out, a)
		}
	}
	return out, nil
}
