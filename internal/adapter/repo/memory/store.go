package memory

import (
	"context"
	"sync"

	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"
)

// Store keeps cities and actions in process memory. mu guards the maps;
// txMu serializes transactions started through TxManager.
type Store struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	cities    map[string]city.City
	pending   map[string]lifecycle.PendingAction
	completed map[string]lifecycle.CompletedAction
}

func NewStore() *Store {
	return &Store{
		cities:    make(map[string]city.City),
		pending:   make(map[string]lifecycle.PendingAction),
		completed: make(map[string]lifecycle.CompletedAction),
	}
}

func (s *Store) SeedCity(c city.City) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cities[c.ID] = c.Clone()
}

// undoLog holds the value each key had before the transaction first wrote
// it; a nil entry means the key did not exist. Writes made outside the
// transaction are never recorded and survive a rollback.
type undoLog struct {
	cities    map[string]*city.City
	pending   map[string]*lifecycle.PendingAction
	completed map[string]*lifecycle.CompletedAction
}

func newUndoLog() *undoLog {
	return &undoLog{
		cities:    map[string]*city.City{},
		pending:   map[string]*lifecycle.PendingAction{},
		completed: map[string]*lifecycle.CompletedAction{},
	}
}

type undoKeyType struct{}

var undoKey = undoKeyType{}

func withUndo(ctx context.Context, u *undoLog) context.Context {
	return context.WithValue(ctx, undoKey, u)
}

func undoFromCtx(ctx context.Context) *undoLog {
	u, _ := ctx.Value(undoKey).(*undoLog)
	return u
}

// The touch helpers must be called with s.mu held, before the write.

func (s *Store) touchCity(ctx context.Context, id string) {
	u := undoFromCtx(ctx)
	if u == nil {
		return
	}
	if _, seen := u.cities[id]; seen {
		return
	}
	if c, ok := s.cities[id]; ok {
		prev := c.Clone()
		u.cities[id] = &prev
		return
	}
	u.cities[id] = nil
}

func (s *Store) touchPending(ctx context.Context, id string) {
	u := undoFromCtx(ctx)
	if u == nil {
		return
	}
	if _, seen := u.pending[id]; seen {
		return
	}
	if a, ok := s.pending[id]; ok {
		u.pending[id] = &a
		return
	}
	u.pending[id] = nil
}

func (s *Store) touchCompleted(ctx context.Context, id string) {
	u := undoFromCtx(ctx)
	if u == nil {
		return
	}
	if _, seen := u.completed[id]; seen {
		return
	}
	if a, ok := s.completed[id]; ok {
		u.completed[id] = &a
		return
	}
	u.completed[id] = nil
}

func (s *Store) rollback(u *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, prev := range u.cities {
		if prev == nil {
			delete(s.cities, id)
			continue
		}
		s.cities[id] = *prev
	}
	for id, prev := range u.pending {
		if prev == nil {
			delete(s.pending, id)
			continue
		}
		s.pending[id] = *prev
	}
	for id, prev := range u.completed {
		if prev == nil {
			delete(s.completed, id)
			continue
		}
		s.completed[id] = *prev
	}
}
