package memory

import (
	"context"
	"sort"

	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/city"
)

type CityRepo struct {
	store *Store
}

func NewCityRepo(store *Store) CityRepo {
	return CityRepo{store: store}
}

func (r CityRepo) GetByID(_ context.Context, cityID string) (city.City, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.cities[cityID]
	if !ok {
		return city.City{}, ports.ErrNotFound
	}
	return c.Clone(), nil
}

// GetForUpdate relies on TxManager for exclusivity.
func (r CityRepo) GetForUpdate(ctx context.Context, cityID string) (city.City, error) {
	return r.GetByID(ctx, cityID)
}

func (r CityRepo) Create(ctx context.Context, c city.City) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.cities[c.ID]; ok {
		return ports.ErrConflict
	}
	r.store.touchCity(ctx, c.ID)
	r.store.cities[c.ID] = c.Clone()
	return nil
}

func (r CityRepo) SaveWithVersion(ctx context.Context, c city.City, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.cities[c.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if current.Version != expectedVersion {
		return ports.ErrConflict
	}
	r.store.touchCity(ctx, c.ID)
	r.store.cities[c.ID] = c.Clone()
	return nil
}

func (r CityRepo) ListIDsByPlayer(_ context.Context, playerID string) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]string, 0)
	for id, c := range r.store.cities {
		if c.PlayerID == playerID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}
