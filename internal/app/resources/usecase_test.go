package resources

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"oceandepths/internal/adapter/repo/memory"
	"oceandepths/internal/app/action"
	"oceandepths/internal/config"
	"oceandepths/internal/domain/catalog"
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/simulation"
	"oceandepths/internal/platform/keylock"

	"github.com/google/go-cmp/cmp"
)

var founded = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubDriftMetrics struct {
	mu     sync.Mutex
	syncs  int
	drifts int
}

func (m *stubDriftMetrics) RecordSync(drift bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs++
	if drift {
		m.drifts++
	}
}

type fixture struct {
	uc      UseCase
	repo    memory.CityRepo
	metrics *stubDriftMetrics
	cityID  string
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	registry := catalog.MustDefault()
	store := memory.NewStore()
	c := city.New(city.Founding{
		Name:             "Atlantis",
		PlayerID:         "player-1",
		Width:            cfg.Grid.Width,
		Depth:            cfg.Grid.Height,
		AboveSurfaceRows: cfg.Grid.AboveSurfaceRows,
		Resources:        cfg.DefaultResources,
		Capacity:         cfg.DefaultCapacity,
		UnlockedTechs:    registry.DefaultTechs(),
		CommandShipType:  catalog.CommandShip,
		CommandWorkers:   5,
		Now:              founded,
	})
	store.SeedCity(c)

	f := &fixture{
		repo:    memory.NewCityRepo(store),
		metrics: &stubDriftMetrics{},
		cityID:  c.ID,
		now:     founded.Add(time.Minute),
	}
	f.uc = UseCase{
		TxManager:        memory.NewTxManager(store),
		Cities:           f.repo,
		Simulator:        simulation.Simulator{Buildings: registry, Tuning: cfg.Simulation, DefaultCapacity: cfg.DefaultCapacity},
		ToleranceSeconds: cfg.Sync.ToleranceSeconds,
		Locks:            keylock.New(),
		Metrics:          f.metrics,
		Now:              func() time.Time { return f.now },
	}
	return f
}

// afterOneMinute is the default city one minute after founding: the command
// ship adds 50 per channel and ten residents eat their upkeep.
func afterOneMinute() city.Resources {
	return city.Resources{
		city.Population: 10,
		city.Food:       145,
		city.Oxygen:     147,
		city.Water:      148,
		city.Energy:     100,
		city.Minerals:   100,
		city.TechPoints: 50,
	}
}

func TestCurrent_ExtrapolatesWithoutPersisting(t *testing.T) {
	f := newFixture(t)
	out, err := f.uc.Current(context.Background(), CurrentRequest{CityID: f.cityID, PlayerID: "player-1"})
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if diff := cmp.Diff(afterOneMinute(), out.Resources); diff != "" {
		t.Fatalf("resources mismatch (-want +got):\n%s", diff)
	}
	if !out.CalculatedAt.Equal(f.now) || out.Rates.Net[city.Food] != 45 {
		t.Fatalf("unexpected calculation metadata: %+v", out)
	}
	stored, _ := f.repo.GetByID(context.Background(), f.cityID)
	if !stored.LastSyncedAt.Equal(founded) || stored.Resources[city.Food] != 100 {
		t.Fatalf("read must not persist, got synced=%v food=%d", stored.LastSyncedAt, stored.Resources[city.Food])
	}
}

func TestSync_PersistsServerVectorDespiteDrift(t *testing.T) {
	f := newFixture(t)
	client := afterOneMinute()
	client[city.Minerals] = 9999
	client[city.Food] = 0

	out, err := f.uc.Sync(context.Background(), SyncRequest{CityID: f.cityID, PlayerID: "player-1", ClientResources: client})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !out.Drift.Detected {
		t.Fatalf("expected drift")
	}
	if diff := cmp.Diff([]city.Channel{city.Food, city.Minerals}, out.Drift.Channels()); diff != "" {
		t.Fatalf("drift channels mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(afterOneMinute(), out.Resources); diff != "" {
		t.Fatalf("returned vector must be the server one (-want +got):\n%s", diff)
	}

	stored, _ := f.repo.GetByID(context.Background(), f.cityID)
	if diff := cmp.Diff(afterOneMinute(), stored.Resources); diff != "" {
		t.Fatalf("persisted vector must be the server one (-want +got):\n%s", diff)
	}
	if !stored.LastSyncedAt.Equal(f.now) {
		t.Fatalf("expected last_synced_at advanced, got %v", stored.LastSyncedAt)
	}
	if f.metrics.syncs != 1 || f.metrics.drifts != 1 {
		t.Fatalf("unexpected metrics %+v", f.metrics)
	}
}

func TestSync_WithinToleranceStillAdvancesSnapshot(t *testing.T) {
	f := newFixture(t)
	client := afterOneMinute()
	client[city.Food] += 3

	out, err := f.uc.Sync(context.Background(), SyncRequest{CityID: f.cityID, PlayerID: "player-1", ClientResources: client})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if out.Drift.Detected {
		t.Fatalf("expected no drift, got %+v", out.Drift)
	}
	stored, _ := f.repo.GetByID(context.Background(), f.cityID)
	if stored.Resources[city.Food] != 145 || !stored.LastSyncedAt.Equal(f.now) || stored.Version != 2 {
		t.Fatalf("expected server vector persisted, got %+v", stored)
	}

	// a second sync at the same instant is a no-op on values
	again, err := f.uc.Sync(context.Background(), SyncRequest{CityID: f.cityID, PlayerID: "player-1"})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if diff := cmp.Diff(out.Resources, again.Resources); diff != "" {
		t.Fatalf("zero-elapsed sync changed values (-first +second):\n%s", diff)
	}
}

func TestSyncAndCurrent_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.uc.Sync(ctx, SyncRequest{CityID: f.cityID, PlayerID: "intruder"}); !errors.Is(err, action.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := f.uc.Sync(ctx, SyncRequest{CityID: "missing", PlayerID: "player-1"}); !errors.Is(err, action.ErrCityNotFound) {
		t.Fatalf("expected ErrCityNotFound, got %v", err)
	}
	if _, err := f.uc.Current(ctx, CurrentRequest{CityID: f.cityID}); !errors.Is(err, action.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if f.metrics.syncs != 0 {
		t.Fatalf("rejected syncs must not be recorded")
	}
}
