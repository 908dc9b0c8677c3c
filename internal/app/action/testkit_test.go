package action

import (
	"context"
	"sync"
	"testing"
	"time"

	"oceandepths/internal/app/ports"
	"oceandepths/internal/config"
	"oceandepths/internal/domain/catalog"
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"
	"oceandepths/internal/domain/simulation"
	"oceandepths/internal/platform/keylock"
)

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubCityRepo struct {
	mu    sync.Mutex
	byID  map[string]city.City
	saves int
}

func newStubCityRepo(cities ...city.City) *stubCityRepo {
	r := &stubCityRepo{byID: map[string]city.City{}}
	for _, c := range cities {
		r.byID[c.ID] = c.Clone()
	}
	return r
}

func (r *stubCityRepo) GetByID(_ context.Context, cityID string) (city.City, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[cityID]
	if !ok {
		return city.City{}, ports.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *stubCityRepo) GetForUpdate(ctx context.Context, cityID string) (city.City, error) {
	return r.GetByID(ctx, cityID)
}

func (r *stubCityRepo) Create(_ context.Context, c city.City) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c.Clone()
	return nil
}

func (r *stubCityRepo) SaveWithVersion(_ context.Context, c city.City, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[c.ID]
	if !ok || current.Version != expectedVersion {
		return ports.ErrConflict
	}
	r.byID[c.ID] = c.Clone()
	r.saves++
	return nil
}

func (r *stubCityRepo) ListIDsByPlayer(_ context.Context, playerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0)
	for id, c := range r.byID {
		if c.PlayerID == playerID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *stubCityRepo) get(t *testing.T, cityID string) city.City {
	t.Helper()
	c, err := r.GetByID(context.Background(), cityID)
	if err != nil {
		t.Fatalf("load city %s: %v", cityID, err)
	}
	return c
}

func (r *stubCityRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type stubActionRepo struct {
	mu        sync.Mutex
	pending   map[string]lifecycle.PendingAction
	completed map[string]lifecycle.CompletedAction
	claims    int
	// resolution, when set, truncates stored timestamps the way postgres
	// timestamptz does.
	resolution time.Duration
}

func newStubActionRepo() *stubActionRepo {
	return &stubActionRepo{
		pending:   map[string]lifecycle.PendingAction{},
		completed: map[string]lifecycle.CompletedAction{},
	}
}

func (r *stubActionRepo) InsertPending(_ context.Context, a lifecycle.PendingAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[a.ID] = a
	return nil
}

func (r *stubActionRepo) FindPending(_ context.Context, actionID string) (lifecycle.PendingAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.pending[actionID]
	if !ok {
		return lifecycle.PendingAction{}, ports.ErrNotFound
	}
	return a, nil
}

func (r *stubActionRepo) FindCompleted(_ context.Context, actionID string) (lifecycle.CompletedAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.completed[actionID]
	if !ok {
		return lifecycle.CompletedAction{}, ports.ErrNotFound
	}
	return a, nil
}

func (r *stubActionRepo) ClaimCompletion(_ context.Context, actionID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.pending[actionID]
	if !ok || a.Status != lifecycle.StatusInProgress {
		return false, nil
	}
	if r.resolution > 0 {
		at = at.Truncate(r.resolution)
	}
	a.Status = lifecycle.StatusCompleted
	a.CompletedAt = &at
	r.pending[actionID] = a
	r.claims++
	return true, nil
}

func (r *stubActionRepo) MoveToCompleted(_ context.Context, record lifecycle.CompletedAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.completed[record.OriginalActionID]; ok {
		return ports.ErrConflict
	}
	if r.resolution > 0 {
		record.StartedAt = record.StartedAt.Truncate(r.resolution)
		record.EndsAt = record.EndsAt.Truncate(r.resolution)
		record.CompletedAt = record.CompletedAt.Truncate(r.resolution)
	}
	r.completed[record.OriginalActionID] = record
	delete(r.pending, record.OriginalActionID)
	return nil
}

func (r *stubActionRepo) MarkCancelled(_ context.Context, actionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.pending[actionID]
	if !ok || a.Status != lifecycle.StatusInProgress {
		return false, nil
	}
	a.Status = lifecycle.StatusCancelled
	r.pending[actionID] = a
	return true, nil
}

func (r *stubActionRepo) ListInProgress(_ context.Context, cityID, playerID string) ([]lifecycle.PendingAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]lifecycle.PendingAction, 0)
	for _, a := range r.pending {
		if a.CityID == cityID && a.PlayerID == playerID && a.Status == lifecycle.StatusInProgress {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubActionRepo) auditCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.completed)
}

type stubActionMetrics struct {
	mu        sync.Mutex
	started   int
	completed int
	pending   int
	cancelled int
	rejected  int
	conflicts int
	failures  int
}

func (m *stubActionMetrics) RecordStarted(lifecycle.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *stubActionMetrics) RecordCompleted(lifecycle.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
}

func (m *stubActionMetrics) RecordPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending++
}

func (m *stubActionMetrics) RecordCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
}

func (m *stubActionMetrics) RecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

func (m *stubActionMetrics) RecordConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *stubActionMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testPlayer = "player-1"

type harness struct {
	uc      UseCase
	cities  *stubCityRepo
	actions *stubActionRepo
	metrics *stubActionMetrics
	clock   *testClock
	cityID  string
}

// scenarioResources is the starting vector of the residential scenario.
func scenarioResources() city.Resources {
	return city.Resources{
		city.Population: 10,
		city.Food:       100,
		city.Oxygen:     100,
		city.Water:      100,
		city.Energy:     20,
		city.Minerals:   50,
		city.TechPoints: 0,
	}
}

func newHarness(t *testing.T, registry *catalog.Registry, resources city.Resources) *harness {
	t.Helper()
	cfg := config.Default()
	c := city.New(city.Founding{
		Name:             "Atlantis",
		PlayerID:         testPlayer,
		Width:            cfg.Grid.Width,
		Depth:            cfg.Grid.Height,
		AboveSurfaceRows: cfg.Grid.AboveSurfaceRows,
		Resources:        resources,
		Capacity:         cfg.DefaultCapacity,
		UnlockedTechs:    registry.DefaultTechs(),
		CommandShipType:  catalog.CommandShip,
		CommandWorkers:   5,
		Now:              testStart,
	})
	cities := newStubCityRepo(c)
	actions := newStubActionRepo()
	metrics := &stubActionMetrics{}
	clock := &testClock{now: testStart}
	return &harness{
		uc: UseCase{
			TxManager: stubTxManager{},
			Cities:    cities,
			Actions:   actions,
			Catalog:   registry,
			Simulator: simulation.Simulator{
				Buildings:       registry,
				Tuning:          cfg.Simulation,
				DefaultCapacity: cfg.DefaultCapacity,
			},
			Config:  cfg,
			Locks:   keylock.New(),
			Metrics: metrics,
			Now:     clock.Now,
		},
		cities:  cities,
		actions: actions,
		metrics: metrics,
		clock:   clock,
		cityID:  c.ID,
	}
}

func (h *harness) startBuild(t *testing.T, buildingType string, pos city.Position) StartResponse {
	t.Helper()
	out, err := h.uc.Start(context.Background(), StartRequest{
		CityID:   h.cityID,
		PlayerID: testPlayer,
		Payload:  lifecycle.BuildPayload{BuildingType: buildingType, Position: pos},
	})
	if err != nil {
		t.Fatalf("start build %s at %+v: %v", buildingType, pos, err)
	}
	return out
}

// belowShip is the cell directly under the command ship, unlocked at founding.
func belowShip() city.Position {
	return city.Position{X: config.Default().Grid.Width / 2, Y: 1}
}

const researchCatalog = `
buildings:
  residential:
    build_time_seconds: 30
    workers_required: 2
    cost: {minerals: 50, energy: 20}
    connection_sides: [top, bottom, left, right]
technologies:
  basic_construction:
    cost: 0
    unlocks: [residential]
  sonar:
    cost: 10
    research_time_seconds: 60
  hull_plating:
    cost: 10
    research_time_seconds: 90
`

func mustParseCatalog(t *testing.T, raw string) *catalog.Registry {
	t.Helper()
	r, err := catalog.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return r
}
