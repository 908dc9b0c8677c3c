package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	httpadapter "oceandepths/internal/adapter/http"
	metricsinmem "oceandepths/internal/adapter/metrics/inmemory"
	gormrepo "oceandepths/internal/adapter/repo/gorm"
	"oceandepths/internal/adapter/repo/memory"
	"oceandepths/internal/app/action"
	"oceandepths/internal/app/cities"
	"oceandepths/internal/app/ports"
	"oceandepths/internal/app/resources"
	"oceandepths/internal/config"
	"oceandepths/internal/domain/catalog"
	"oceandepths/internal/domain/simulation"
	"oceandepths/internal/platform/keylock"
	"oceandepths/migrations"

	"github.com/cloudwego/hertz/pkg/app/server"
)

const demoPlayer = "demo-player"

type stores struct {
	Cities    ports.CityRepository
	Actions   ports.ActionRepository
	TxManager ports.TxManager
	Ephemeral bool
}

func main() {
	logger := newLogger(os.Getenv("OCEAN_LOG_LEVEL"))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("OCEAN_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	registry := catalog.MustDefault()

	st, err := buildStores(context.Background(), logger)
	if err != nil {
		logger.Error("build stores", "error", err)
		os.Exit(1)
	}

	kpiRecorder := metricsinmem.NewRecorder()
	locks := keylock.New()
	sim := simulation.Simulator{Buildings: registry, Tuning: cfg.Simulation, DefaultCapacity: cfg.DefaultCapacity}

	h := httpadapter.Handler{
		ActionUC: action.UseCase{
			TxManager: st.TxManager,
			Cities:    st.Cities,
			Actions:   st.Actions,
			Catalog:   registry,
			Simulator: sim,
			Config:    cfg,
			Locks:     locks,
			Metrics:   kpiRecorder,
			Logger:    logger,
			Now:       time.Now,
		},
		ResourcesUC: resources.UseCase{
			TxManager:        st.TxManager,
			Cities:           st.Cities,
			Simulator:        sim,
			ToleranceSeconds: cfg.Sync.ToleranceSeconds,
			Locks:            locks,
			Metrics:          kpiRecorder,
			Logger:           logger,
			Now:              time.Now,
		},
		CitiesUC: cities.UseCase{
			Cities:  st.Cities,
			Catalog: registry,
			Config:  cfg,
			Logger:  logger,
			Now:     time.Now,
		},
		KPI:    kpiRecorder,
		Logger: logger,
	}

	if st.Ephemeral {
		demo, err := h.CitiesUC.Create(context.Background(), cities.CreateRequest{PlayerID: demoPlayer})
		if err != nil {
			logger.Error("seed demo city", "error", err)
			os.Exit(1)
		}
		logger.Info("in-memory store seeded", "city_id", demo.ID, "player_id", demoPlayer)
	}

	addr := ":" + strconv.Itoa(intEnv("OCEAN_HTTP_PORT", 8080))
	s := server.Default(server.WithHostPorts(addr))
	h.RegisterRoutes(s)

	logger.Info("ocean depths server listening", "addr", addr)
	s.Spin()
}

// buildStores picks postgres when OCEAN_DB_DSN is set and falls back to the
// in-memory store otherwise.
func buildStores(ctx context.Context, logger *slog.Logger) (stores, error) {
	dsn := strings.TrimSpace(os.Getenv("OCEAN_DB_DSN"))
	if dsn == "" {
		store := memory.NewStore()
		return stores{
			Cities:    memory.NewCityRepo(store),
			Actions:   memory.NewActionRepo(store),
			TxManager: memory.NewTxManager(store),
			Ephemeral: true,
		}, nil
	}

	db, err := gormrepo.OpenPostgres(dsn)
	if err != nil {
		return stores{}, err
	}
	if boolEnv("OCEAN_AUTO_MIGRATE", false) {
		applied, err := gormrepo.ApplyMigrations(ctx, db, migrations.FS)
		if err != nil {
			return stores{}, err
		}
		logger.Info("migrations applied", "versions", applied)
	}
	return stores{
		Cities:    gormrepo.NewCityRepo(db),
		Actions:   gormrepo.NewActionRepo(db),
		TxManager: gormrepo.NewTxManager(db),
	}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func boolEnv(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
