// Package config builds the immutable game configuration handed to the
// simulator and the action lifecycle at construction time.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/simulation"

	"gopkg.in/yaml.v3"
)

type Grid struct {
	Width            int `yaml:"width"`
	Height           int `yaml:"height"`
	AboveSurfaceRows int `yaml:"above_surface_rows"`
}

type Sync struct {
	// ToleranceSeconds is how many seconds of net production a client vector
	// may deviate before drift is reported.
	ToleranceSeconds     int `yaml:"tolerance_seconds"`
	IntervalSeconds      int `yaml:"interval_seconds"`
	CompleteRetrySeconds int `yaml:"complete_retry_seconds"`
}

type Economy struct {
	RefundOnCancel bool `yaml:"refund_on_cancel"`
}

type Config struct {
	Grid             Grid              `yaml:"grid"`
	Sync             Sync              `yaml:"sync"`
	Economy          Economy           `yaml:"economy"`
	Simulation       simulation.Tuning `yaml:"simulation"`
	DefaultResources city.Resources    `yaml:"default_resources"`
	DefaultCapacity  city.Resources    `yaml:"default_capacity"`
}

func Default() Config {
	return Config{
		Grid:       Grid{Width: 10, Height: 15, AboveSurfaceRows: 2},
		Sync:       Sync{ToleranceSeconds: 5, IntervalSeconds: 30, CompleteRetrySeconds: 3},
		Simulation: simulation.DefaultTuning(),
		DefaultResources: city.Resources{
			city.Population: 10,
			city.Food:       100,
			city.Oxygen:     100,
			city.Water:      100,
			city.Energy:     50,
			city.Minerals:   50,
			city.TechPoints: 0,
		},
		DefaultCapacity: city.Resources{
			city.Population: 50,
			city.Food:       500,
			city.Oxygen:     500,
			city.Water:      500,
			city.Energy:     200,
			city.Minerals:   200,
			city.TechPoints: 1000,
		},
	}
}

// Load starts from Default, overlays the YAML file at path when non-empty and
// then the OCEAN_* environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg = cfg.withEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	switch {
	case c.Grid.Width <= 0 || c.Grid.Height <= 0:
		return fmt.Errorf("%w: grid must be at least 1x1", ErrInvalidConfig)
	case c.Grid.AboveSurfaceRows < 0:
		return fmt.Errorf("%w: negative above_surface_rows", ErrInvalidConfig)
	case c.Sync.ToleranceSeconds < 0:
		return fmt.Errorf("%w: negative tolerance_seconds", ErrInvalidConfig)
	case c.Simulation.PopulationFloor < 0:
		return fmt.Errorf("%w: negative population_floor", ErrInvalidConfig)
	}
	for _, ch := range city.Channels() {
		if c.DefaultCapacity.Get(ch) < 0 || c.DefaultResources.Get(ch) < 0 {
			return fmt.Errorf("%w: negative default for %s", ErrInvalidConfig, ch)
		}
	}
	return nil
}

func (c Config) withEnv() Config {
	c.Grid.Width = intEnv("OCEAN_GRID_WIDTH", c.Grid.Width)
	c.Grid.Height = intEnv("OCEAN_GRID_HEIGHT", c.Grid.Height)
	c.Grid.AboveSurfaceRows = intEnv("OCEAN_GRID_ABOVE_SURFACE_ROWS", c.Grid.AboveSurfaceRows)
	c.Sync.ToleranceSeconds = intEnv("OCEAN_ERROR_TOLERANCE_SECONDS", c.Sync.ToleranceSeconds)
	c.Sync.IntervalSeconds = intEnv("OCEAN_RESOURCE_SYNC_INTERVAL_SECONDS", c.Sync.IntervalSeconds)
	c.Sync.CompleteRetrySeconds = intEnv("OCEAN_ACTION_COMPLETE_RETRY_SECONDS", c.Sync.CompleteRetrySeconds)
	c.Economy.RefundOnCancel = boolEnv("OCEAN_REFUND_ON_CANCEL", c.Economy.RefundOnCancel)
	return c
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
