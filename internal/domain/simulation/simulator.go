// Package simulation computes resource quantities lazily as a pure function
// of the last persisted snapshot, the building layout and elapsed time.
// Nothing here ticks; every caller evaluates on demand.
package simulation

import (
	"math"
	"time"

	"oceandepths/internal/domain/catalog"
	"oceandepths/internal/domain/city"
)

type BuildingSource interface {
	Building(buildingType string) (catalog.BuildingDefinition, error)
}

// RateReport holds per-minute rate vectors over every channel.
type RateReport struct {
	Production  map[city.Channel]float64 `json:"production"`
	Consumption map[city.Channel]float64 `json:"consumption"`
	Net         map[city.Channel]float64 `json:"net"`
}

type Simulator struct {
	Buildings       BuildingSource
	Tuning          Tuning
	DefaultCapacity city.Resources
}

// CalculateRates sums production and consumption of operational buildings
// and adds population upkeep taken from the snapshot.
func (s Simulator) CalculateRates(grid city.Grid, snapshot city.Resources) RateReport {
	production := zeroRates()
	consumption := zeroRates()

	for _, b := range grid.Buildings() {
		if !b.Operational {
			continue
		}
		def, err := s.Buildings.Building(b.Type)
		if err != nil {
			continue
		}
		for c, rate := range def.Production {
			if _, ok := production[c]; ok {
				production[c] += rate
			}
		}
		for c, rate := range def.Consumption {
			if _, ok := consumption[c]; ok {
				consumption[c] += rate
			}
		}
	}

	population := float64(snapshot.Get(city.Population))
	consumption[city.Food] += population * s.Tuning.FoodPerCapita
	consumption[city.Oxygen] += population * s.Tuning.OxygenPerCapita
	consumption[city.Water] += population * s.Tuning.WaterPerCapita

	net := zeroRates()
	for _, c := range city.Channels() {
		net[c] = production[c] - consumption[c]
	}
	return RateReport{Production: production, Consumption: consumption, Net: net}
}

// CalculateCapacity returns base capacity (falling back to the defaults per
// channel) plus the storage bonus of every operational building.
func (s Simulator) CalculateCapacity(grid city.Grid, base city.Resources) city.Resources {
	capacity := base.Normalize(s.DefaultCapacity)
	for _, b := range grid.Buildings() {
		if !b.Operational {
			continue
		}
		def, err := s.Buildings.Building(b.Type)
		if err != nil {
			continue
		}
		for c, bonus := range def.StorageBonus {
			if _, ok := capacity[c]; ok {
				capacity[c] += bonus
			}
		}
	}
	return capacity
}

// Extrapolate advances snapshot by elapsedSeconds. Non-population channels
// move linearly at their net rate, clamped to [0, capacity] and truncated
// toward zero. Population grows or declines depending on the extrapolated
// food, oxygen and water. elapsedSeconds <= 0 returns the snapshot unchanged.
func (s Simulator) Extrapolate(snapshot city.Resources, rates RateReport, capacity city.Resources, elapsedSeconds float64) city.Resources {
	if elapsedSeconds <= 0 || math.IsNaN(elapsedSeconds) {
		return snapshot.Clone()
	}
	minutes := elapsedSeconds / 60

	out := make(city.Resources, len(city.Channels()))
	for _, c := range city.Channels() {
		if c == city.Population {
			continue
		}
		v := float64(snapshot.Get(c)) + rates.Net[c]*minutes
		out[c] = truncate(clamp(v, 0, float64(capacity.Get(c))))
	}

	p := float64(snapshot.Get(city.Population))
	grows := float64(out[city.Food]) > p*s.Tuning.FoodThreshold &&
		float64(out[city.Oxygen]) > p*s.Tuning.OxygenThreshold &&
		float64(out[city.Water]) > p*s.Tuning.WaterThreshold
	popCap := float64(capacity.Get(city.Population))
	floor := float64(s.Tuning.PopulationFloor)
	if grows {
		p = math.Min(p+s.Tuning.GrowthPerMinute*minutes, popCap)
	} else {
		p = math.Max(floor, p-s.Tuning.DeclinePerMinute*minutes)
	}
	if p > popCap && popCap >= floor {
		p = popCap
	}
	out[city.Population] = truncate(p)
	return out
}

// ResourcesAt evaluates the snapshot of c at the given instant. A city that
// has never been synced reports its stored snapshot.
func (s Simulator) ResourcesAt(c city.City, at time.Time) (city.Resources, RateReport, city.Resources) {
	rates := s.CalculateRates(c.Grid, c.Resources)
	capacity := s.CalculateCapacity(c.Grid, c.BaseCapacity)
	snapshot := c.Resources.Normalize(nil)
	if c.LastSyncedAt.IsZero() {
		return snapshot, rates, capacity
	}
	return s.Extrapolate(snapshot, rates, capacity, at.Sub(c.LastSyncedAt).Seconds()), rates, capacity
}

// Materialize rewrites the snapshot of c to its value at the given instant
// and moves the sync marker there.
func (s Simulator) Materialize(c *city.City, at time.Time) {
	current, _, _ := s.ResourcesAt(*c, at)
	c.Resources = current
	c.LastSyncedAt = at
}

func zeroRates() map[city.Channel]float64 {
	out := make(map[city.Channel]float64, len(city.Channels()))
	for _, c := range city.Channels() {
		out[c] = 0
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(v float64) int {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return int(v)
}
