// Package catalog holds the static building and technology definitions.
// The registry is read-only once loaded and safe for concurrent use.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"oceandepths/internal/domain/city"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrUnknownBuilding = errors.New("unknown building type")
	ErrUnknownTech     = errors.New("unknown technology")
)

// CommandShip is placed by the city factory and unlocked by no technology.
const CommandShip = "command_ship"

type BuildingDefinition struct {
	Type             string                   `yaml:"-"`
	BuildTimeSeconds int                      `yaml:"build_time_seconds"`
	WorkersRequired  int                      `yaml:"workers_required"`
	Cost             city.Resources           `yaml:"cost"`
	Production       map[city.Channel]float64 `yaml:"production"`
	Consumption      map[city.Channel]float64 `yaml:"consumption"`
	ConnectionSides  []city.Side              `yaml:"connection_sides"`
	StorageBonus     city.Resources           `yaml:"storage_bonus"`
}

type TechDefinition struct {
	ID                  string   `yaml:"-"`
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description"`
	Cost                int      `yaml:"cost"`
	ResearchTimeSeconds int      `yaml:"research_time_seconds"`
	Prerequisites       []string `yaml:"prerequisites"`
	Unlocks             []string `yaml:"unlocks"`
	Tier                int      `yaml:"tier"`
	Category            string   `yaml:"category"`
}

// CostVector expresses the tech-point cost as a resource vector.
func (t TechDefinition) CostVector() city.Resources {
	if t.Cost <= 0 {
		return city.Resources{}
	}
	return city.Resources{city.TechPoints: t.Cost}
}

// Default reports whether the technology is tier-1: no prerequisites and free.
func (t TechDefinition) Default() bool {
	return len(t.Prerequisites) == 0 && t.Cost == 0
}

type Registry struct {
	buildings map[string]BuildingDefinition
	techs     map[string]TechDefinition
}

type document struct {
	Buildings    map[string]BuildingDefinition `yaml:"buildings"`
	Technologies map[string]TechDefinition     `yaml:"technologies"`
}

// Default returns the registry built from the embedded catalog.
func Default() (*Registry, error) {
	return Parse(defaultCatalog)
}

func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

func Parse(raw []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog.yaml: %w", err)
	}
	r := &Registry{
		buildings: make(map[string]BuildingDefinition, len(doc.Buildings)),
		techs:     make(map[string]TechDefinition, len(doc.Technologies)),
	}
	for id, def := range doc.Buildings {
		def.Type = id
		if err := validateBuilding(def); err != nil {
			return nil, err
		}
		r.buildings[id] = def
	}
	for id, def := range doc.Technologies {
		def.ID = id
		r.techs[id] = def
	}
	for id, def := range r.techs {
		for _, pre := range def.Prerequisites {
			if _, ok := r.techs[pre]; !ok {
				return nil, fmt.Errorf("catalog: tech %s: unknown prerequisite %s", id, pre)
			}
		}
		for _, b := range def.Unlocks {
			if _, ok := r.buildings[b]; !ok {
				return nil, fmt.Errorf("catalog: tech %s: unlocks unknown building %s", id, b)
			}
		}
	}
	return r, nil
}

func validateBuilding(def BuildingDefinition) error {
	if def.BuildTimeSeconds < 0 {
		return fmt.Errorf("catalog: building %s: negative build time", def.Type)
	}
	for _, side := range def.ConnectionSides {
		switch side {
		case city.SideTop, city.SideBottom, city.SideLeft, city.SideRight:
		default:
			return fmt.Errorf("catalog: building %s: unknown connection side %q", def.Type, side)
		}
	}
	for _, m := range []map[city.Channel]int{def.Cost, def.StorageBonus} {
		for c := range m {
			if !city.IsChannel(c) {
				return fmt.Errorf("catalog: building %s: unknown channel %q", def.Type, c)
			}
		}
	}
	for _, m := range []map[city.Channel]float64{def.Production, def.Consumption} {
		for c := range m {
			if !city.IsChannel(c) {
				return fmt.Errorf("catalog: building %s: unknown channel %q", def.Type, c)
			}
		}
	}
	return nil
}

func (r *Registry) Building(buildingType string) (BuildingDefinition, error) {
	def, ok := r.buildings[buildingType]
	if !ok {
		return BuildingDefinition{}, fmt.Errorf("%w: %s", ErrUnknownBuilding, buildingType)
	}
	return def, nil
}

func (r *Registry) Tech(techID string) (TechDefinition, error) {
	def, ok := r.techs[techID]
	if !ok {
		return TechDefinition{}, fmt.Errorf("%w: %s", ErrUnknownTech, techID)
	}
	return def, nil
}

// CanResearch reports whether techID is known, not yet unlocked and has every
// prerequisite in unlocked.
func (r *Registry) CanResearch(techID string, unlocked []string) bool {
	def, ok := r.techs[techID]
	if !ok || contains(unlocked, techID) {
		return false
	}
	for _, pre := range def.Prerequisites {
		if !contains(unlocked, pre) {
			return false
		}
	}
	return true
}

// BuildingUnlocked reports whether some unlocked technology grants buildingType.
func (r *Registry) BuildingUnlocked(buildingType string, unlocked []string) bool {
	for _, id := range unlocked {
		if contains(r.techs[id].Unlocks, buildingType) {
			return true
		}
	}
	return false
}

// DefaultTechs lists the tier-1 technologies every new city starts with.
func (r *Registry) DefaultTechs() []string {
	out := make([]string, 0)
	for id, def := range r.techs {
		if def.Default() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
