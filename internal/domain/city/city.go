package city

import (
	"time"

	"github.com/google/uuid"
)

// City is the persisted per-city document. Resources is the snapshot as of
// LastSyncedAt; a zero LastSyncedAt means the snapshot has never been synced.
type City struct {
	ID              string
	PlayerID        string
	Name            string
	Grid            Grid
	Resources       Resources
	BaseCapacity    Resources
	UnlockedTechs   []string
	CurrentResearch string
	LastSyncedAt    time.Time
	Version         int64
	CreatedAt       time.Time
}

func (c City) OwnedBy(playerID string) bool {
	return playerID != "" && c.PlayerID == playerID
}

func (c City) HasTech(techID string) bool {
	for _, t := range c.UnlockedTechs {
		if t == techID {
			return true
		}
	}
	return false
}

func (c *City) UnlockTech(techID string) bool {
	if c.HasTech(techID) {
		return false
	}
	c.UnlockedTechs = append(c.UnlockedTechs, techID)
	return true
}

func (c City) Clone() City {
	out := c
	out.Grid = c.Grid.Clone()
	out.Resources = c.Resources.Clone()
	out.BaseCapacity = c.BaseCapacity.Clone()
	out.UnlockedTechs = append([]string(nil), c.UnlockedTechs...)
	return out
}

type Founding struct {
	Name             string
	PlayerID         string
	Width            int
	Depth            int
	AboveSurfaceRows int
	Resources        Resources
	Capacity         Resources
	UnlockedTechs    []string
	CommandShipType  string
	CommandWorkers   int
	Now              time.Time
}

// New lays out a fresh city: an operational command ship at the surface
// centre, the three surface cells around it and the cell below it unlocked.
func New(f Founding) City {
	grid := NewGrid(f.Width, f.Depth, f.AboveSurfaceRows)
	centerX := f.Width / 2
	ship := &Building{
		ID:                   uuid.NewString(),
		Type:                 f.CommandShipType,
		Position:             Position{X: centerX, Y: 0},
		Level:                1,
		ConstructionProgress: 100,
		Operational:          true,
		Workers:              f.CommandWorkers,
	}
	if cell := grid.Cell(ship.Position); cell != nil {
		cell.Building = ship
		cell.Unlocked = true
	}
	for dx := -1; dx <= 1; dx++ {
		if cell := grid.Cell(Position{X: centerX + dx, Y: 0}); cell != nil {
			cell.Unlocked = true
		}
	}
	if cell := grid.Cell(Position{X: centerX, Y: 1}); cell != nil {
		cell.Unlocked = true
	}

	return City{
		ID:            uuid.NewString(),
		PlayerID:      f.PlayerID,
		Name:          f.Name,
		Grid:          grid,
		Resources:     f.Resources.Clone(),
		BaseCapacity:  f.Capacity.Clone(),
		UnlockedTechs: append([]string(nil), f.UnlockedTechs...),
		LastSyncedAt:  f.Now,
		Version:       1,
		CreatedAt:     f.Now,
	}
}
