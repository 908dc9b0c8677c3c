package city

import "time"

// Position is a world coordinate. X is the column; Y is the world row where
// 0 is the surface, negative values are above it and positive values are depth.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

type Building struct {
	ID                   string     `json:"id"`
	Type                 string     `json:"type"`
	Position             Position   `json:"position"`
	Level                int        `json:"level"`
	ConstructionProgress int        `json:"construction_progress"`
	Operational          bool       `json:"is_operational"`
	Workers              int        `json:"workers"`
	ActionID             string     `json:"action_id,omitempty"`
	ConstructionStarted  *time.Time `json:"construction_started_at,omitempty"`
	ConstructionEnds     *time.Time `json:"construction_ends_at,omitempty"`
}

func (b *Building) UnderConstruction() bool {
	return b != nil && !b.Operational && b.ActionID != ""
}

type GridCell struct {
	Position Position  `json:"position"`
	Building *Building `json:"base"`
	Unlocked bool      `json:"is_unlocked"`
	Depth    int       `json:"depth"`
}

// Grid is a row-major arena of cells. Row index = world y + RowOffset.
type Grid struct {
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	RowOffset int        `json:"row_offset"`
	Cells     []GridCell `json:"cells"`
}

// NewGrid builds an empty grid with aboveRows rows above the surface followed
// by depthRows rows at and below it. Cells at or above the surface start unlocked.
func NewGrid(width, depthRows, aboveRows int) Grid {
	height := depthRows + aboveRows
	g := Grid{
		Width:     width,
		Height:    height,
		RowOffset: aboveRows,
		Cells:     make([]GridCell, 0, width*height),
	}
	for row := 0; row < height; row++ {
		worldY := row - aboveRows
		for x := 0; x < width; x++ {
			g.Cells = append(g.Cells, GridCell{
				Position: Position{X: x, Y: worldY},
				Unlocked: worldY <= 0,
				Depth:    worldY,
			})
		}
	}
	return g
}

func (g *Grid) index(p Position) (int, bool) {
	row := p.Y + g.RowOffset
	if p.X < 0 || p.X >= g.Width || row < 0 || row >= g.Height {
		return 0, false
	}
	return row*g.Width + p.X, true
}

func (g *Grid) Contains(p Position) bool {
	_, ok := g.index(p)
	return ok
}

// Cell returns a pointer into the arena, or nil when p is out of bounds.
func (g *Grid) Cell(p Position) *GridCell {
	i, ok := g.index(p)
	if !ok || i >= len(g.Cells) {
		return nil
	}
	return &g.Cells[i]
}

// Buildings returns every placed building in row-major order.
func (g *Grid) Buildings() []Building {
	out := make([]Building, 0)
	for i := range g.Cells {
		if b := g.Cells[i].Building; b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// UnlockSides unlocks the in-bounds neighbours of p on the given sides and
// returns the positions that changed.
func (g *Grid) UnlockSides(p Position, sides []Side) []Position {
	offsets := []struct {
		side   Side
		dx, dy int
	}{
		{SideTop, 0, -1},
		{SideBottom, 0, 1},
		{SideLeft, -1, 0},
		{SideRight, 1, 0},
	}
	unlocked := make([]Position, 0, 4)
	for _, off := range offsets {
		if !hasSide(sides, off.side) {
			continue
		}
		cell := g.Cell(Position{X: p.X + off.dx, Y: p.Y + off.dy})
		if cell == nil || cell.Unlocked {
			continue
		}
		cell.Unlocked = true
		unlocked = append(unlocked, cell.Position)
	}
	return unlocked
}

func (g Grid) Clone() Grid {
	out := g
	out.Cells = make([]GridCell, len(g.Cells))
	for i, c := range g.Cells {
		if c.Building != nil {
			b := *c.Building
			c.Building = &b
		}
		out.Cells[i] = c
	}
	return out
}

func hasSide(sides []Side, s Side) bool {
	for _, v := range sides {
		if v == s {
			return true
		}
	}
	return false
}
