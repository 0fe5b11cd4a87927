package world

import (
	"time"
)

// CellKind distinguishes seeded spawn cells from player-placed room cells.
type CellKind string

const (
	CellKindSpawn CellKind = "spawn"
	CellKindRoom  CellKind = "room"
)

// spawnMergeGroup is shared by every spawn cell so the spawn area has no
// internal walls.
const spawnMergeGroup uint64 = 0

// Cell is one occupied unit of buildable space. Cells are immutable after
// insertion; the grid only ever gains cells or is reset wholesale.
type Cell struct {
	Coord      CellCoord `json:"coord"`
	Kind       CellKind  `json:"kind"`
	MergeGroup uint64    `json:"mergeGroup"`
	AddedBy    string    `json:"addedBy"`
	AddedAt    time.Time `json:"addedAt"`
}

// Topology owns the occupied-cell grid and the doorway list derived from
// it. It is not safe for concurrent use; the simulation loop is the single
// writer and all mutation goes through PlaceBlock and Reset.
type Topology struct {
	config Config

	cells          map[int64]*Cell
	doorways       []Doorway
	version        uint64
	nextMergeGroup uint64

	now func() time.Time
}

// New constructs a topology with a seeded spawn region.
func New(cfg Config) *Topology {
	t := &Topology{
		config: cfg.normalized(),
		now:    time.Now,
	}
	t.reinitialize()
	return t
}

// reinitialize clears the grid and reseeds the spawn region.
func (t *Topology) reinitialize() {
	t.cells = make(map[int64]*Cell)
	t.nextMergeGroup = spawnMergeGroup + 1
	extent := t.config.SpawnExtent
	stamp := t.now()
	for x := -extent; x <= extent; x++ {
		for z := -extent; z <= extent; z++ {
			coord := CellCoord{X: x, Z: z}
			t.cells[coord.Key()] = &Cell{
				Coord:      coord,
				Kind:       CellKindSpawn,
				MergeGroup: spawnMergeGroup,
				AddedBy:    "world",
				AddedAt:    stamp,
			}
		}
	}
	t.regenerateDoorways()
}

// Reset clears every placed block, reseeds the spawn region, and bumps the
// version so clients resynchronize.
func (t *Topology) Reset() {
	t.reinitialize()
	t.version++
}

// Version reports the monotonic topology revision.
func (t *Topology) Version() uint64 {
	return t.version
}

// Config returns the normalized configuration captured at construction.
func (t *Topology) Config() Config {
	return t.config
}

// CellCount reports how many cells are currently occupied.
func (t *Topology) CellCount() int {
	return len(t.cells)
}

// Occupied reports whether the coordinate holds a cell.
func (t *Topology) Occupied(coord CellCoord) bool {
	_, ok := t.cells[coord.Key()]
	return ok
}

// CellAtCoord returns the cell at the coordinate, if occupied.
func (t *Topology) CellAtCoord(coord CellCoord) (Cell, bool) {
	cell, ok := t.cells[coord.Key()]
	if !ok {
		return Cell{}, false
	}
	return *cell, true
}

// Doorways returns the current doorway list. Callers must not retain the
// slice across mutations.
func (t *Topology) Doorways() []Doorway {
	return t.doorways
}
