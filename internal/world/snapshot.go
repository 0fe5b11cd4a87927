package world

import (
	"fmt"
	"sort"
)

// CellSnapshot is the flattened wire form of one occupied cell.
type CellSnapshot struct {
	X          int      `json:"x"`
	Z          int      `json:"z"`
	Kind       CellKind `json:"kind"`
	RoomID     string   `json:"roomId"`
	MergeGroup uint64   `json:"mergeGroup"`
	AddedBy    string   `json:"addedBy"`
}

// Bounds is the integer bounding box of the occupied grid.
type Bounds struct {
	MinX int `json:"minX"`
	MaxX int `json:"maxX"`
	MinZ int `json:"minZ"`
	MaxZ int `json:"maxZ"`
}

// TopologySnapshot is an immutable copy of the grid handed to broadcast
// and persistence collaborators.
type TopologySnapshot struct {
	Grid     []CellSnapshot `json:"grid"`
	Doorways []Doorway      `json:"doorways"`
	Bounds   Bounds         `json:"bounds"`
	Version  uint64         `json:"version"`
}

// SnapshotState flattens the grid into a snapshot. Cells are emitted in
// sorted coordinate order so identical grids serialize identically.
func (t *Topology) SnapshotState() TopologySnapshot {
	grid := make([]CellSnapshot, 0, len(t.cells))
	for _, cell := range t.cells {
		grid = append(grid, CellSnapshot{
			X:          cell.Coord.X,
			Z:          cell.Coord.Z,
			Kind:       cell.Kind,
			RoomID:     roomID(cell.MergeGroup),
			MergeGroup: cell.MergeGroup,
			AddedBy:    cell.AddedBy,
		})
	}
	sort.Slice(grid, func(i, j int) bool {
		if grid[i].X != grid[j].X {
			return grid[i].X < grid[j].X
		}
		return grid[i].Z < grid[j].Z
	})

	doorways := make([]Doorway, len(t.doorways))
	copy(doorways, t.doorways)

	return TopologySnapshot{
		Grid:     grid,
		Doorways: doorways,
		Bounds:   t.bounds(),
		Version:  t.version,
	}
}

func roomID(group uint64) string {
	if group == spawnMergeGroup {
		return "spawn"
	}
	return fmt.Sprintf("room-%d", group)
}

func (t *Topology) bounds() Bounds {
	if len(t.cells) == 0 {
		return Bounds{}
	}
	first := true
	var b Bounds
	for _, cell := range t.cells {
		c := cell.Coord
		if first {
			b = Bounds{MinX: c.X, MaxX: c.X, MinZ: c.Z, MaxZ: c.Z}
			first = false
			continue
		}
		if c.X < b.MinX {
			b.MinX = c.X
		}
		if c.X > b.MaxX {
			b.MaxX = c.X
		}
		if c.Z < b.MinZ {
			b.MinZ = c.Z
		}
		if c.Z > b.MaxZ {
			b.MaxZ = c.Z
		}
	}
	return b
}
