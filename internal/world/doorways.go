package world

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Doorway is a generated gap in the wall between two adjacent cells whose
// mergeGroups differ. The identity is the canonical (smaller-coordinate
// first) cell pair plus the wall direction seen from CellA.
type Doorway struct {
	ID       string     `json:"id"`
	CellA    CellCoord  `json:"cellA"`
	CellB    CellCoord  `json:"cellB"`
	Wall     WallDir    `json:"wall"`
	Position mgl64.Vec3 `json:"position"`
}

// regenerateDoorways recomputes the doorway list from scratch. The list is
// a pure function of the grid: same grid in, same (order-independent) set
// out. Regeneration walks cells in sorted order so the emitted slice is
// also deterministic.
func (t *Topology) regenerateDoorways() {
	coords := make([]CellCoord, 0, len(t.cells))
	for _, cell := range t.cells {
		coords = append(coords, cell.Coord)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })

	doorways := make([]Doorway, 0)
	seen := make(map[string]struct{})

	for _, coord := range coords {
		cell := t.cells[coord.Key()]
		for _, dir := range WallDirs {
			neighborCoord := coord.Neighbor(dir)
			neighbor, ok := t.cells[neighborCoord.Key()]
			if !ok {
				continue
			}
			if neighbor.MergeGroup == cell.MergeGroup {
				continue
			}

			first, second, firstDir := coord, neighborCoord, dir
			if second.Less(first) {
				first, second = second, first
				firstDir = dir.Opposite()
			}
			id := doorwayID(first, second)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			doorways = append(doorways, Doorway{
				ID:       id,
				CellA:    first,
				CellB:    second,
				Wall:     firstDir,
				Position: wallCenter(first, firstDir),
			})
		}
	}

	t.doorways = doorways
}

func doorwayID(a, b CellCoord) string {
	return fmt.Sprintf("door:%d,%d|%d,%d", a.X, a.Z, b.X, b.Z)
}

// wallCenter projects the cell center onto the shared edge in the given
// direction, yielding the world-space center of the wall segment.
func wallCenter(coord CellCoord, dir WallDir) mgl64.Vec3 {
	center := coord.Center()
	dx, dz := dir.Delta()
	center[0] += float64(dx) * CellSize / 2
	center[2] += float64(dz) * CellSize / 2
	return center
}

// WallKind classifies one wall segment of an occupied cell.
type WallKind int

const (
	// WallOpen means the neighbor shares the cell's mergeGroup: no wall.
	WallOpen WallKind = iota
	// WallDoorway means a solid wall with a doorway gap at its center.
	WallDoorway
	// WallSolid means an unbroken wall (grid boundary).
	WallSolid
)

// WallAt classifies the wall segment of the cell at coord in the given
// direction and returns the doorway gap center when one exists. Querying
// an unoccupied coordinate reports an open segment, since only occupied
// cells own walls.
func (t *Topology) WallAt(coord CellCoord, dir WallDir) (WallKind, mgl64.Vec3) {
	cell, ok := t.cells[coord.Key()]
	if !ok {
		return WallOpen, mgl64.Vec3{}
	}
	neighbor, ok := t.cells[coord.Neighbor(dir).Key()]
	if !ok {
		return WallSolid, mgl64.Vec3{}
	}
	if neighbor.MergeGroup == cell.MergeGroup {
		return WallOpen, mgl64.Vec3{}
	}
	return WallDoorway, wallCenter(coord, dir)
}
