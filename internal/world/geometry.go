package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// CellSize is the edge length of one grid cell in world units.
	CellSize = 4.0
	// DoorwayWidth is the walkable gap carved into a wall between two
	// rooms, measured along the wall's long axis.
	DoorwayWidth = 1.1
)

// CellCoord identifies one grid cell on the XZ plane.
type CellCoord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Key packs the coordinate pair into a single map key.
func (c CellCoord) Key() int64 {
	return int64(c.X)<<32 | int64(uint32(c.Z))
}

// Less orders coordinates X-major so canonical cell pairs are stable.
func (c CellCoord) Less(other CellCoord) bool {
	if c.X != other.X {
		return c.X < other.X
	}
	return c.Z < other.Z
}

// Neighbor returns the adjacent coordinate in the given wall direction.
func (c CellCoord) Neighbor(dir WallDir) CellCoord {
	dx, dz := dir.Delta()
	return CellCoord{X: c.X + dx, Z: c.Z + dz}
}

// Center returns the world-space center of the cell on the ground plane.
func (c CellCoord) Center() mgl64.Vec3 {
	return mgl64.Vec3{
		(float64(c.X) + 0.5) * CellSize,
		0,
		(float64(c.Z) + 0.5) * CellSize,
	}
}

// CellAt maps a world-space point to the grid cell containing it.
func CellAt(x, z float64) CellCoord {
	return CellCoord{
		X: int(math.Floor(x / CellSize)),
		Z: int(math.Floor(z / CellSize)),
	}
}

// WallDir names one of the four axis-aligned walls of a cell.
type WallDir string

const (
	WallNorth WallDir = "north"
	WallSouth WallDir = "south"
	WallEast  WallDir = "east"
	WallWest  WallDir = "west"
)

// WallDirs lists all wall directions in a fixed iteration order.
var WallDirs = [4]WallDir{WallNorth, WallSouth, WallEast, WallWest}

// Delta returns the cell-coordinate offset toward the neighbor behind the wall.
func (d WallDir) Delta() (int, int) {
	switch d {
	case WallNorth:
		return 0, 1
	case WallSouth:
		return 0, -1
	case WallEast:
		return 1, 0
	case WallWest:
		return -1, 0
	default:
		return 0, 0
	}
}

// Opposite returns the direction of the same wall seen from the neighbor.
func (d WallDir) Opposite() WallDir {
	switch d {
	case WallNorth:
		return WallSouth
	case WallSouth:
		return WallNorth
	case WallEast:
		return WallWest
	case WallWest:
		return WallEast
	default:
		return d
	}
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
