package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"giantgrab/server/internal/world"
)

// CollidesAtPoint reports whether a point on the ground plane intersects
// any generated wall. Only cells within one cell width of the point are
// examined; for each candidate cell the four wall segments are classified
// with a fixed precedence: an open passage (shared mergeGroup) never
// collides, a doorway passes the point when it lies within half the
// doorway width of the gap center, and anything else is a solid wall that
// collides within the avatar radius of the wall line across the segment
// span padded by that radius.
func (s *Simulator) CollidesAtPoint(x, z float64, topo *world.Topology) bool {
	center := world.CellAt(x, z)
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			coord := world.CellCoord{X: center.X + dx, Z: center.Z + dz}
			if !topo.Occupied(coord) {
				continue
			}
			for _, dir := range world.WallDirs {
				kind, gap := topo.WallAt(coord, dir)
				if kind == world.WallOpen {
					continue
				}
				if s.segmentCollides(coord, dir, kind, gap, x, z) {
					return true
				}
			}
		}
	}
	return false
}

// segmentCollides tests one classified wall segment against a point.
func (s *Simulator) segmentCollides(coord world.CellCoord, dir world.WallDir, kind world.WallKind, gap mgl64.Vec3, x, z float64) bool {
	radius := s.cfg.AvatarRadius

	var plane, along, gapAlong, spanMin, spanMax float64
	switch dir {
	case world.WallEast:
		plane = float64(coord.X+1) * world.CellSize
		along, gapAlong = z, gap[2]
		spanMin, spanMax = float64(coord.Z)*world.CellSize, float64(coord.Z+1)*world.CellSize
		if math.Abs(x-plane) >= radius {
			return false
		}
	case world.WallWest:
		plane = float64(coord.X) * world.CellSize
		along, gapAlong = z, gap[2]
		spanMin, spanMax = float64(coord.Z)*world.CellSize, float64(coord.Z+1)*world.CellSize
		if math.Abs(x-plane) >= radius {
			return false
		}
	case world.WallNorth:
		plane = float64(coord.Z+1) * world.CellSize
		along, gapAlong = x, gap[0]
		spanMin, spanMax = float64(coord.X)*world.CellSize, float64(coord.X+1)*world.CellSize
		if math.Abs(z-plane) >= radius {
			return false
		}
	case world.WallSouth:
		plane = float64(coord.Z) * world.CellSize
		along, gapAlong = x, gap[0]
		spanMin, spanMax = float64(coord.X)*world.CellSize, float64(coord.X+1)*world.CellSize
		if math.Abs(z-plane) >= radius {
			return false
		}
	default:
		return false
	}

	if along < spanMin-radius || along > spanMax+radius {
		return false
	}
	if kind == world.WallDoorway && math.Abs(along-gapAlong) <= world.DoorwayWidth/2 {
		return false
	}
	return true
}
