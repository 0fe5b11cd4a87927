package world

import "fmt"

// BlockSize enumerates the block footprints players may place.
type BlockSize string

const (
	BlockSize1x1 BlockSize = "1x1"
	BlockSize1x2 BlockSize = "1x2"
)

// Placement failure codes surfaced to request handlers.
const (
	PlaceRejectBadRequest = "bad_request"
	PlaceRejectOccupied   = "occupied"
	PlaceRejectDetached   = "detached"
	PlaceRejectFull       = "world_full"
)

// PlacementRequest describes one block-placement attempt.
type PlacementRequest struct {
	AnchorX  int       `json:"anchorX"`
	AnchorZ  int       `json:"anchorZ"`
	Size     BlockSize `json:"size"`
	Rotation int       `json:"rotation"`
	ActorID  string    `json:"actorId"`
}

// targetCells expands the request footprint into concrete coordinates. A
// 1x2 block extends east at rotation 0 and north at rotation 1.
func (req PlacementRequest) targetCells() ([]CellCoord, error) {
	anchor := CellCoord{X: req.AnchorX, Z: req.AnchorZ}
	switch req.Size {
	case BlockSize1x1:
		return []CellCoord{anchor}, nil
	case BlockSize1x2:
		switch req.Rotation {
		case 0:
			return []CellCoord{anchor, {X: req.AnchorX + 1, Z: req.AnchorZ}}, nil
		case 1:
			return []CellCoord{anchor, {X: req.AnchorX, Z: req.AnchorZ + 1}}, nil
		default:
			return nil, fmt.Errorf("rotation %d not in {0,1}", req.Rotation)
		}
	default:
		return nil, fmt.Errorf("unknown block size %q", req.Size)
	}
}

// PlacementResult reports the outcome of PlaceBlock. On success it carries
// the newly occupied cells, the regenerated doorway list, and the new
// version; on failure nothing was mutated.
type PlacementResult struct {
	OK       bool      `json:"ok"`
	Code     string    `json:"code,omitempty"`
	Message  string    `json:"message,omitempty"`
	Cells    []Cell    `json:"cells,omitempty"`
	Doorways []Doorway `json:"doorways,omitempty"`
	Version  uint64    `json:"version"`
}

func placeReject(code, message string, version uint64) PlacementResult {
	return PlacementResult{Code: code, Message: message, Version: version}
}

// PlaceBlock validates and applies one block placement atomically. The
// validation order is fixed: footprint shape, occupancy, then adjacency to
// the existing grid. Every cell of an accepted block shares one fresh
// mergeGroup, so multi-cell blocks have no internal walls.
func (t *Topology) PlaceBlock(req PlacementRequest) PlacementResult {
	targets, err := req.targetCells()
	if err != nil {
		return placeReject(PlaceRejectBadRequest, err.Error(), t.version)
	}

	if len(t.cells)+len(targets) > t.config.MaxCells {
		return placeReject(PlaceRejectFull, "cell budget exhausted", t.version)
	}

	for _, coord := range targets {
		if t.Occupied(coord) {
			return placeReject(PlaceRejectOccupied,
				fmt.Sprintf("cell (%d,%d) already occupied", coord.X, coord.Z), t.version)
		}
	}

	adjacent := false
	for _, coord := range targets {
		for _, dir := range WallDirs {
			if t.Occupied(coord.Neighbor(dir)) {
				adjacent = true
				break
			}
		}
		if adjacent {
			break
		}
	}
	if !adjacent {
		return placeReject(PlaceRejectDetached, "block must touch an existing cell", t.version)
	}

	group := t.nextMergeGroup
	t.nextMergeGroup++
	stamp := t.now()

	placed := make([]Cell, 0, len(targets))
	for _, coord := range targets {
		cell := &Cell{
			Coord:      coord,
			Kind:       CellKindRoom,
			MergeGroup: group,
			AddedBy:    req.ActorID,
			AddedAt:    stamp,
		}
		t.cells[coord.Key()] = cell
		placed = append(placed, *cell)
	}

	t.regenerateDoorways()
	t.version++

	doorways := make([]Doorway, len(t.doorways))
	copy(doorways, t.doorways)

	return PlacementResult{
		OK:       true,
		Cells:    placed,
		Doorways: doorways,
		Version:  t.version,
	}
}
