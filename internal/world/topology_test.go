package world

import (
	"reflect"
	"testing"
)

func newTestTopology() *Topology {
	return New(Config{SpawnExtent: 1})
}

func TestSpawnRegionHasNoInternalDoorways(t *testing.T) {
	topo := newTestTopology()

	if got := topo.CellCount(); got != 9 {
		t.Fatalf("expected 3x3 spawn grid, got %d cells", got)
	}
	if got := len(topo.Doorways()); got != 0 {
		t.Fatalf("expected zero doorways in spawn region, got %d", got)
	}
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			cell, ok := topo.CellAtCoord(CellCoord{X: x, Z: z})
			if !ok {
				t.Fatalf("missing spawn cell (%d,%d)", x, z)
			}
			if cell.MergeGroup != spawnMergeGroup {
				t.Fatalf("spawn cell (%d,%d) has mergeGroup %d", x, z, cell.MergeGroup)
			}
		}
	}
}

func TestPlaceBlockAdjacentToSpawnCreatesOneDoorway(t *testing.T) {
	topo := newTestTopology()

	result := topo.PlaceBlock(PlacementRequest{
		AnchorX: 2, AnchorZ: 0,
		Size:     BlockSize1x2,
		Rotation: 0,
		ActorID:  "player-1",
	})
	if !result.OK {
		t.Fatalf("placement rejected: %s %s", result.Code, result.Message)
	}
	if len(result.Cells) != 2 {
		t.Fatalf("expected 2 placed cells, got %d", len(result.Cells))
	}
	if result.Cells[0].MergeGroup != result.Cells[1].MergeGroup {
		t.Fatalf("block cells got different mergeGroups: %d vs %d",
			result.Cells[0].MergeGroup, result.Cells[1].MergeGroup)
	}
	if len(result.Doorways) != 1 {
		t.Fatalf("expected exactly one doorway, got %d", len(result.Doorways))
	}

	door := result.Doorways[0]
	// Shared edge between (1,0) and (2,0): x = 2*CellSize, z = 0.5*CellSize.
	wantX := 2.0 * CellSize
	wantZ := 0.5 * CellSize
	if door.Position[0] != wantX || door.Position[2] != wantZ {
		t.Fatalf("doorway at (%v,%v), want (%v,%v)",
			door.Position[0], door.Position[2], wantX, wantZ)
	}
	if door.CellB.Less(door.CellA) {
		t.Fatalf("doorway pair not canonical: %+v before %+v", door.CellA, door.CellB)
	}
}

func TestPlaceBlockIncrementsVersionByOne(t *testing.T) {
	topo := newTestTopology()
	before := topo.Version()

	result := topo.PlaceBlock(PlacementRequest{
		AnchorX: 2, AnchorZ: 0, Size: BlockSize1x1, ActorID: "player-1",
	})
	if !result.OK {
		t.Fatalf("placement rejected: %s", result.Code)
	}
	if result.Version != before+1 {
		t.Fatalf("version went %d -> %d, want +1", before, result.Version)
	}
}

func TestPlaceBlockRejectsOccupiedCells(t *testing.T) {
	topo := newTestTopology()
	assertPlacementNoMutation(t, topo, PlacementRequest{
		AnchorX: 0, AnchorZ: 0, Size: BlockSize1x1, ActorID: "player-1",
	}, PlaceRejectOccupied)
}

func TestPlaceBlockRejectsPartialOverlap(t *testing.T) {
	topo := newTestTopology()
	// Anchor outside spawn, second cell of the 1x2 inside it.
	assertPlacementNoMutation(t, topo, PlacementRequest{
		AnchorX: -2, AnchorZ: 0, Size: BlockSize1x2, Rotation: 0, ActorID: "player-1",
	}, PlaceRejectOccupied)
}

func TestPlaceBlockRejectsDetachedBlocks(t *testing.T) {
	topo := newTestTopology()
	assertPlacementNoMutation(t, topo, PlacementRequest{
		AnchorX: 5, AnchorZ: 5, Size: BlockSize1x1, ActorID: "player-1",
	}, PlaceRejectDetached)
}

func TestPlaceBlockRejectsBadFootprint(t *testing.T) {
	topo := newTestTopology()
	assertPlacementNoMutation(t, topo, PlacementRequest{
		AnchorX: 2, AnchorZ: 0, Size: "2x2", ActorID: "player-1",
	}, PlaceRejectBadRequest)
	assertPlacementNoMutation(t, topo, PlacementRequest{
		AnchorX: 2, AnchorZ: 0, Size: BlockSize1x2, Rotation: 7, ActorID: "player-1",
	}, PlaceRejectBadRequest)
}

// assertPlacementNoMutation verifies a rejected placement is atomic: grid,
// doorways, and version are untouched.
func assertPlacementNoMutation(t *testing.T, topo *Topology, req PlacementRequest, wantCode string) {
	t.Helper()

	cellsBefore := topo.CellCount()
	versionBefore := topo.Version()
	doorwaysBefore := append([]Doorway(nil), topo.Doorways()...)

	result := topo.PlaceBlock(req)
	if result.OK {
		t.Fatalf("expected rejection %q, placement succeeded", wantCode)
	}
	if result.Code != wantCode {
		t.Fatalf("expected code %q, got %q (%s)", wantCode, result.Code, result.Message)
	}
	if topo.CellCount() != cellsBefore {
		t.Fatalf("cell count mutated on rejection: %d -> %d", cellsBefore, topo.CellCount())
	}
	if topo.Version() != versionBefore {
		t.Fatalf("version mutated on rejection: %d -> %d", versionBefore, topo.Version())
	}
	if !reflect.DeepEqual(doorwaysBefore, append([]Doorway(nil), topo.Doorways()...)) {
		t.Fatalf("doorways mutated on rejection")
	}
}

func TestDoorwayRegenerationIsIdempotent(t *testing.T) {
	topo := newTestTopology()
	for i, req := range []PlacementRequest{
		{AnchorX: 2, AnchorZ: 0, Size: BlockSize1x2, Rotation: 0, ActorID: "player-1"},
		{AnchorX: 2, AnchorZ: 1, Size: BlockSize1x1, ActorID: "player-2"},
		{AnchorX: 0, AnchorZ: 2, Size: BlockSize1x2, Rotation: 1, ActorID: "player-1"},
	} {
		if result := topo.PlaceBlock(req); !result.OK {
			t.Fatalf("placement %d rejected: %s", i, result.Code)
		}
	}

	first := append([]Doorway(nil), topo.Doorways()...)
	topo.regenerateDoorways()
	second := topo.Doorways()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("doorway regeneration not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAdjacentBlocksWithDifferentGroupsGetDoorways(t *testing.T) {
	topo := newTestTopology()

	if result := topo.PlaceBlock(PlacementRequest{AnchorX: 2, AnchorZ: 0, Size: BlockSize1x1, ActorID: "a"}); !result.OK {
		t.Fatalf("first placement rejected: %s", result.Code)
	}
	if result := topo.PlaceBlock(PlacementRequest{AnchorX: 3, AnchorZ: 0, Size: BlockSize1x1, ActorID: "b"}); !result.OK {
		t.Fatalf("second placement rejected: %s", result.Code)
	}

	// spawn|block1 and block1|block2 boundaries each carry a doorway.
	if got := len(topo.Doorways()); got != 2 {
		t.Fatalf("expected 2 doorways, got %d", got)
	}
}

func TestResetClearsPlacedBlocksAndBumpsVersion(t *testing.T) {
	topo := newTestTopology()
	if result := topo.PlaceBlock(PlacementRequest{AnchorX: 2, AnchorZ: 0, Size: BlockSize1x1, ActorID: "a"}); !result.OK {
		t.Fatalf("placement rejected: %s", result.Code)
	}

	versionBefore := topo.Version()
	topo.Reset()

	if got := topo.CellCount(); got != 9 {
		t.Fatalf("expected spawn-only grid after reset, got %d cells", got)
	}
	if got := len(topo.Doorways()); got != 0 {
		t.Fatalf("expected no doorways after reset, got %d", got)
	}
	if topo.Version() != versionBefore+1 {
		t.Fatalf("reset version went %d -> %d, want +1", versionBefore, topo.Version())
	}
}

func TestSnapshotStateIsSortedAndCopies(t *testing.T) {
	topo := newTestTopology()
	if result := topo.PlaceBlock(PlacementRequest{AnchorX: 2, AnchorZ: 0, Size: BlockSize1x2, Rotation: 0, ActorID: "player-1"}); !result.OK {
		t.Fatalf("placement rejected: %s", result.Code)
	}

	snap := topo.SnapshotState()
	if len(snap.Grid) != 11 {
		t.Fatalf("expected 11 cells in snapshot, got %d", len(snap.Grid))
	}
	for i := 1; i < len(snap.Grid); i++ {
		prev, cur := snap.Grid[i-1], snap.Grid[i]
		if cur.X < prev.X || (cur.X == prev.X && cur.Z <= prev.Z) {
			t.Fatalf("snapshot grid not strictly sorted at index %d", i)
		}
	}

	want := Bounds{MinX: -1, MaxX: 3, MinZ: -1, MaxZ: 1}
	if snap.Bounds != want {
		t.Fatalf("bounds %+v, want %+v", snap.Bounds, want)
	}
	if snap.Version != topo.Version() {
		t.Fatalf("snapshot version %d, topology version %d", snap.Version, topo.Version())
	}

	// Mutating the snapshot must not leak into the topology.
	if len(snap.Doorways) == 0 {
		t.Fatalf("expected doorways in snapshot")
	}
	snap.Doorways[0].ID = "mutated"
	if topo.Doorways()[0].ID == "mutated" {
		t.Fatalf("snapshot shares doorway backing array with topology")
	}
}

func TestWallAtClassification(t *testing.T) {
	topo := newTestTopology()
	if result := topo.PlaceBlock(PlacementRequest{AnchorX: 2, AnchorZ: 0, Size: BlockSize1x1, ActorID: "a"}); !result.OK {
		t.Fatalf("placement rejected: %s", result.Code)
	}

	// Interior spawn wall: same mergeGroup on both sides.
	if kind, _ := topo.WallAt(CellCoord{X: 0, Z: 0}, WallNorth); kind != WallOpen {
		t.Fatalf("interior spawn wall classified %v, want open", kind)
	}
	// Spawn/room boundary: differing groups, doorway.
	kind, center := topo.WallAt(CellCoord{X: 1, Z: 0}, WallEast)
	if kind != WallDoorway {
		t.Fatalf("spawn/room boundary classified %v, want doorway", kind)
	}
	if center[0] != 2*CellSize || center[2] != 0.5*CellSize {
		t.Fatalf("doorway center (%v,%v), want (%v,%v)", center[0], center[2], 2*CellSize, 0.5*CellSize)
	}
	// Grid boundary: no neighbor.
	if kind, _ := topo.WallAt(CellCoord{X: 2, Z: 0}, WallEast); kind != WallSolid {
		t.Fatalf("grid boundary classified %v, want solid", kind)
	}
	// Unoccupied coordinates own no walls.
	if kind, _ := topo.WallAt(CellCoord{X: 9, Z: 9}, WallNorth); kind != WallOpen {
		t.Fatalf("unoccupied cell classified %v, want open", kind)
	}
}
