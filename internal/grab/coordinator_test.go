package grab

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giantgrab/server/internal/state"
)

func newTestCoordinator() (*Coordinator, *state.Registry) {
	registry := state.NewRegistry()
	return NewCoordinator(registry), registry
}

func addAvatar(registry *state.Registry, id string, pos mgl64.Vec3) *state.AvatarState {
	return registry.AddAvatar(&state.AvatarState{ID: id, Pos: pos, Grounded: true, Mode: state.ModeActive})
}

func addActor(registry *state.Registry, id string) *state.ActorState {
	return registry.AddActor(&state.ActorState{ID: id})
}

func TestAttemptGrabPicksNearestAvatarWithinRadius(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	addAvatar(registry, "player-1", mgl64.Vec3{0.9, 0, 0})
	addAvatar(registry, "player-2", mgl64.Vec3{0.5, 0, 0})
	addAvatar(registry, "player-3", mgl64.Vec3{5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	result := coord.AttemptGrab("vr-1", state.HandRight, &hand)

	require.True(t, result.OK, "grab rejected: %s", result.Code)
	assert.Equal(t, "player-2", result.AvatarID)

	rel, ok := coord.Holding("vr-1")
	require.True(t, ok)
	assert.Equal(t, state.HandRight, rel.Hand)
}

func TestAttemptGrabTieBreaksOnLowestAvatarID(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	addAvatar(registry, "player-2", mgl64.Vec3{0.5, 0, 0})
	addAvatar(registry, "player-1", mgl64.Vec3{-0.5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	result := coord.AttemptGrab("vr-1", state.HandLeft, &hand)

	require.True(t, result.OK)
	assert.Equal(t, "player-1", result.AvatarID)
}

func TestAttemptGrabOnHeldAvatarFailsWithoutMutation(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	addActor(registry, "vr-2")
	addAvatar(registry, "player-1", mgl64.Vec3{0.5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, &hand).OK)

	result := coord.AttemptGrab("vr-2", state.HandRight, &hand)
	assert.False(t, result.OK)
	assert.Equal(t, GrabRejectNoTarget, result.Code)

	holder, ok := coord.HeldBy("player-1")
	require.True(t, ok)
	assert.Equal(t, "vr-1", holder, "relation must remain with the first holder")
	_, holding := coord.Holding("vr-2")
	assert.False(t, holding)
}

func TestAttemptGrabPreconditions(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	addAvatar(registry, "player-1", mgl64.Vec3{0.5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}

	assert.Equal(t, GrabRejectUnknownActor, coord.AttemptGrab("ghost", state.HandRight, &hand).Code)
	// PC avatars never appear in the actor table.
	assert.Equal(t, GrabRejectUnknownActor, coord.AttemptGrab("player-1", state.HandRight, &hand).Code)

	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, &hand).OK)
	assert.Equal(t, GrabRejectAlreadyHolding, coord.AttemptGrab("vr-1", state.HandLeft, &hand).Code)
}

func TestAttemptGrabFallsBackToStoredPose(t *testing.T) {
	coord, registry := newTestCoordinator()
	actor := addActor(registry, "vr-1")
	addAvatar(registry, "player-1", mgl64.Vec3{10, 0, 10})

	// No immediate position and no stored pose.
	result := coord.AttemptGrab("vr-1", state.HandLeft, nil)
	assert.Equal(t, GrabRejectNoHandPose, result.Code)

	actor.SetPose(state.HandLeft, state.HandPose{Position: mgl64.Vec3{10.4, 0, 10}})
	result = coord.AttemptGrab("vr-1", state.HandLeft, nil)
	require.True(t, result.OK)
	assert.Equal(t, "player-1", result.AvatarID)
}

func TestAttemptGrabOutOfRadiusFindsNoTarget(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	addAvatar(registry, "player-1", mgl64.Vec3{GrabRadius + 0.1, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	result := coord.AttemptGrab("vr-1", state.HandRight, &hand)
	assert.Equal(t, GrabRejectNoTarget, result.Code)
}

func TestReleaseGrabClampsThrowSpeed(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	avatar := addAvatar(registry, "player-1", mgl64.Vec3{0.5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, &hand).OK)

	velocity := mgl64.Vec3{100, 50, 0}
	result := coord.ReleaseGrab("vr-1", &velocity)
	require.True(t, result.OK)
	assert.Equal(t, "player-1", result.AvatarID)

	speed := avatar.Vel.Len()
	assert.InDelta(t, MaxThrowSpeed, speed, 1e-9, "throw speed must clamp to the maximum")
	// Direction preserved.
	want := velocity.Normalize()
	got := avatar.Vel.Normalize()
	assert.InDelta(t, want[0], got[0], 1e-9)
	assert.InDelta(t, want[1], got[1], 1e-9)
	assert.False(t, avatar.Grounded, "thrown avatar must fall under gravity")

	_, held := coord.HeldBy("player-1")
	assert.False(t, held)
}

func TestReleaseGrabScalesModestThrows(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	avatar := addAvatar(registry, "player-1", mgl64.Vec3{0.5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, &hand).OK)

	velocity := mgl64.Vec3{2, 1, 0}
	require.True(t, coord.ReleaseGrab("vr-1", &velocity).OK)

	want := velocity.Mul(ThrowMultiplier)
	assert.True(t, math.Abs(avatar.Vel.Len()-want.Len()) < 1e-9,
		"modest throw should scale by the multiplier without clamping")
}

func TestReleaseGrabWithoutVelocityDropsGently(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	avatar := addAvatar(registry, "player-1", mgl64.Vec3{0.5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, &hand).OK)

	avatar.Vel = mgl64.Vec3{}
	require.True(t, coord.ReleaseGrab("vr-1", nil).OK)
	assert.Equal(t, mgl64.Vec3{}, avatar.Vel)
}

func TestReleaseGrabWhenNotHolding(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")

	result := coord.ReleaseGrab("vr-1", nil)
	assert.False(t, result.OK)
	assert.Equal(t, ReleaseRejectNotHolding, result.Code)
}

func TestUpdateCarriedSmoothsTowardHand(t *testing.T) {
	coord, registry := newTestCoordinator()
	actor := addActor(registry, "vr-1")
	avatar := addAvatar(registry, "player-1", mgl64.Vec3{0, 0, 0})
	actor.SetPose(state.HandRight, state.HandPose{Position: mgl64.Vec3{0.5, 0, 0}})

	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, nil).OK)

	target := mgl64.Vec3{2, 1, 0}
	actor.SetPose(state.HandRight, state.HandPose{Position: target})
	avatar.Vel = mgl64.Vec3{1, 1, 1}

	coord.UpdateCarried()

	want := target.Mul(CarrySmoothing) // from the origin
	assert.InDelta(t, want[0], avatar.Pos[0], 1e-9)
	assert.InDelta(t, want[1], avatar.Pos[1], 1e-9)
	assert.Equal(t, mgl64.Vec3{}, avatar.Vel, "carried avatar velocity must be zeroed")
	assert.False(t, avatar.Grounded)

	// A second tick keeps easing toward the target without overshooting.
	coord.UpdateCarried()
	assert.Less(t, avatar.Pos.Sub(target).Len(), target.Mul(1-CarrySmoothing).Len())
}

func TestUpdateCarriedPrefersPinchPoint(t *testing.T) {
	coord, registry := newTestCoordinator()
	actor := addActor(registry, "vr-1")
	avatar := addAvatar(registry, "player-1", mgl64.Vec3{0, 0, 0})

	pinch := mgl64.Vec3{1, 2, 3}
	actor.SetPose(state.HandLeft, state.HandPose{Position: mgl64.Vec3{0.5, 0, 0}, Pinch: &pinch})
	require.True(t, coord.AttemptGrab("vr-1", state.HandLeft, nil).OK)

	coord.UpdateCarried()

	want := pinch.Mul(CarrySmoothing)
	assert.InDelta(t, want[2], avatar.Pos[2], 1e-9)
}

func TestUpdateCarriedSkipsUnresolvableTargets(t *testing.T) {
	coord, registry := newTestCoordinator()
	actor := addActor(registry, "vr-1")
	avatar := addAvatar(registry, "player-1", mgl64.Vec3{0.5, 0.5, 0.5})

	hand := mgl64.Vec3{0.5, 0.5, 0.5}
	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, &hand).OK)

	// The grab used an immediate position; no pose was ever stored for the
	// hand, so this tick has no target. The avatar must not move.
	before := avatar.Pos
	coord.UpdateCarried()
	assert.Equal(t, before, avatar.Pos)

	// Once a pose arrives, carrying resumes.
	actor.SetPose(state.HandRight, state.HandPose{Position: mgl64.Vec3{1, 1, 1}})
	coord.UpdateCarried()
	assert.NotEqual(t, before, avatar.Pos)
}

func TestReleaseHeldDropsRelationForDisconnectedAvatar(t *testing.T) {
	coord, registry := newTestCoordinator()
	addActor(registry, "vr-1")
	addAvatar(registry, "player-1", mgl64.Vec3{0.5, 0, 0})

	hand := mgl64.Vec3{0, 0, 0}
	require.True(t, coord.AttemptGrab("vr-1", state.HandRight, &hand).OK)

	holder, ok := coord.ReleaseHeld("player-1")
	require.True(t, ok)
	assert.Equal(t, "vr-1", holder)
	_, holding := coord.Holding("vr-1")
	assert.False(t, holding)
}
