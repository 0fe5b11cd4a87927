package gameplay

import (
	"context"

	"giantgrab/server/logging"
)

const (
	// EventAvatarGrabbed is emitted when a giant picks up an avatar.
	EventAvatarGrabbed logging.EventType = "gameplay.avatar_grabbed"
	// EventAvatarReleased is emitted when a held avatar is let go gently.
	EventAvatarReleased logging.EventType = "gameplay.avatar_released"
	// EventAvatarThrown is emitted when a release carries a throw velocity.
	EventAvatarThrown logging.EventType = "gameplay.avatar_thrown"
	// EventBlockPlaced is emitted after a successful block placement.
	EventBlockPlaced logging.EventType = "topology.block_placed"
	// EventWorldReset is emitted when the grid is cleared back to spawn.
	EventWorldReset logging.EventType = "topology.world_reset"
)

// GrabPayload captures which hand grabbed which avatar.
type GrabPayload struct {
	Hand     string `json:"hand"`
	AvatarID string `json:"avatarId"`
}

// ThrowPayload captures the scaled release velocity.
type ThrowPayload struct {
	AvatarID string  `json:"avatarId"`
	SpeedX   float64 `json:"speedX"`
	SpeedY   float64 `json:"speedY"`
	SpeedZ   float64 `json:"speedZ"`
}

// PlacementPayload captures a successful placement footprint.
type PlacementPayload struct {
	AnchorX  int    `json:"anchorX"`
	AnchorZ  int    `json:"anchorZ"`
	Size     string `json:"size"`
	Rotation int    `json:"rotation"`
	Cells    int    `json:"cells"`
	Version  uint64 `json:"version"`
}

// ResetPayload captures the post-reset topology version.
type ResetPayload struct {
	Version uint64 `json:"version"`
}

func AvatarGrabbed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload GrabPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventAvatarGrabbed,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: payload.AvatarID, Kind: logging.EntityKindAvatar}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

func AvatarReleased(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, avatarID string) {
	publish(ctx, pub, logging.Event{
		Type:     EventAvatarReleased,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: avatarID, Kind: logging.EntityKindAvatar}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
	})
}

func AvatarThrown(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ThrowPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventAvatarThrown,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: payload.AvatarID, Kind: logging.EntityKindAvatar}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

func BlockPlaced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlacementPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventBlockPlaced,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryTopology,
		Payload:  payload,
	})
}

func WorldReset(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ResetPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventWorldReset,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryTopology,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}
