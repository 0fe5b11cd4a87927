package state

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ParticipantKind distinguishes physically simulated PC avatars from VR
// actors, which drive the simulation through their hand poses instead.
type ParticipantKind string

const (
	KindPC ParticipantKind = "pc"
	KindVR ParticipantKind = "vr"
)

// ParseKind validates a participant kind received from a client.
func ParseKind(value string) (ParticipantKind, bool) {
	switch ParticipantKind(value) {
	case KindPC, KindVR:
		return ParticipantKind(value), true
	default:
		return "", false
	}
}

// PlayerMode selects which physics path an avatar takes each tick.
type PlayerMode string

const (
	// ModeActive avatars move through the built world with wall collision.
	ModeActive PlayerMode = "active"
	// ModeWaiting avatars sit in the holding area and are only clamped to
	// its rectangle; no wall queries run for them.
	ModeWaiting PlayerMode = "waiting"
)

// Hand names one of a VR actor's two tracked hands.
type Hand string

const (
	HandLeft  Hand = "left"
	HandRight Hand = "right"
)

// ParseHand validates a hand identifier received from a client.
func ParseHand(value string) (Hand, bool) {
	switch Hand(value) {
	case HandLeft, HandRight:
		return Hand(value), true
	default:
		return "", false
	}
}

// InputState is the per-tick input snapshot attached to an avatar before
// the tick runs. Jump is edge-triggered: physics consumes and clears it.
type InputState struct {
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Jump     bool `json:"jump"`
}

// AvatarState is the mutable simulation state of one PC avatar. Position,
// velocity, and the grounded flag are mutated in place by the physics
// step; the grab coordinator overrides them for held avatars afterwards.
type AvatarState struct {
	ID       string
	Pos      mgl64.Vec3
	Vel      mgl64.Vec3
	Grounded bool
	Yaw      float64
	Input    InputState
	Mode     PlayerMode
}

// HandPose is the last tracked pose of one VR hand. Pinch is the optional
// pinch-point position preferred as a carry target when present.
type HandPose struct {
	Position  mgl64.Vec3
	Pinch     *mgl64.Vec3
	UpdatedAt time.Time
}

// ActorState is the registry view of one VR actor. The core never
// simulates VR actors; it only reads their hand poses.
type ActorState struct {
	ID    string
	Hands map[Hand]HandPose
}

// Pose returns the stored pose for the hand, if one has been reported.
func (a *ActorState) Pose(hand Hand) (HandPose, bool) {
	if a == nil || a.Hands == nil {
		return HandPose{}, false
	}
	pose, ok := a.Hands[hand]
	return pose, ok
}

// SetPose stores the latest tracked pose for the hand.
func (a *ActorState) SetPose(hand Hand, pose HandPose) {
	if a.Hands == nil {
		a.Hands = make(map[Hand]HandPose, 2)
	}
	a.Hands[hand] = pose
}
