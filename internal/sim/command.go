package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"giantgrab/server/internal/state"
	"giantgrab/server/internal/world"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandInput      CommandType = "Input"
	CommandHandPose   CommandType = "HandPose"
	CommandPlaceBlock CommandType = "PlaceBlock"
	CommandGrab       CommandType = "Grab"
	CommandRelease    CommandType = "Release"
	CommandHeartbeat  CommandType = "Heartbeat"
	CommandReset      CommandType = "Reset"
)

// InputCommand carries an avatar's per-tick input snapshot and look-yaw.
type InputCommand struct {
	Input state.InputState `json:"input"`
	Yaw   float64          `json:"yaw"`
}

// HandPoseCommand updates the tracked pose of one VR hand.
type HandPoseCommand struct {
	Hand     state.Hand  `json:"hand"`
	Position mgl64.Vec3  `json:"position"`
	Pinch    *mgl64.Vec3 `json:"pinch,omitempty"`
}

// PlaceBlockCommand requests one grid block placement.
type PlaceBlockCommand struct {
	AnchorX  int             `json:"anchorX"`
	AnchorZ  int             `json:"anchorZ"`
	Size     world.BlockSize `json:"size"`
	Rotation int             `json:"rotation"`
}

// GrabCommand requests a grab with an optional immediate hand position.
type GrabCommand struct {
	Hand         state.Hand  `json:"hand"`
	HandPosition *mgl64.Vec3 `json:"handPosition,omitempty"`
}

// ReleaseCommand requests a release with an optional throw velocity.
type ReleaseCommand struct {
	Velocity *mgl64.Vec3 `json:"velocity,omitempty"`
}

// HeartbeatCommand updates connectivity metadata for a participant. The
// hub consumes heartbeats directly; they never reach the engine.
type HeartbeatCommand struct {
	ReceivedAt time.Time     `json:"receivedAt"`
	ClientSent int64         `json:"clientSent"`
	RTT        time.Duration `json:"rtt"`
}

// Command represents an intent captured for processing on the next tick.
// All external mutation of simulation state travels through commands; the
// engine applies them between physics steps, never concurrently.
type Command struct {
	OriginTick uint64             `json:"originTick"`
	ActorID    string             `json:"actorId"`
	Type       CommandType        `json:"type"`
	IssuedAt   time.Time          `json:"issuedAt"`
	Input      *InputCommand      `json:"input,omitempty"`
	HandPose   *HandPoseCommand   `json:"handPose,omitempty"`
	Place      *PlaceBlockCommand `json:"place,omitempty"`
	Grab       *GrabCommand       `json:"grab,omitempty"`
	Release    *ReleaseCommand    `json:"release,omitempty"`
	Heartbeat  *HeartbeatCommand  `json:"heartbeat,omitempty"`
}
