package proto

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"giantgrab/server/internal/sim"
	"giantgrab/server/internal/state"
	"giantgrab/server/internal/world"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for outbound websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeState         = "state"
	typeTopology      = "topology"
)

// Client message type identifiers.
const (
	TypeInput      = "input"
	TypeHandPose   = "handPose"
	TypePlaceBlock = "placeBlock"
	TypeGrab       = "grab"
	TypeRelease    = "release"
	TypeHeartbeat  = "heartbeat"
	TypeReset      = "reset"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeState    = typeState
	TypeTopology = typeTopology
)

// ClientMessage captures an inbound websocket message. The layout is flat;
// each message type reads the fields it cares about.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type" jsonschema:"required"`
	Seq  uint64 `json:"seq,omitempty"`

	// input
	Forward  bool    `json:"forward,omitempty"`
	Backward bool    `json:"backward,omitempty"`
	Left     bool    `json:"left,omitempty"`
	Right    bool    `json:"right,omitempty"`
	Jump     bool    `json:"jump,omitempty"`
	Yaw      float64 `json:"yaw,omitempty"`
	// Optional client-side position sample validated against the
	// authoritative state before the command is accepted.
	Reported *[3]float64 `json:"reported,omitempty"`

	// handPose / grab
	Hand     string      `json:"hand,omitempty"`
	Position *[3]float64 `json:"position,omitempty"`
	Pinch    *[3]float64 `json:"pinch,omitempty"`

	// placeBlock
	AnchorX  int    `json:"anchorX,omitempty"`
	AnchorZ  int    `json:"anchorZ,omitempty"`
	Size     string `json:"size,omitempty"`
	Rotation int    `json:"rotation,omitempty"`

	// release
	Velocity *[3]float64 `json:"velocity,omitempty"`

	// heartbeat
	SentAt int64 `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured
// message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand maps a websocket message onto a simulation command. Origin
// metadata is populated by the intake layer when the command is accepted.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeInput:
		return sim.Command{
			Type: sim.CommandInput,
			Input: &sim.InputCommand{
				Input: state.InputState{
					Forward:  msg.Forward,
					Backward: msg.Backward,
					Left:     msg.Left,
					Right:    msg.Right,
					Jump:     msg.Jump,
				},
				Yaw: msg.Yaw,
			},
		}, true
	case TypeHandPose:
		hand, ok := state.ParseHand(msg.Hand)
		if !ok || msg.Position == nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandHandPose,
			HandPose: &sim.HandPoseCommand{
				Hand:     hand,
				Position: mgl64.Vec3(*msg.Position),
				Pinch:    toVec(msg.Pinch),
			},
		}, true
	case TypePlaceBlock:
		size := world.BlockSize(msg.Size)
		if size != world.BlockSize1x1 && size != world.BlockSize1x2 {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandPlaceBlock,
			Place: &sim.PlaceBlockCommand{
				AnchorX:  msg.AnchorX,
				AnchorZ:  msg.AnchorZ,
				Size:     size,
				Rotation: msg.Rotation,
			},
		}, true
	case TypeGrab:
		hand, ok := state.ParseHand(msg.Hand)
		if !ok {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandGrab,
			Grab: &sim.GrabCommand{
				Hand:         hand,
				HandPosition: toVec(msg.Position),
			},
		}, true
	case TypeRelease:
		return sim.Command{
			Type:    sim.CommandRelease,
			Release: &sim.ReleaseCommand{Velocity: toVec(msg.Velocity)},
		}, true
	case TypeReset:
		return sim.Command{Type: sim.CommandReset}, true
	default:
		return sim.Command{}, false
	}
}

func toVec(raw *[3]float64) *mgl64.Vec3 {
	if raw == nil {
		return nil
	}
	v := mgl64.Vec3(*raw)
	return &v
}

// CommandAck describes an acknowledgement of a processed command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
		Tick: msg.Tick,
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
		Tick:   msg.Tick,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime,omitempty"`
		RTT        int64  `json:"rtt,omitempty"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTT:        msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// StateMessageV1 is the per-tick broadcast payload. Clients watching the
// topology version request a full topology snapshot when it changes.
type StateMessageV1 struct {
	Ver             int              `json:"ver"`
	Type            string           `json:"type"`
	Tick            uint64           `json:"t"`
	ServerTime      int64            `json:"serverTime"`
	Avatars         []sim.AvatarView `json:"avatars"`
	Actors          []sim.ActorView  `json:"actors"`
	TopologyVersion uint64           `json:"topologyVersion"`
}

// EncodeStateMessageV1 renders a versioned state payload.
func EncodeStateMessageV1(msg StateMessageV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = typeState
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// TopologyMessageV1 carries the full grid snapshot, sent on join and on
// version changes.
type TopologyMessageV1 struct {
	Ver      int                    `json:"ver"`
	Type     string                 `json:"type"`
	Topology world.TopologySnapshot `json:"topology"`
}

// EncodeTopologyMessageV1 renders a versioned topology payload.
func EncodeTopologyMessageV1(msg TopologyMessageV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = typeTopology
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// JoinResponseV1 is the HTTP join payload: identity, session token, spawn
// placement, and the initial world view.
type JoinResponseV1 struct {
	Ver      int                    `json:"ver"`
	ID       string                 `json:"id"`
	Token    string                 `json:"token"`
	Kind     string                 `json:"kind"`
	Spawn    [3]float64             `json:"spawn"`
	TickRate int                    `json:"tickRate"`
	Avatars  []sim.AvatarView       `json:"avatars"`
	Actors   []sim.ActorView        `json:"actors"`
	Topology world.TopologySnapshot `json:"topology"`
}

// EncodeJoinResponseV1 renders a versioned join response payload.
func EncodeJoinResponseV1(msg JoinResponseV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}
