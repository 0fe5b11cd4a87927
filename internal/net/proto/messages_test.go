package proto

import (
	"encoding/json"
	"testing"

	"giantgrab/server/internal/sim"
	"giantgrab/server/internal/state"
	"giantgrab/server/internal/world"
)

func TestDecodeClientMessageVersioning(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"input","forward":true}`))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if msg.Ver != Version {
		t.Fatalf("expected default version %d, got %d", Version, msg.Ver)
	}

	if _, err := DecodeClientMessage([]byte(`{"ver":99,"type":"input"}`)); err == nil {
		t.Fatalf("expected version mismatch error")
	}
	if _, err := DecodeClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestClientCommandMapping(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantType sim.CommandType
	}{
		{"input", `{"type":"input","forward":true,"jump":true,"yaw":1.5}`, true, sim.CommandInput},
		{"hand pose", `{"type":"handPose","hand":"left","position":[1,2,3]}`, true, sim.CommandHandPose},
		{"hand pose missing position", `{"type":"handPose","hand":"left"}`, false, ""},
		{"hand pose bad hand", `{"type":"handPose","hand":"tail","position":[1,2,3]}`, false, ""},
		{"place block", `{"type":"placeBlock","anchorX":2,"anchorZ":0,"size":"1x2","rotation":1}`, true, sim.CommandPlaceBlock},
		{"place block bad size", `{"type":"placeBlock","size":"3x3"}`, false, ""},
		{"grab", `{"type":"grab","hand":"right"}`, true, sim.CommandGrab},
		{"grab bad hand", `{"type":"grab","hand":""}`, false, ""},
		{"release", `{"type":"release","velocity":[3,1,0]}`, true, sim.CommandRelease},
		{"reset", `{"type":"reset"}`, true, sim.CommandReset},
		{"unknown", `{"type":"emote"}`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeClientMessage([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			cmd, ok := ClientCommand(msg)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.wantOK, ok, cmd)
			}
			if ok && cmd.Type != tt.wantType {
				t.Fatalf("expected type %s, got %s", tt.wantType, cmd.Type)
			}
		})
	}
}

func TestClientCommandInputPayload(t *testing.T) {
	msg, _ := DecodeClientMessage([]byte(`{"type":"input","forward":true,"left":true,"jump":true,"yaw":0.5}`))
	cmd, ok := ClientCommand(msg)
	if !ok || cmd.Input == nil {
		t.Fatalf("expected input command, got %+v", cmd)
	}
	want := state.InputState{Forward: true, Left: true, Jump: true}
	if cmd.Input.Input != want {
		t.Fatalf("expected input %+v, got %+v", want, cmd.Input.Input)
	}
	if cmd.Input.Yaw != 0.5 {
		t.Fatalf("expected yaw 0.5, got %f", cmd.Input.Yaw)
	}
}

func TestClientCommandHandPosePayload(t *testing.T) {
	msg, _ := DecodeClientMessage([]byte(`{"type":"handPose","hand":"left","position":[1,2,3],"pinch":[1.1,2.1,3.1]}`))
	cmd, ok := ClientCommand(msg)
	if !ok || cmd.HandPose == nil {
		t.Fatalf("expected hand pose command, got %+v", cmd)
	}
	if cmd.HandPose.Hand != state.HandLeft {
		t.Fatalf("expected left hand, got %s", cmd.HandPose.Hand)
	}
	if cmd.HandPose.Position[1] != 2 {
		t.Fatalf("unexpected position %+v", cmd.HandPose.Position)
	}
	if cmd.HandPose.Pinch == nil || cmd.HandPose.Pinch[0] != 1.1 {
		t.Fatalf("unexpected pinch %+v", cmd.HandPose.Pinch)
	}
}

func TestEncodeCommandAckRoundTrip(t *testing.T) {
	payload, err := EncodeCommandAck(CommandAck{Seq: 7, Tick: 42})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "commandAck" || decoded["seq"] != float64(7) {
		t.Fatalf("unexpected ack payload: %v", decoded)
	}
}

func TestEncodeStateMessageSetsEnvelope(t *testing.T) {
	payload, err := EncodeStateMessageV1(StateMessageV1{Tick: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != TypeState || decoded["ver"] != float64(Version) {
		t.Fatalf("unexpected envelope: %v", decoded)
	}
}

func TestEncodeTopologyMessage(t *testing.T) {
	topo := world.New(world.Config{})
	payload, err := EncodeTopologyMessageV1(TopologyMessageV1{Topology: topo.SnapshotState()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded struct {
		Type     string `json:"type"`
		Topology struct {
			Grid []json.RawMessage `json:"grid"`
		} `json:"topology"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != TypeTopology {
		t.Fatalf("unexpected type %q", decoded.Type)
	}
	if len(decoded.Topology.Grid) != 9 {
		t.Fatalf("expected 9 spawn cells, got %d", len(decoded.Topology.Grid))
	}
}

func TestSchemaDocumentCoversAllPayloads(t *testing.T) {
	raw, err := SchemaDocument()
	if err != nil {
		t.Fatalf("schema document: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for name := range schemaTargets {
		if _, ok := decoded[name]; !ok {
			t.Fatalf("schema document missing %s", name)
		}
	}
}
