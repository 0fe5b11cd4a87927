package proto_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"giantgrab/server/internal/net/proto"
	"giantgrab/server/internal/sim"
	"giantgrab/server/internal/world"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path := filepath.Join("..", "..", "..", "schemas", name)
	schema, err := jsonschema.Compile(path)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return schema
}

func validateBytes(t *testing.T, schema *jsonschema.Schema, payload []byte) {
	t.Helper()
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := schema.Validate(decoded); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestWirePayloadsMatchSchemas(t *testing.T) {
	engine := sim.NewEngine(sim.EngineConfig{TickRate: 30}, sim.Deps{})
	engine.AddActor("vr-1")
	engine.AddAvatar("pc-1")
	engine.Step()
	snapshot := engine.Snapshot()

	t.Run("state", func(t *testing.T) {
		schema := compileSchema(t, "state.schema.json")
		payload, err := proto.EncodeStateMessageV1(proto.StateMessageV1{
			Tick:            snapshot.Tick,
			ServerTime:      1700000000000,
			Avatars:         snapshot.Avatars,
			Actors:          snapshot.Actors,
			TopologyVersion: snapshot.TopologyVersion,
		})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		validateBytes(t, schema, payload)
	})

	t.Run("topology", func(t *testing.T) {
		schema := compileSchema(t, "topology.schema.json")
		topo := world.New(world.Config{})
		topo.PlaceBlock(world.PlacementRequest{AnchorX: 2, AnchorZ: 0, Size: world.BlockSize1x2, ActorID: "vr-1"})
		payload, err := proto.EncodeTopologyMessageV1(proto.TopologyMessageV1{Topology: topo.SnapshotState()})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		validateBytes(t, schema, payload)
	})

	t.Run("join response", func(t *testing.T) {
		schema := compileSchema(t, "join_response.schema.json")
		payload, err := proto.EncodeJoinResponseV1(proto.JoinResponseV1{
			ID:       "pc-1",
			Token:    "4f2c9a37-9c30-4c2f-9c81-0b0f7a1f1a11",
			Kind:     "pc",
			Spawn:    [3]float64{-2, 0, -2},
			TickRate: 30,
			Avatars:  snapshot.Avatars,
			Actors:   snapshot.Actors,
			Topology: engine.TopologySnapshot(),
		})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		validateBytes(t, schema, payload)
	})

	t.Run("command ack", func(t *testing.T) {
		schema := compileSchema(t, "command_ack.schema.json")
		payload, err := proto.EncodeCommandAck(proto.CommandAck{Seq: 3, Tick: 9})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		validateBytes(t, schema, payload)
	})

	t.Run("command reject", func(t *testing.T) {
		schema := compileSchema(t, "command_reject.schema.json")
		payload, err := proto.EncodeCommandReject(proto.CommandReject{Seq: 4, Reason: "occupied"})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		validateBytes(t, schema, payload)
	})

	t.Run("client messages", func(t *testing.T) {
		schema := compileSchema(t, "client_message.schema.json")
		samples := []string{
			`{"ver":1,"type":"input","forward":true,"jump":true,"yaw":1.25}`,
			`{"ver":1,"type":"handPose","hand":"left","position":[0.2,1.4,-0.3],"pinch":[0.25,1.38,-0.31]}`,
			`{"ver":1,"type":"placeBlock","anchorX":2,"anchorZ":0,"size":"1x2","rotation":1,"seq":10}`,
			`{"ver":1,"type":"grab","hand":"right","position":[1,1,1]}`,
			`{"ver":1,"type":"release","velocity":[3,1,0]}`,
			`{"ver":1,"type":"heartbeat","sentAt":1700000000000}`,
		}
		for _, sample := range samples {
			validateBytes(t, schema, []byte(sample))
		}
	})
}
