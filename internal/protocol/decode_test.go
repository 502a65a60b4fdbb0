package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEventDecodeVariants(t *testing.T) {
	raw := `{
		"session_id": "sess_x",
		"events": [
			{"timestamp": "120000", "type": "player_speak", "payload": {"text": "build a wall", "image": {"url": "http://x/img.png"}}},
			{"timestamp": "120001", "type": "player_build", "payload": {"voxel_instance": {"voxel_id": "3", "voxel_name": "stone", "position": {"x": 1, "y": 2, "z": 3}}}},
			{"timestamp": "120002", "type": "voxel_type_created", "payload": {"voxel_type": {"id": "9", "name": "lava"}}}
		]
	}`

	var batch EventBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(batch.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(batch.Events))
	}

	speak, ok := batch.Events[0].Payload.(PlayerSpeakPayload)
	if !ok {
		t.Fatalf("payload 0 has type %T", batch.Events[0].Payload)
	}
	if speak.Text != "build a wall" || speak.Image == nil || speak.Image.URL != "http://x/img.png" {
		t.Fatalf("unexpected speak payload: %+v", speak)
	}

	build, ok := batch.Events[1].Payload.(PlayerBuildPayload)
	if !ok {
		t.Fatalf("payload 1 has type %T", batch.Events[1].Payload)
	}
	if build.VoxelInstance.Position != (Position{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("unexpected position: %+v", build.VoxelInstance.Position)
	}

	created, ok := batch.Events[2].Payload.(VoxelTypeCreatedPayload)
	if !ok || created.VoxelType.Name != "lava" {
		t.Fatalf("unexpected created payload: %+v", batch.Events[2].Payload)
	}
}

func TestEventDecodeUnknownType(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"type": "player_dance", "payload": {}}`), &ev)
	if err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestCommandDecodeVariants(t *testing.T) {
	raw := `{"id": "cmd_1", "type": "place_block", "params": {"direction": "front", "distance": 2, "count": 4, "voxel_name": "stone"}}`
	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		t.Fatalf("decode command: %v", err)
	}
	p, ok := cmd.Params.(PlaceBlockParams)
	if !ok {
		t.Fatalf("params have type %T", cmd.Params)
	}
	if p.Direction != DirectionFront || p.Count != 4 || p.VoxelName != "stone" {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestDecodeParamsRejectsUnknownType(t *testing.T) {
	_, err := DecodeParams("teleport", json.RawMessage(`{}`))
	if err == nil {
		t.Fatalf("expected error for unknown command type")
	}
	_, err = DecodeParams(ActionMoveTo, nil)
	if err == nil {
		t.Fatalf("expected error for missing params")
	}
}

func TestWorldTimeDefault(t *testing.T) {
	var snap *WorldSnapshot
	if got := snap.WorldTime(); got != "000000" {
		t.Fatalf("nil snapshot world time = %q, want 000000", got)
	}
	if got := (&WorldSnapshot{Timestamp: "133700"}).WorldTime(); got != "133700" {
		t.Fatalf("world time = %q, want 133700", got)
	}
}

func TestParseClientFrame(t *testing.T) {
	frame, err := ParseClientFrame([]byte(`{"type": "event_batch", "batch": {"session_id": "sess_x", "events": []}}`))
	if err != nil {
		t.Fatalf("parse event_batch frame: %v", err)
	}
	eb, ok := frame.(EventBatchFrame)
	if !ok || eb.Batch.SessionID != "sess_x" {
		t.Fatalf("unexpected frame: %#v", frame)
	}

	frame, err = ParseClientFrame([]byte(`{"type": "approval", "approval": {"session_id": "sess_x", "goal_id": "goal_a_001"}}`))
	if err != nil {
		t.Fatalf("parse approval frame: %v", err)
	}
	if _, ok := frame.(ApprovalFrame); !ok {
		t.Fatalf("unexpected frame: %#v", frame)
	}

	_, err = ParseClientFrame([]byte(`{"type": "command_batch"}`))
	if !errors.Is(err, ErrUnsupportedFrame) {
		t.Fatalf("server-to-client frame accepted inbound: %v", err)
	}
}
