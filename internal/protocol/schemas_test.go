package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	handshakeSchema := compile("handshake.schema.json")
	inputSchema := compile("input.schema.json")
	terraformSchema := compile("terraform.schema.json")
	snapshotSchema := compile("state_snapshot.schema.json")

	var handshake any
	_ = json.Unmarshal([]byte(`{
	  "type":"HANDSHAKE",
	  "protocol_version":"1.0",
	  "session_token":"tok-1234",
	  "client_name":"tester"
	}`), &handshake)
	validate(handshakeSchema, handshake)

	var input any
	_ = json.Unmarshal([]byte(`{
	  "type":"INPUT",
	  "client_tick":41,
	  "server_tick_ack":39,
	  "sequence_id":7,
	  "movement":[0.0,0.0,1.0],
	  "aim_direction":[0.0,0.0,1.0],
	  "sprint":true,
	  "fire":false
	}`), &input)
	validate(inputSchema, input)

	var terraform any
	_ = json.Unmarshal([]byte(`{
	  "type":"TERRAFORM",
	  "op":"SPHERE_ADD",
	  "center":[0.0,10.0,0.0],
	  "radius":8.0,
	  "material_id":1,
	  "client_sequence_id":3
	}`), &terraform)
	validate(terraformSchema, terraform)

	var snap any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATE_SNAPSHOT",
	  "server_tick":120,
	  "entities":[
	    {"entity_id":1,"entity_type":"PLAYER","position":[0,2,0],"rotation":[0,0,0],"velocity":[0,0,0],"health":100},
	    {"entity_id":2,"entity_type":"NPC","position":[5,0,5],"rotation":[0,1.5,0],"velocity":[0,0,0],"health":50}
	  ],
	  "player_state":{"entity_id":1,"last_input_seq":7}
	}`), &snap)
	validate(snapshotSchema, snap)
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "handshake.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var missingToken any
	_ = json.Unmarshal([]byte(`{"type":"HANDSHAKE","protocol_version":"1.0"}`), &missingToken)
	if err := s.Validate(missingToken); err == nil {
		t.Fatalf("expected missing session_token to fail validation")
	}

	var emptyToken any
	_ = json.Unmarshal([]byte(`{"type":"HANDSHAKE","protocol_version":"1.0","session_token":""}`), &emptyToken)
	if err := s.Validate(emptyToken); err == nil {
		t.Fatalf("expected empty session_token to fail validation")
	}
}
