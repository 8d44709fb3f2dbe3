package protocol

import "encoding/json"

// HANDSHAKE (client -> server). Must be the first message on a connection.
type HandshakeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionToken    string `json:"session_token"`
	ClientName      string `json:"client_name,omitempty"`
}

// INPUT (client -> server): one intent frame per client tick.
type InputMsg struct {
	Type          string     `json:"type"`
	ClientTick    uint64     `json:"client_tick"`
	ServerTickAck uint64     `json:"server_tick_ack"`
	SequenceID    uint64     `json:"sequence_id"`
	Movement      [3]float64 `json:"movement"`
	AimDirection  [3]float64 `json:"aim_direction"`
	Sprint        bool       `json:"sprint,omitempty"`
	Fire          bool       `json:"fire,omitempty"`
	Interact      bool       `json:"interact,omitempty"`
	Jump          bool       `json:"jump,omitempty"`
}

// TERRAFORM (client -> server): spherical voxel edit.
type TerraformMsg struct {
	Type             string     `json:"type"`
	Op               string     `json:"op"` // SPHERE_ADD | SPHERE_SUB | PAINT
	Center           [3]float64 `json:"center"`
	Radius           float64    `json:"radius"`
	MaterialID       int        `json:"material_id"`
	ClientSequenceID uint64     `json:"client_sequence_id,omitempty"`
}

// CHUNK_REQ (client -> server): version-gated chunk fetch.
type ChunkRequestMsg struct {
	Type             string `json:"type"`
	ChunkID          [3]int `json:"chunk_id"`
	LastKnownVersion uint64 `json:"last_known_version"`
}

// SPELL_CAST (client -> server). The server mints the seed; clients never do.
type SpellCastMsg struct {
	Type           string          `json:"type"`
	SpellID        string          `json:"spell_id"`
	RevisionID     string          `json:"revision_id,omitempty"`
	TargetPosition [3]float64      `json:"target_position"`
	TargetEntityID uint64          `json:"target_entity_id,omitempty"`
	ExtraParams    json.RawMessage `json:"extra_params,omitempty"`
}

// PING (client -> server).
type PingMsg struct {
	Type       string  `json:"type"`
	ClientTime float64 `json:"client_time"`
}

// DISCONNECT (client -> server): polite leave.
type DisconnectMsg struct {
	Type string `json:"type"`
}
