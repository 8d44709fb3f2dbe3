package protocol

import "encoding/json"

// HANDSHAKE_RESP (server -> client).
type HandshakeRespMsg struct {
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	ServerTick uint64 `json:"server_tick"`
	EntityID   uint64 `json:"entity_id"`
	WorldID    string `json:"world_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PLAYER_JOINED / PLAYER_LEFT (server -> client).
type PlayerNoticeMsg struct {
	Type     string `json:"type"`
	ClientID uint64 `json:"client_id"`
	EntityID uint64 `json:"entity_id"`
}

type ChunkVersion struct {
	ChunkID    [3]int `json:"chunk_id"`
	NewVersion uint64 `json:"new_version"`
}

// TERRAFORM_APPLIED (server -> client, broadcast).
type TerraformAppliedMsg struct {
	Type             string         `json:"type"`
	ServerTick       uint64         `json:"server_tick"`
	Op               string         `json:"op"`
	Center           [3]float64     `json:"center"`
	Radius           float64        `json:"radius"`
	MaterialID       int            `json:"material_id"`
	AffectedChunks   []ChunkVersion `json:"affected_chunks"`
	ClientSequenceID uint64         `json:"client_sequence_id,omitempty"`
}

// CHUNK_DATA (server -> client). Data is base64(zstd(voxels)).
type ChunkDataMsg struct {
	Type       string `json:"type"`
	ChunkID    [3]int `json:"chunk_id"`
	Version    uint64 `json:"version"`
	Data       string `json:"data"`
	Compressed bool   `json:"compressed"`
}

// SPELL_EVENT (server -> client, broadcast). All clients receive the same
// seed so spell visuals/outcomes replay deterministically everywhere.
type SpellCastEventMsg struct {
	Type           string          `json:"type"`
	ServerTick     uint64          `json:"server_tick"`
	SpellID        string          `json:"spell_id"`
	RevisionID     string          `json:"revision_id,omitempty"`
	CasterEntityID uint64          `json:"caster_entity_id"`
	TargetPosition [3]float64      `json:"target_position"`
	TargetEntityID uint64          `json:"target_entity_id,omitempty"`
	Seed           int64           `json:"seed"`
	ExtraParams    json.RawMessage `json:"extra_params,omitempty"`
}

// ENTITY_SPAWN (server -> client, broadcast).
type EntitySpawnMsg struct {
	Type       string     `json:"type"`
	EntityID   uint64     `json:"entity_id"`
	EntityType string     `json:"entity_type"`
	Position   [3]float64 `json:"position"`
	Rotation   [3]float64 `json:"rotation"`
	OwnerID    uint64     `json:"owner_id,omitempty"`
}

// ENTITY_DESPAWN (server -> client, broadcast).
type EntityDespawnMsg struct {
	Type     string `json:"type"`
	EntityID uint64 `json:"entity_id"`
	Reason   string `json:"reason,omitempty"`
}

// PROJECTILE_HIT (server -> client, broadcast). Terrain hits carry
// hit_entity_id = 0.
type ProjectileHitMsg struct {
	Type         string     `json:"type"`
	ServerTick   uint64     `json:"server_tick"`
	ProjectileID uint64     `json:"projectile_id"`
	HitEntityID  uint64     `json:"hit_entity_id"`
	HitPoint     [3]float64 `json:"hit_point"`
	HitNormal    [3]float64 `json:"hit_normal"`
	Damage       float64    `json:"damage"`
}

// NPC_EVENT (server -> client, broadcast).
type NPCEventMsg struct {
	Type           string  `json:"type"`
	ServerTick     uint64  `json:"server_tick"`
	NPCID          uint64  `json:"npc_id"`
	Event          string  `json:"event"` // SPOTTED | LOST | SUSPICION_CHANGED
	TargetID       uint64  `json:"target_id"`
	DetectionState string  `json:"detection_state"`
	Suspicion      float64 `json:"suspicion"`
}

type SnapshotEntity struct {
	EntityID   uint64     `json:"entity_id"`
	EntityType string     `json:"entity_type"`
	Position   [3]float64 `json:"position"`
	Rotation   [3]float64 `json:"rotation"`
	Velocity   [3]float64 `json:"velocity"`
	Health     float64    `json:"health"`
}

type PlayerState struct {
	EntityID     uint64 `json:"entity_id"`
	LastInputSeq uint64 `json:"last_input_seq"`
}

// STATE_SNAPSHOT (server -> client, every snapshot interval).
type StateSnapshotMsg struct {
	Type        string           `json:"type"`
	ServerTick  uint64           `json:"server_tick"`
	Entities    []SnapshotEntity `json:"entities"`
	PlayerState PlayerState      `json:"player_state"`
}

// PONG (server -> client).
type PongMsg struct {
	Type       string  `json:"type"`
	ClientTime float64 `json:"client_time"`
	ServerTime float64 `json:"server_time"`
	ServerTick uint64  `json:"server_tick"`
}

// ERROR (server -> client).
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
