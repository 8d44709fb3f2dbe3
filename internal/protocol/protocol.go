package protocol

import "encoding/json"

const Version = "1.0"

// Message types, client -> server.
const (
	TypeHandshake    = "HANDSHAKE"
	TypeInput        = "INPUT"
	TypeTerraform    = "TERRAFORM"
	TypeChunkRequest = "CHUNK_REQ"
	TypeSpellCast    = "SPELL_CAST"
	TypePing         = "PING"
	TypeDisconnect   = "DISCONNECT"
)

// Message types, server -> client.
const (
	TypeHandshakeResp    = "HANDSHAKE_RESP"
	TypePlayerJoined     = "PLAYER_JOINED"
	TypePlayerLeft       = "PLAYER_LEFT"
	TypeTerraformApplied = "TERRAFORM_APPLIED"
	TypeChunkData        = "CHUNK_DATA"
	TypeSpellCastEvent   = "SPELL_EVENT"
	TypeEntitySpawn      = "ENTITY_SPAWN"
	TypeEntityDespawn    = "ENTITY_DESPAWN"
	TypeProjectileHit    = "PROJECTILE_HIT"
	TypeNPCEvent         = "NPC_EVENT"
	TypeStateSnapshot    = "STATE_SNAPSHOT"
	TypePong             = "PONG"
	TypeError            = "ERROR"
)

// Terraform ops.
const (
	OpSphereAdd = "SPHERE_ADD"
	OpSphereSub = "SPHERE_SUB"
	OpPaint     = "PAINT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
