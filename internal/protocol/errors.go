package protocol

const (
	// Handshake boundary.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrBadToken        = "E_BAD_TOKEN"
	ErrServerFull      = "E_SERVER_FULL"

	// Referential misses after authentication.
	ErrUnknownEntity = "E_UNKNOWN_ENTITY"
	ErrUnknownChunk  = "E_UNKNOWN_CHUNK"
	ErrUnknownSpell  = "E_UNKNOWN_SPELL"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrBadToken:        {},
	ErrServerFull:      {},
	ErrUnknownEntity:   {},
	ErrUnknownChunk:    {},
	ErrUnknownSpell:    {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
