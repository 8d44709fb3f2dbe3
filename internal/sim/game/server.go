package game

import (
	"encoding/json"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"playerworld.gg/internal/persistence/snapshot"
	"playerworld.gg/internal/protocol"
	"playerworld.gg/internal/sim/tuning"
)

type SessionState int

const (
	SessionConnected SessionState = iota
	SessionAuthenticated
	SessionDisconnected
)

type session struct {
	ClientID     uint64
	State        SessionState
	Token        string
	EntityID     uint64
	LastInputSeq uint64
	ConnectTime  time.Time

	Out    chan []byte
	inputs *inputBuffer
	player *Player
}

// ConnectRequest carries one handshake attempt from the transport to the
// game loop. Resp always receives exactly one ConnectResponse.
type ConnectRequest struct {
	Handshake protocol.HandshakeMsg
	Out       chan []byte
	Resp      chan ConnectResponse
}

type ConnectResponse struct {
	Resp     protocol.HandshakeRespMsg
	ClientID uint64
}

// ClientEnvelope is a raw post-handshake message from one client.
type ClientEnvelope struct {
	ClientID uint64
	Base     protocol.BaseMessage
	Raw      []byte
}

// AuditLogger receives join/leave and terraform records. Implementations
// must not block the tick loop; the sqlite backend queues internally.
type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Tick     uint64     `json:"tick"`
	ClientID uint64     `json:"client_id"`
	Action   string     `json:"action"` // JOIN | LEAVE | TERRAFORM
	Pos      [3]float64 `json:"pos,omitempty"`
	Radius   float64    `json:"radius,omitempty"`
	Material int        `json:"material,omitempty"`
	Detail   string     `json:"detail,omitempty"`
}

type Config struct {
	WorldID string
	Tune    tuning.Tuning
	Seed    int64
}

// Game is the authoritative simulation server. All state is owned by the
// single loop goroutine; external goroutines talk to it through channels
// only.
type Game struct {
	cfg  Config
	tune tuning.Tuning
	log  *log.Logger
	rng  *rand.Rand

	tick atomic.Uint64

	registry    *Registry
	chunks      *ChunkManager
	projectiles *ProjectileManager
	npcs        *NPCManager

	sessions map[uint64]*session

	connect chan ConnectRequest
	inbox   chan ClientEnvelope
	leave   chan uint64

	stateReq  chan chan ServerState
	exportReq chan chan snapshot.WorldStateV1
	importReq chan importRequest

	stop chan struct{}

	audit        AuditLogger                   // optional
	snapshotSink chan<- snapshot.WorldStateV1 // optional, drained off-thread
}

type importRequest struct {
	State snapshot.WorldStateV1
	Resp  chan error
}

func New(cfg Config, logger *log.Logger) *Game {
	if logger == nil {
		logger = log.Default()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		cfg:      cfg,
		tune:     cfg.Tune,
		log:      logger,
		rng:      rand.New(rand.NewSource(seed)),
		registry: NewRegistry(),
		chunks:   NewChunkManager(),
		sessions: map[uint64]*session{},

		connect:   make(chan ConnectRequest, 16),
		inbox:     make(chan ClientEnvelope, 256),
		leave:     make(chan uint64, 16),
		stateReq:  make(chan chan ServerState, 4),
		exportReq: make(chan chan snapshot.WorldStateV1, 4),
		importReq: make(chan importRequest, 1),
		stop:      make(chan struct{}),
	}
	g.projectiles = NewProjectileManager(g.registry, g.chunks)
	g.npcs = NewNPCManager(cfg.Tune.Perception, g.registry, g.chunks)
	return g
}

func (g *Game) SetAuditLogger(a AuditLogger)                    { g.audit = a }
func (g *Game) SetSnapshotSink(ch chan<- snapshot.WorldStateV1) { g.snapshotSink = ch }

func (g *Game) Connect() chan<- ConnectRequest { return g.connect }
func (g *Game) Inbox() chan<- ClientEnvelope   { return g.inbox }
func (g *Game) Leave() chan<- uint64           { return g.leave }

func (g *Game) CurrentTick() uint64 { return g.tick.Load() }

func (g *Game) WorldID() string { return g.cfg.WorldID }

// SpawnNPC registers an NPC; preferred is honored for snapshot restore.
func (g *Game) SpawnNPC(n *NPC, preferred uint64) uint64 {
	return g.registry.Register(n, preferred)
}

// handleConnect runs on the loop goroutine. Protocol-version mismatch or
// an empty token rejects without mutating any state; the connection stays
// open and unauthenticated.
func (g *Game) handleConnect(req ConnectRequest) {
	hs := req.Handshake
	fail := func(code string) {
		req.Resp <- ConnectResponse{Resp: protocol.HandshakeRespMsg{
			Type:       protocol.TypeHandshakeResp,
			Success:    false,
			ServerTick: g.tick.Load(),
			Error:      code,
		}}
	}
	if hs.ProtocolVersion != protocol.Version {
		fail(protocol.ErrProtoVersion)
		return
	}
	if hs.SessionToken == "" {
		fail(protocol.ErrBadToken)
		return
	}
	if g.tune.MaxClients > 0 && len(g.sessions) >= g.tune.MaxClients {
		fail(protocol.ErrServerFull)
		return
	}

	clientID := g.allocClientID()
	player := NewPlayer(g.tune.Player, g.chunks, g.spawnPos(), g.tune.TickRateHz)
	entityID := g.registry.Register(player, 0)

	s := &session{
		ClientID:    clientID,
		State:       SessionAuthenticated,
		Token:       hs.SessionToken,
		EntityID:    entityID,
		ConnectTime: time.Now(),
		Out:         req.Out,
		inputs:      newInputBuffer(g.tune.TickRateHz),
		player:      player,
	}
	g.sessions[clientID] = s

	req.Resp <- ConnectResponse{
		ClientID: clientID,
		Resp: protocol.HandshakeRespMsg{
			Type:       protocol.TypeHandshakeResp,
			Success:    true,
			ServerTick: g.tick.Load(),
			EntityID:   entityID,
			WorldID:    g.cfg.WorldID,
		},
	}

	g.broadcastExcept(clientID, protocol.PlayerNoticeMsg{
		Type:     protocol.TypePlayerJoined,
		ClientID: clientID,
		EntityID: entityID,
	})
	g.broadcastExcept(clientID, protocol.EntitySpawnMsg{
		Type:       protocol.TypeEntitySpawn,
		EntityID:   entityID,
		EntityType: KindPlayer.String(),
		Position:   player.Pos().Arr(),
		Rotation:   player.Rot().Arr(),
	})
	g.writeAudit(AuditEntry{Tick: g.tick.Load(), ClientID: clientID, Action: "JOIN"})
	g.log.Printf("client %d joined as entity %d", clientID, entityID)
}

// allocClientID draws random ids from a large space, retried on the rare
// collision.
func (g *Game) allocClientID() uint64 {
	for {
		id := uint64(g.rng.Int63n(1<<31-2)) + 1
		if _, taken := g.sessions[id]; !taken {
			return id
		}
	}
}

func (g *Game) spawnPos() Vec3 {
	// Fan new players out so they don't stack on one voxel.
	angle := g.rng.Float64() * 2 * math.Pi
	return V3(3*math.Cos(angle), 2, 3*math.Sin(angle))
}

func (g *Game) handleLeave(clientID uint64) {
	s, ok := g.sessions[clientID]
	if !ok {
		return
	}
	s.State = SessionDisconnected
	g.registry.Unregister(s.EntityID)
	delete(g.sessions, clientID)

	g.broadcast(protocol.EntityDespawnMsg{
		Type:     protocol.TypeEntityDespawn,
		EntityID: s.EntityID,
		Reason:   "disconnect",
	})
	g.broadcast(protocol.PlayerNoticeMsg{
		Type:     protocol.TypePlayerLeft,
		ClientID: clientID,
		EntityID: s.EntityID,
	})
	g.writeAudit(AuditEntry{Tick: g.tick.Load(), ClientID: clientID, Action: "LEAVE"})
	g.log.Printf("client %d left (entity %d)", clientID, s.EntityID)
}

// route dispatches one post-handshake message. A malformed message
// affects only its own field handling, never the tick.
func (g *Game) route(env ClientEnvelope) {
	s, ok := g.sessions[env.ClientID]
	if !ok || s.State != SessionAuthenticated {
		return
	}
	switch env.Base.Type {
	case protocol.TypeInput:
		var in protocol.InputMsg
		if json.Unmarshal(env.Raw, &in) != nil {
			return
		}
		s.inputs.push(g.tick.Load(), in)
	case protocol.TypeTerraform:
		g.handleTerraform(s, env.Raw)
	case protocol.TypeChunkRequest:
		g.handleChunkRequest(s, env.Raw)
	case protocol.TypeSpellCast:
		g.handleSpellCast(s, env.Raw)
	case protocol.TypePing:
		var ping protocol.PingMsg
		if json.Unmarshal(env.Raw, &ping) != nil {
			return
		}
		g.send(s, protocol.PongMsg{
			Type:       protocol.TypePong,
			ClientTime: ping.ClientTime,
			ServerTime: float64(time.Now().UnixNano()) / 1e9,
			ServerTick: g.tick.Load(),
		})
	case protocol.TypeDisconnect:
		g.handleLeave(s.ClientID)
	default:
		g.send(s, protocol.ErrorMsg{
			Type: protocol.TypeError,
			Code: protocol.ErrProtoBadRequest,
		})
	}
}

func (g *Game) handleTerraform(s *session, raw []byte) {
	var req protocol.TerraformMsg
	if json.Unmarshal(raw, &req) != nil {
		return
	}
	op, ok := TerraformOpFromWire(req.Op)
	if !ok {
		g.send(s, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "bad terraform op"})
		return
	}
	center := FromArr(req.Center)
	if !center.IsFinite() {
		return
	}
	radius := clamp(req.Radius, 0.5, 16)
	material := byte(req.MaterialID)
	if req.MaterialID < 0 {
		material = 0
	} else if req.MaterialID > 255 {
		material = 255
	}

	affected := g.chunks.ApplyTerraform(op, center, radius, material)
	g.broadcast(protocol.TerraformAppliedMsg{
		Type:             protocol.TypeTerraformApplied,
		ServerTick:       g.tick.Load(),
		Op:               op.Wire(),
		Center:           req.Center,
		Radius:           radius,
		MaterialID:       int(material),
		AffectedChunks:   affected,
		ClientSequenceID: req.ClientSequenceID,
	})
	g.writeAudit(AuditEntry{
		Tick:     g.tick.Load(),
		ClientID: s.ClientID,
		Action:   "TERRAFORM",
		Pos:      req.Center,
		Radius:   radius,
		Material: int(material),
		Detail:   op.Wire(),
	})
}

func (g *Game) handleChunkRequest(s *session, raw []byte) {
	var req protocol.ChunkRequestMsg
	if json.Unmarshal(raw, &req) != nil {
		return
	}
	key := ChunkKey{req.ChunkID[0], req.ChunkID[1], req.ChunkID[2]}
	if _, ok := g.chunks.Lookup(key); !ok {
		g.send(s, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrUnknownChunk})
		return
	}
	if msg, ok := g.chunks.ChunkData(key, req.LastKnownVersion); ok {
		g.send(s, msg)
	}
}

// handleSpellCast mints one server-side seed and fans it out so every
// client executes the cast deterministically.
func (g *Game) handleSpellCast(s *session, raw []byte) {
	var req protocol.SpellCastMsg
	if json.Unmarshal(raw, &req) != nil {
		return
	}
	if req.SpellID == "" {
		g.send(s, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrUnknownSpell})
		return
	}
	g.broadcast(protocol.SpellCastEventMsg{
		Type:           protocol.TypeSpellCastEvent,
		ServerTick:     g.tick.Load(),
		SpellID:        req.SpellID,
		RevisionID:     req.RevisionID,
		CasterEntityID: s.EntityID,
		TargetPosition: req.TargetPosition,
		TargetEntityID: req.TargetEntityID,
		Seed:           g.rng.Int63(),
		ExtraParams:    req.ExtraParams,
	})
}

func (g *Game) send(s *session, v any) {
	if s.Out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	sendLatest(s.Out, b)
}

func (g *Game) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, s := range g.sessions {
		if s.Out != nil {
			sendLatest(s.Out, b)
		}
	}
}

func (g *Game) broadcastExcept(clientID uint64, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for id, s := range g.sessions {
		if id != clientID && s.Out != nil {
			sendLatest(s.Out, b)
		}
	}
}

// sendLatest never blocks the loop: on a full queue it drops the oldest
// pending message in favor of the new one.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func (g *Game) writeAudit(entry AuditEntry) {
	if g.audit == nil {
		return
	}
	if err := g.audit.WriteAudit(entry); err != nil {
		g.log.Printf("audit: %v", err)
	}
}

func (g *Game) sortedSessions() []*session {
	out := make([]*session, 0, len(g.sessions))
	for _, s := range g.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}
