package game

import (
	"math"

	"playerworld.gg/internal/protocol"
	"playerworld.gg/internal/sim/tuning"
)

type DetectionState int

const (
	Idle DetectionState = iota
	Suspicious
	Spotted
)

func (s DetectionState) String() string {
	switch s {
	case Suspicious:
		return "SUSPICIOUS"
	case Spotted:
		return "SPOTTED"
	}
	return "IDLE"
}

// NPC is a stationary-or-scripted character with a perception cone.
// Movement/AI scripting lives outside this core; the server only owns
// perception and health.
type NPC struct {
	Position Vec3
	Rotation Vec3 // pitch, yaw, 0; forward derives from yaw
	Velocity Vec3
	HP       float64

	ViewDistance float64
	FOVDegrees   float64
}

func (n *NPC) Kind() Kind      { return KindNPC }
func (n *NPC) Pos() Vec3       { return n.Position }
func (n *NPC) Rot() Vec3       { return n.Rotation }
func (n *NPC) Vel() Vec3       { return n.Velocity }
func (n *NPC) Health() float64 { return n.HP }

func (n *NPC) HitRadius() float64 { return 0.8 }

func (n *NPC) TakeDamage(amount float64, source uint64) {
	n.HP -= amount
	if n.HP < 0 {
		n.HP = 0
	}
}

// Forward is the unit view direction in the horizontal plane.
func (n *NPC) Forward() Vec3 {
	return V3(math.Sin(n.Rotation.Y), 0, math.Cos(n.Rotation.Y))
}

func (n *NPC) eyePos() Vec3 { return n.Position.Add(V3(0, 1.6, 0)) }

// pairState tracks one (NPC, target) suspicion edge. Events are
// edge-triggered on threshold crossings so each fires exactly once.
type pairState struct {
	suspicion float64
	state     DetectionState
	lastKnown Vec3
}

// NPCManager runs the perception state machine, throttled to every
// cfg.EveryTicks simulation ticks with dt scaled accordingly.
type NPCManager struct {
	cfg    tuning.Perception
	reg    *Registry
	chunks *ChunkManager

	pairs map[uint64]map[uint64]*pairState
}

func NewNPCManager(cfg tuning.Perception, reg *Registry, chunks *ChunkManager) *NPCManager {
	return &NPCManager{
		cfg:    cfg,
		reg:    reg,
		chunks: chunks,
		pairs:  map[uint64]map[uint64]*pairState{},
	}
}

// LastKnownPosition reports where npcID last saw targetID.
func (m *NPCManager) LastKnownPosition(npcID, targetID uint64) (Vec3, bool) {
	pair, ok := m.pairs[npcID][targetID]
	if !ok {
		return Vec3{}, false
	}
	return pair.lastKnown, true
}

// DetectionStateOf is the NPC's state toward one target; Idle when the
// pair has fully decayed.
func (m *NPCManager) DetectionStateOf(npcID, targetID uint64) DetectionState {
	pair, ok := m.pairs[npcID][targetID]
	if !ok {
		return Idle
	}
	return pair.state
}

func (m *NPCManager) SimulateTick(tick uint64, dt float64) []protocol.NPCEventMsg {
	every := uint64(m.cfg.EveryTicks)
	if every == 0 {
		every = 1
	}
	if tick%every != 0 {
		return nil
	}
	edt := dt * float64(every)

	var events []protocol.NPCEventMsg
	players := m.reg.ByKind(KindPlayer)
	for _, npcID := range m.reg.ByKind(KindNPC) {
		e, ok := m.reg.Get(npcID)
		if !ok {
			continue
		}
		npc, ok := e.(*NPC)
		if !ok {
			continue
		}
		for _, targetID := range players {
			target, ok := m.reg.Get(targetID)
			if !ok {
				continue
			}
			events = m.updatePair(events, tick, edt, npcID, npc, targetID, target)
		}
		// Forget targets that no longer exist.
		for targetID := range m.pairs[npcID] {
			if _, ok := m.reg.Get(targetID); !ok {
				delete(m.pairs[npcID], targetID)
			}
		}
	}
	return events
}

func (m *NPCManager) updatePair(events []protocol.NPCEventMsg, tick uint64, edt float64, npcID uint64, npc *NPC, targetID uint64, target Entity) []protocol.NPCEventMsg {
	visible := m.canSee(npc, target)

	bucket := m.pairs[npcID]
	pair, tracked := bucket[targetID]
	if !tracked {
		if !visible {
			return events
		}
		if bucket == nil {
			bucket = map[uint64]*pairState{}
			m.pairs[npcID] = bucket
		}
		pair = &pairState{}
		bucket[targetID] = pair
	}

	prev := pair.suspicion
	if visible {
		pair.suspicion = math.Min(1, prev+m.cfg.GainRate*edt)
		pair.lastKnown = target.Pos()
	} else {
		pair.suspicion = math.Max(0, prev-m.cfg.DecayRate*edt)
	}
	s := pair.suspicion

	emit := func(kind string) {
		events = append(events, protocol.NPCEventMsg{
			Type:           protocol.TypeNPCEvent,
			ServerTick:     tick,
			NPCID:          npcID,
			Event:          kind,
			TargetID:       targetID,
			DetectionState: pair.state.String(),
			Suspicion:      s,
		})
	}

	switch {
	case prev < m.cfg.SpotThreshold && s >= m.cfg.SpotThreshold:
		pair.state = Spotted
		emit("SPOTTED")
	case pair.state == Idle && prev < m.cfg.LoseThreshold && s >= m.cfg.LoseThreshold:
		pair.state = Suspicious
		emit("SUSPICION_CHANGED")
	case pair.state == Spotted && prev >= m.cfg.LoseThreshold && s < m.cfg.LoseThreshold:
		pair.state = Idle
		emit("LOST")
	}

	if s <= 0 && !visible {
		delete(m.pairs[npcID], targetID)
	}
	return events
}

// canSee applies the three visibility gates: view distance, field-of-view
// half-angle, unobstructed line of sight.
func (m *NPCManager) canSee(npc *NPC, target Entity) bool {
	viewDist := npc.ViewDistance
	if viewDist <= 0 {
		viewDist = m.cfg.ViewDistance
	}
	fov := npc.FOVDegrees
	if fov <= 0 {
		fov = m.cfg.FOVDegrees
	}

	to := target.Pos().Sub(npc.Position)
	dist := to.Len()
	if dist > viewDist {
		return false
	}
	if dist > 1e-9 {
		flat := Vec3{X: to.X, Z: to.Z}.Normalized()
		if flat != (Vec3{}) {
			cos := clamp(npc.Forward().Dot(flat), -1, 1)
			if math.Acos(cos) > fov*math.Pi/180/2 {
				return false
			}
		}
	}

	eye := npc.eyePos()
	head := target.Pos().Add(V3(0, 1.2, 0))
	losDist := Dist(eye, head)
	if hit, ok := m.chunks.Raycast(eye, head.Sub(eye), losDist); ok && hit.Distance < losDist-0.5 {
		return false
	}
	return true
}
