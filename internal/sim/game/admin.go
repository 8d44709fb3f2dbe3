package game

import "playerworld.gg/internal/persistence/snapshot"

// ServerState is the admin-facing health summary.
type ServerState struct {
	WorldID     string `json:"world_id"`
	ServerTick  uint64 `json:"server_tick"`
	ClientCount int    `json:"client_count"`
	EntityCount int    `json:"entity_count"`
}

// ServerState is safe to call from any goroutine; it round-trips through
// the loop.
func (g *Game) ServerState() ServerState {
	resp := make(chan ServerState, 1)
	select {
	case g.stateReq <- resp:
		return <-resp
	case <-g.stop:
		return ServerState{WorldID: g.cfg.WorldID}
	}
}

// ExportWorldState snapshots modified chunks and persistent entities.
// Safe from any goroutine.
func (g *Game) ExportWorldState() snapshot.WorldStateV1 {
	resp := make(chan snapshot.WorldStateV1, 1)
	select {
	case g.exportReq <- resp:
		return <-resp
	case <-g.stop:
		return snapshot.WorldStateV1{}
	}
}

// ImportWorldState restores a prior export. Safe from any goroutine.
func (g *Game) ImportWorldState(state snapshot.WorldStateV1) error {
	resp := make(chan error, 1)
	select {
	case g.importReq <- importRequest{State: state, Resp: resp}:
		return <-resp
	case <-g.stop:
		return nil
	}
}

// ImportAtStartup restores state synchronously. Only valid before Run
// starts; afterwards use ImportWorldState.
func (g *Game) ImportAtStartup(state snapshot.WorldStateV1) error {
	return g.importWorldState(state)
}

// Shutdown halts the tick loop; the transport layer is expected to close
// client connections once Run returns.
func (g *Game) Shutdown() { g.Stop() }

func (g *Game) serverState() ServerState {
	return ServerState{
		WorldID:     g.cfg.WorldID,
		ServerTick:  g.tick.Load(),
		ClientCount: len(g.sessions),
		EntityCount: g.registry.Len(),
	}
}

// exportWorldState runs on the loop goroutine. Player entities are
// excluded; they respawn per session.
func (g *Game) exportWorldState() snapshot.WorldStateV1 {
	state := snapshot.WorldStateV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: g.cfg.WorldID,
			Tick:    g.tick.Load(),
		},
		Chunks: g.chunks.Export(),
	}
	for _, id := range g.registry.ByKind(KindNPC) {
		e, ok := g.registry.Get(id)
		if !ok {
			continue
		}
		npc, ok := e.(*NPC)
		if !ok {
			continue
		}
		state.NPCs = append(state.NPCs, snapshot.NPCV1{
			EntityID:     id,
			Pos:          npc.Position.Arr(),
			Rot:          npc.Rotation.Arr(),
			HP:           npc.HP,
			ViewDistance: npc.ViewDistance,
			FOVDegrees:   npc.FOVDegrees,
		})
	}
	return state
}

func (g *Game) importWorldState(state snapshot.WorldStateV1) error {
	if err := g.chunks.Import(state.Chunks); err != nil {
		return err
	}
	for _, in := range state.NPCs {
		npc := &NPC{
			Position:     FromArr(in.Pos),
			Rotation:     FromArr(in.Rot),
			HP:           in.HP,
			ViewDistance: in.ViewDistance,
			FOVDegrees:   in.FOVDegrees,
		}
		g.registry.Register(npc, in.EntityID)
	}
	if state.Header.Tick > g.tick.Load() {
		g.tick.Store(state.Header.Tick)
	}
	return nil
}
