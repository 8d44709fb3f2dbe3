package game

import (
	"context"
	"time"

	"playerworld.gg/internal/protocol"
)

// Run is the single thread of authority. A frame ticker polls pending
// channel work; elapsed real time feeds a fixed-timestep accumulator so
// every simulation step is exactly 1/tick_rate seconds regardless of
// host frame jitter.
func (g *Game) Run(ctx context.Context) error {
	tickInterval := 1.0 / float64(g.tune.TickRateHz)
	frame := time.NewTicker(time.Duration(float64(time.Second) * tickInterval / 4))
	defer frame.Stop()

	last := time.Now()
	var acc float64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case req := <-g.connect:
			g.handleConnect(req)
		case id := <-g.leave:
			g.handleLeave(id)
		case env := <-g.inbox:
			g.route(env)
		case resp := <-g.stateReq:
			resp <- g.serverState()
		case resp := <-g.exportReq:
			resp <- g.exportWorldState()
		case req := <-g.importReq:
			req.Resp <- g.importWorldState(req.State)
		case now := <-frame.C:
			acc += now.Sub(last).Seconds()
			last = now
			// A long stall (debugger, laptop sleep) must not trigger a
			// tick avalanche.
			if acc > 1 {
				acc = 1
			}
			for acc >= tickInterval {
				acc -= tickInterval
				g.step(tickInterval)
			}
		}
	}
}

// Stop halts the loop; safe to call once.
func (g *Game) Stop() { close(g.stop) }

// step runs exactly one simulation tick. Order is load-bearing: inputs,
// then projectiles, then perception, then snapshots, so damage and
// detection are causally consistent within the tick.
func (g *Game) step(dt float64) {
	tick := g.tick.Add(1)

	for _, s := range g.sortedSessions() {
		in, ok := s.inputs.pop(tick)
		if !ok {
			continue
		}
		if in.SequenceID > s.LastInputSeq {
			s.LastInputSeq = in.SequenceID
		}
		s.player.ApplyInput(in, dt)
		if in.Fire && s.player.CanFire(tick) {
			g.firePlayerProjectile(tick, s)
		}
	}

	hits, despawns := g.projectiles.SimulateTick(tick, dt)
	for _, h := range hits {
		g.broadcast(h)
	}
	for _, d := range despawns {
		g.broadcast(d)
	}

	for _, ev := range g.npcs.SimulateTick(tick, dt) {
		g.broadcast(ev)
	}

	if tick%uint64(g.tune.SnapshotEveryTicks) == 0 {
		g.broadcastSnapshots(tick)
	}

	if g.snapshotSink != nil && g.tune.SnapshotSaveTicks > 0 && tick%uint64(g.tune.SnapshotSaveTicks) == 0 {
		select {
		case g.snapshotSink <- g.exportWorldState():
		default:
			g.log.Printf("snapshot sink busy; skipping save at tick %d", tick)
		}
	}
}

func (g *Game) firePlayerProjectile(tick uint64, s *session) {
	s.player.MarkFired(tick)
	dir := s.player.Aim()
	origin := s.player.EyePos().Add(dir.Scale(0.5))
	id, p := g.projectiles.Spawn(
		s.EntityID, origin, dir,
		g.tune.Projectile.Speed,
		g.tune.Projectile.Damage,
		g.tune.Projectile.Lifetime,
		g.tune.Projectile.Radius,
	)
	g.broadcast(protocol.EntitySpawnMsg{
		Type:       protocol.TypeEntitySpawn,
		EntityID:   id,
		EntityType: KindProjectile.String(),
		Position:   p.Position.Arr(),
		Rotation:   Vec3{}.Arr(),
		OwnerID:    s.EntityID,
	})
}

// broadcastSnapshots sends each client the full entity table plus its own
// acked input sequence. Snapshot cadence is lower than tick cadence to
// bound bandwidth.
func (g *Game) broadcastSnapshots(tick uint64) {
	entities := make([]protocol.SnapshotEntity, 0, g.registry.Len())
	for _, id := range g.registry.All() {
		e, ok := g.registry.Get(id)
		if !ok {
			continue
		}
		entities = append(entities, protocol.SnapshotEntity{
			EntityID:   id,
			EntityType: e.Kind().String(),
			Position:   e.Pos().Arr(),
			Rotation:   e.Rot().Arr(),
			Velocity:   e.Vel().Arr(),
			Health:     e.Health(),
		})
	}
	for _, s := range g.sortedSessions() {
		g.send(s, protocol.StateSnapshotMsg{
			Type:       protocol.TypeStateSnapshot,
			ServerTick: tick,
			Entities:   entities,
			PlayerState: protocol.PlayerState{
				EntityID:     s.EntityID,
				LastInputSeq: s.LastInputSeq,
			},
		})
	}
}
