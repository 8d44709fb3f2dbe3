package game

import "playerworld.gg/internal/protocol"

// Projectile is an ephemeral entity sharing the registry id space with
// players and NPCs, so clients track one id namespace.
type Projectile struct {
	id        uint64
	Owner     uint64
	Position  Vec3
	Direction Vec3 // unit
	Speed     float64
	Damage    float64
	Radius    float64
	Lifetime  float64 // seconds remaining
}

func (p *Projectile) Kind() Kind      { return KindProjectile }
func (p *Projectile) Pos() Vec3       { return p.Position }
func (p *Projectile) Rot() Vec3       { return Vec3{} }
func (p *Projectile) Vel() Vec3       { return p.Direction.Scale(p.Speed) }
func (p *Projectile) Health() float64 { return 0 }

// ProjectileManager simulates in-flight projectiles against entities and
// terrain. It owns only its own per-projectile state; targets are reached
// through the registry.
type ProjectileManager struct {
	reg    *Registry
	chunks *ChunkManager

	live map[uint64]*Projectile
}

func NewProjectileManager(reg *Registry, chunks *ChunkManager) *ProjectileManager {
	return &ProjectileManager{
		reg:    reg,
		chunks: chunks,
		live:   map[uint64]*Projectile{},
	}
}

func (m *ProjectileManager) Spawn(owner uint64, origin, direction Vec3, speed, damage, lifetime, radius float64) (uint64, *Projectile) {
	p := &Projectile{
		Owner:     owner,
		Position:  origin,
		Direction: direction.Normalized(),
		Speed:     speed,
		Damage:    damage,
		Radius:    radius,
		Lifetime:  lifetime,
	}
	p.id = m.reg.Register(p, 0)
	m.live[p.id] = p
	return p.id, p
}

func (m *ProjectileManager) Live() int { return len(m.live) }

type sweepHit struct {
	t      float64 // parameter along the swept segment, [0,1]
	entity uint64  // 0 for terrain
	point  Vec3
	normal Vec3
}

// SimulateTick advances every live projectile by dt and resolves the
// swept segment against entities and terrain. The closest hit point
// along the segment wins regardless of collider type; ties cannot teleport
// a hit through a nearer wall.
func (m *ProjectileManager) SimulateTick(tick uint64, dt float64) (hits []protocol.ProjectileHitMsg, despawns []protocol.EntityDespawnMsg) {
	for _, id := range m.reg.ByKind(KindProjectile) {
		p, ok := m.live[id]
		if !ok {
			continue
		}

		old := p.Position
		next := old.Add(p.Direction.Scale(p.Speed * dt))
		segLen := Dist(old, next)

		best, found := m.sweepEntities(p, old, next)
		if segLen > 1e-9 {
			if th, ok := m.chunks.Raycast(old, p.Direction, segLen); ok {
				t := th.Distance / segLen
				if !found || t < best.t {
					best = sweepHit{t: t, entity: 0, point: th.Point, normal: th.Normal}
					found = true
				}
			}
		}

		if found {
			if best.entity != 0 {
				if target, ok := m.reg.Get(best.entity); ok {
					if sink, ok := target.(DamageSink); ok {
						sink.TakeDamage(p.Damage, p.Owner)
					}
				}
			}
			hits = append(hits, protocol.ProjectileHitMsg{
				Type:         protocol.TypeProjectileHit,
				ServerTick:   tick,
				ProjectileID: p.id,
				HitEntityID:  best.entity,
				HitPoint:     best.point.Arr(),
				HitNormal:    best.normal.Arr(),
				Damage:       p.Damage,
			})
			despawns = append(despawns, m.remove(p, "hit"))
			continue
		}

		p.Position = next
		p.Lifetime -= dt
		if p.Lifetime <= 0 {
			despawns = append(despawns, m.remove(p, "expired"))
		}
	}
	return hits, despawns
}

// sweepEntities finds the earliest non-owner entity whose hit sphere
// intersects the swept segment.
func (m *ProjectileManager) sweepEntities(p *Projectile, a, b Vec3) (sweepHit, bool) {
	best := sweepHit{t: 2}
	found := false
	for _, id := range m.reg.All() {
		if id == p.Owner || id == p.id {
			continue
		}
		e, ok := m.reg.Get(id)
		if !ok {
			continue
		}
		col, ok := e.(Collidable)
		if !ok {
			continue
		}
		center := e.Pos()
		point, t := closestOnSegment(a, b, center)
		reach := col.HitRadius() + p.Radius
		if DistSq(point, center) > reach*reach {
			continue
		}
		if t < best.t {
			best = sweepHit{
				t:      t,
				entity: id,
				point:  point,
				normal: point.Sub(center).Normalized(),
			}
			found = true
		}
	}
	return best, found
}

func (m *ProjectileManager) remove(p *Projectile, reason string) protocol.EntityDespawnMsg {
	m.reg.Unregister(p.id)
	delete(m.live, p.id)
	return protocol.EntityDespawnMsg{
		Type:     protocol.TypeEntityDespawn,
		EntityID: p.id,
		Reason:   reason,
	}
}
