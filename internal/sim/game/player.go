package game

import (
	"math"

	"playerworld.gg/internal/protocol"
	"playerworld.gg/internal/sim/tuning"
)

// Player is the server-side character for one authenticated session.
// Movement is an explicit integrator: horizontal velocity damped toward
// the input intent, vertical velocity under gravity, grounded state from
// a floor probe, movement committed through a swept-sphere test against
// terrain.
type Player struct {
	position Vec3
	rotation Vec3 // pitch, yaw, 0
	velocity Vec3
	hp       float64

	grounded      bool
	cooldownUntil uint64 // tick
	aim           Vec3

	cfg    tuning.Player
	chunks *ChunkManager

	cooldownTicks uint64
}

func NewPlayer(cfg tuning.Player, chunks *ChunkManager, spawn Vec3, tickRate int) *Player {
	cd := uint64(math.Ceil(cfg.FireCooldown * float64(tickRate)))
	if cd == 0 {
		cd = 1
	}
	return &Player{
		position:      spawn,
		hp:            cfg.MaxHealth,
		aim:           V3(0, 0, 1),
		cfg:           cfg,
		chunks:        chunks,
		cooldownTicks: cd,
	}
}

func (p *Player) Kind() Kind      { return KindPlayer }
func (p *Player) Pos() Vec3       { return p.position }
func (p *Player) Rot() Vec3       { return p.rotation }
func (p *Player) Vel() Vec3       { return p.velocity }
func (p *Player) Health() float64 { return p.hp }

func (p *Player) HitRadius() float64 { return p.cfg.HitRadius }

// Aim is the last unit aim direction; projectiles spawn along it.
func (p *Player) Aim() Vec3 { return p.aim }

// EyePos is where projectiles and perception rays originate.
func (p *Player) EyePos() Vec3 { return p.position.Add(V3(0, 1.6, 0)) }

func (p *Player) TakeDamage(amount float64, source uint64) {
	p.hp -= amount
	if p.hp < 0 {
		p.hp = 0
	}
}

func (p *Player) CanFire(tick uint64) bool { return tick >= p.cooldownUntil }

func (p *Player) MarkFired(tick uint64) { p.cooldownUntil = tick + p.cooldownTicks }

// ApplyInput advances the controller by one tick of client intent.
// Out-of-range fields are clamped per-field; a bad frame never aborts
// the tick.
func (p *Player) ApplyInput(in protocol.InputMsg, dt float64) {
	move := FromArr(in.Movement)
	if !move.IsFinite() {
		move = Vec3{}
	}
	move.Y = 0
	if l := move.Len(); l > 1 {
		move = move.Scale(1 / l)
	}

	if aim := FromArr(in.AimDirection).Normalized(); aim != (Vec3{}) && aim.IsFinite() {
		p.aim = aim
		p.rotation = Vec3{
			X: math.Asin(clamp(-aim.Y, -1, 1)),
			Y: math.Atan2(aim.X, aim.Z),
		}
	}

	speed := p.cfg.WalkSpeed
	if in.Sprint {
		speed = p.cfg.SprintSpeed
	}
	target := move.Scale(speed)

	// Damp horizontal velocity toward the intent.
	p.velocity.X = approach(p.velocity.X, target.X, p.cfg.Accel*dt)
	p.velocity.Z = approach(p.velocity.Z, target.Z, p.cfg.Accel*dt)

	if in.Jump && p.grounded {
		p.velocity.Y = p.cfg.JumpSpeed
		p.grounded = false
	} else if !p.grounded {
		p.velocity.Y -= p.cfg.Gravity * dt
	}

	p.integrate(dt)
}

// integrate commits velocity through swept-sphere tests, horizontal and
// vertical axes separately so sliding along walls works.
func (p *Player) integrate(dt float64) {
	center := p.position.Add(V3(0, p.cfg.CapsuleRadius+0.1, 0))

	horiz := Vec3{X: p.velocity.X, Z: p.velocity.Z}
	if step := horiz.Len() * dt; step > 1e-9 {
		dir := horiz.Normalized()
		if hit, ok := p.chunks.Raycast(center, dir, step+p.cfg.CapsuleRadius); ok {
			allowed := hit.Distance - p.cfg.CapsuleRadius
			if allowed < 0 {
				allowed = 0
			}
			if allowed < step {
				p.position = p.position.Add(dir.Scale(allowed))
				p.velocity.X = 0
				p.velocity.Z = 0
			} else {
				p.position = p.position.Add(dir.Scale(step))
			}
		} else {
			p.position = p.position.Add(dir.Scale(step))
		}
	}

	p.position.Y += p.velocity.Y * dt

	// Floor probe: the voxel directly under the feet.
	below := p.position.Add(V3(0, -0.05, 0))
	if p.velocity.Y <= 0 && p.chunks.Solid(below) {
		p.position.Y = math.Floor(below.Y) + 1
		p.velocity.Y = 0
		p.grounded = true
	} else if !p.chunks.Solid(p.position.Add(V3(0, -0.1, 0))) {
		p.grounded = false
	}
}

func approach(cur, target, maxDelta float64) float64 {
	d := target - cur
	if d > maxDelta {
		d = maxDelta
	} else if d < -maxDelta {
		d = -maxDelta
	}
	return cur + d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
