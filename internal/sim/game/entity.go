package game

import "playerworld.gg/internal/protocol"

// Kind discriminates entity variants. Zero is reserved as "no kind" the
// same way entity id 0 is reserved as "no entity".
type Kind int

const (
	KindPlayer Kind = iota + 1
	KindNPC
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "PLAYER"
	case KindNPC:
		return "NPC"
	case KindProjectile:
		return "PROJECTILE"
	}
	return "UNKNOWN"
}

// Entity is the minimum surface every simulated object exposes to the
// registry and to snapshot building. Mutation happens only through the
// owning manager inside the tick loop.
type Entity interface {
	Kind() Kind
	Pos() Vec3
	Rot() Vec3
	Vel() Vec3
	Health() float64
}

// DamageSink is implemented by entities that can take projectile damage.
type DamageSink interface {
	TakeDamage(amount float64, source uint64)
}

// InputDriven is implemented by entities steered by buffered client input.
type InputDriven interface {
	ApplyInput(in protocol.InputMsg, dt float64)
}

// Firer gates projectile spawning on a per-entity cooldown.
type Firer interface {
	CanFire(tick uint64) bool
	MarkFired(tick uint64)
}

// Collidable exposes a hit sphere for projectile sweeps. Entities that do
// not implement it (projectiles themselves) are not collision targets.
type Collidable interface {
	HitRadius() float64
}
