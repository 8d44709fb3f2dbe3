package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	SnapshotSaveTicks  int `yaml:"snapshot_save_ticks"`
	MaxClients         int `yaml:"max_clients"`

	Player     Player     `yaml:"player"`
	Projectile Projectile `yaml:"projectile"`
	Perception Perception `yaml:"perception"`
}

type Player struct {
	WalkSpeed     float64 `yaml:"walk_speed"`
	SprintSpeed   float64 `yaml:"sprint_speed"`
	Accel         float64 `yaml:"accel"`
	JumpSpeed     float64 `yaml:"jump_speed"`
	Gravity       float64 `yaml:"gravity"`
	MaxHealth     float64 `yaml:"max_health"`
	FireCooldown  float64 `yaml:"fire_cooldown_s"`
	HitRadius     float64 `yaml:"hit_radius"`
	CapsuleRadius float64 `yaml:"capsule_radius"`
}

type Projectile struct {
	Speed    float64 `yaml:"speed"`
	Damage   float64 `yaml:"damage"`
	Lifetime float64 `yaml:"lifetime_s"`
	Radius   float64 `yaml:"radius"`
}

type Perception struct {
	EveryTicks    int     `yaml:"every_ticks"`
	ViewDistance  float64 `yaml:"view_distance"`
	FOVDegrees    float64 `yaml:"fov_degrees"`
	GainRate      float64 `yaml:"gain_rate"`
	DecayRate     float64 `yaml:"decay_rate"`
	SpotThreshold float64 `yaml:"spot_threshold"`
	LoseThreshold float64 `yaml:"lose_threshold"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         30,
		SnapshotEveryTicks: 3,
		SnapshotSaveTicks:  9000,
		MaxClients:         64,
		Player: Player{
			WalkSpeed:     5.0,
			SprintSpeed:   8.5,
			Accel:         40.0,
			JumpSpeed:     8.0,
			Gravity:       24.0,
			MaxHealth:     100.0,
			FireCooldown:  0.35,
			HitRadius:     0.8,
			CapsuleRadius: 0.4,
		},
		Projectile: Projectile{
			Speed:    40.0,
			Damage:   15.0,
			Lifetime: 3.0,
			Radius:   0.15,
		},
		Perception: Perception{
			EveryTicks:    3,
			ViewDistance:  30.0,
			FOVDegrees:    110.0,
			GainRate:      0.8,
			DecayRate:     0.5,
			SpotThreshold: 1.0,
			LoseThreshold: 0.3,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickRateHz <= 0 {
		return t, fmt.Errorf("tuning.yaml: tick_rate_hz must be positive")
	}
	if t.SnapshotEveryTicks <= 0 {
		t.SnapshotEveryTicks = 1
	}
	if t.Perception.EveryTicks <= 0 {
		t.Perception.EveryTicks = 1
	}
	return t, nil
}
