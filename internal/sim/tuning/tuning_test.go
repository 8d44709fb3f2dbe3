package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.TickRateHz != 30 {
		t.Fatalf("tick rate: %d", d.TickRateHz)
	}
	if d.Perception.SpotThreshold != 1.0 || d.Perception.LoseThreshold != 0.3 {
		t.Fatalf("perception thresholds: %+v", d.Perception)
	}
	if d.SnapshotEveryTicks <= 0 {
		t.Fatalf("snapshot interval: %d", d.SnapshotEveryTicks)
	}
}

func TestLoad_OverridesAndFallback(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	body := []byte("tick_rate_hz: 20\nplayer:\n  walk_speed: 3.5\n")
	if err := os.WriteFile(p, body, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 20 {
		t.Fatalf("tick rate override: %d", got.TickRateHz)
	}
	if got.Player.WalkSpeed != 3.5 {
		t.Fatalf("walk speed override: %v", got.Player.WalkSpeed)
	}
	// Untouched fields keep defaults.
	if got.Projectile.Speed != Defaults().Projectile.Speed {
		t.Fatalf("projectile speed should default: %v", got.Projectile.Speed)
	}
}

func TestLoad_RejectsBadTickRate(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for zero tick rate")
	}
}

func TestLoad_Repo(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load repo tuning: %v", err)
	}
	if got.ProtocolVersion == "" {
		t.Fatalf("repo tuning missing protocol_version")
	}
}
