package game

import (
	"math"
	"testing"
)

func TestTerraform_SphereMembership(t *testing.T) {
	m := NewChunkManager()
	center := V3(0, 10, 0)
	radius := 2.5

	m.ApplyTerraform(SphereAdd, center, radius, 7)

	for z := -5; z <= 5; z++ {
		for y := 5; y <= 15; y++ {
			for x := -5; x <= 5; x++ {
				d := math.Sqrt(float64(x)*float64(x) + (float64(y)-10)*(float64(y)-10) + float64(z)*float64(z))
				got := m.VoxelAt(x, y, z)
				if d <= radius && got != 7 {
					t.Fatalf("voxel (%d,%d,%d) inside sphere not set (d=%.2f)", x, y, z, d)
				}
				if d > radius && got != 0 {
					t.Fatalf("voxel (%d,%d,%d) outside sphere modified (d=%.2f)", x, y, z, d)
				}
			}
		}
	}
}

func TestTerraform_OpsAndVersions(t *testing.T) {
	m := NewChunkManager()
	center := V3(5, 5, 5)

	affected := m.ApplyTerraform(SphereAdd, center, 3, 1)
	if len(affected) == 0 {
		t.Fatalf("no affected chunks")
	}
	for _, a := range affected {
		if a.NewVersion != 1 {
			t.Fatalf("chunk %v version %d after first op", a.ChunkID, a.NewVersion)
		}
	}

	// Paint only recolors non-air voxels.
	m.ApplyTerraform(Paint, center, 5, 2)
	if got := m.VoxelAt(5, 5, 5); got != 2 {
		t.Fatalf("painted voxel: %d", got)
	}
	if got := m.VoxelAt(5, 5, 9); got != 0 {
		t.Fatalf("paint carved air into %d", got)
	}

	// Sub empties the sphere.
	m.ApplyTerraform(SphereSub, center, 3, 0)
	if got := m.VoxelAt(5, 5, 5); got != 0 {
		t.Fatalf("sub left voxel %d", got)
	}

	// Three ops touched the origin chunk: version is exactly 3.
	c, ok := m.Lookup(ChunkKey{0, 0, 0})
	if !ok {
		t.Fatalf("origin chunk missing")
	}
	if c.Version != 3 {
		t.Fatalf("version %d after 3 ops", c.Version)
	}
}

func TestTerraform_VersionOncePerOpAcrossBoundary(t *testing.T) {
	m := NewChunkManager()
	// Sphere straddling the chunk boundary at x=32.
	affected := m.ApplyTerraform(SphereAdd, V3(32, 5, 5), 4, 1)
	if len(affected) < 2 {
		t.Fatalf("expected multiple chunks: %v", affected)
	}
	for _, a := range affected {
		if a.NewVersion != 1 {
			t.Fatalf("chunk %v bumped %d times in one op", a.ChunkID, a.NewVersion)
		}
	}
}

func TestChunkData_VersionGate(t *testing.T) {
	m := NewChunkManager()
	m.ApplyTerraform(SphereAdd, V3(0, 10, 0), 8, 1)

	key := WorldToChunk(V3(0, 10, 0))
	if key != (ChunkKey{0, 0, 0}) {
		t.Fatalf("world_to_chunk: %v", key)
	}

	if _, ok := m.ChunkData(key, 1); ok {
		t.Fatalf("current client should get no data")
	}
	if _, ok := m.ChunkData(key, 99); ok {
		t.Fatalf("ahead-of-server client should get no data")
	}

	msg, ok := m.ChunkData(key, 0)
	if !ok {
		t.Fatalf("stale client should get data")
	}
	if msg.Version != 1 || !msg.Compressed {
		t.Fatalf("chunk data header: %+v", msg)
	}

	voxels, err := m.DecodeChunkData(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	c, _ := m.Lookup(key)
	for i := range voxels {
		if voxels[i] != c.Voxels[i] {
			t.Fatalf("payload mismatch at %d", i)
		}
	}
}

func TestChunkData_UnknownChunk(t *testing.T) {
	m := NewChunkManager()
	if _, ok := m.ChunkData(ChunkKey{9, 9, 9}, 0); ok {
		t.Fatalf("unknown chunk returned data")
	}
}

func TestRaycast_HitAndMiss(t *testing.T) {
	m := NewChunkManager()
	m.ApplyTerraform(SphereAdd, V3(0, 0, 10), 2, 1)

	hit, ok := m.Raycast(V3(0, 0, 0), V3(0, 0, 1), 30)
	if !ok {
		t.Fatalf("expected hit")
	}
	if hit.Distance < 7 || hit.Distance > 9 {
		t.Fatalf("hit distance %.2f", hit.Distance)
	}
	// Normal faces back toward the ray origin.
	if hit.Normal.Z >= 0 {
		t.Fatalf("normal %v", hit.Normal)
	}

	if _, ok := m.Raycast(V3(0, 0, 0), V3(0, 0, -1), 30); ok {
		t.Fatalf("expected miss behind the ray")
	}
	if _, ok := m.Raycast(V3(0, 0, 0), V3(0, 0, 1), 5); ok {
		t.Fatalf("expected miss beyond max distance")
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	m := NewChunkManager()
	m.ApplyTerraform(SphereAdd, V3(0, 10, 0), 8, 3)
	m.ApplyTerraform(SphereSub, V3(4, 10, 0), 2, 0)

	exported := m.Export()
	if len(exported) == 0 {
		t.Fatalf("nothing exported")
	}

	restored := NewChunkManager()
	if err := restored.Import(exported); err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, in := range exported {
		c, ok := restored.Lookup(ChunkKey{in.CX, in.CY, in.CZ})
		if !ok {
			t.Fatalf("chunk (%d,%d,%d) missing after import", in.CX, in.CY, in.CZ)
		}
		if c.Version != in.Version {
			t.Fatalf("version %d != %d", c.Version, in.Version)
		}
		for i := range in.Voxels {
			if c.Voxels[i] != in.Voxels[i] {
				t.Fatalf("voxel mismatch at %d", i)
			}
		}
	}

	// Import clears modified: nothing to export until the next edit.
	if got := restored.Export(); len(got) != 0 {
		t.Fatalf("re-export after import: %d chunks", len(got))
	}
	restored.ApplyTerraform(SphereAdd, V3(0, 10, 0), 1, 5)
	if got := restored.Export(); len(got) == 0 {
		t.Fatalf("edit after import not exported")
	}
}
