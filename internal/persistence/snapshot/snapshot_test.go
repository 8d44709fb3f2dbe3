package snapshot

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func sampleState() WorldStateV1 {
	voxels := make([]byte, 32*32*32)
	for i := 0; i < 64; i++ {
		voxels[i] = byte(i % 5)
	}
	return WorldStateV1{
		Header: Header{Version: 1, WorldID: "w_snap", Tick: 1234},
		Chunks: []ChunkV1{
			{CX: 0, CY: 0, CZ: 0, Version: 3, Voxels: voxels},
			{CX: -1, CY: 0, CZ: 2, Version: 1, Voxels: voxels},
		},
		NPCs: []NPCV1{
			{EntityID: 7, Pos: [3]float64{10, 0, 10}, HP: 80, ViewDistance: 20, FOVDegrees: 90},
		},
		NextEntityID: 42,
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worlds", "w_snap", "snapshot_000000001234.zst")

	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := sampleState()
	if got.Header != want.Header {
		t.Fatalf("header: %+v", got.Header)
	}
	if len(got.Chunks) != 2 || got.Chunks[1].CX != -1 || got.Chunks[1].CZ != 2 {
		t.Fatalf("chunks: %+v", got.Chunks)
	}
	if !bytes.Equal(got.Chunks[0].Voxels, want.Chunks[0].Voxels) {
		t.Fatalf("voxel payload corrupted")
	}
	if len(got.NPCs) != 1 || got.NPCs[0] != want.NPCs[0] {
		t.Fatalf("npcs: %+v", got.NPCs)
	}
	if got.NextEntityID != 42 {
		t.Fatalf("next entity id: %d", got.NextEntityID)
	}
}

func TestWrite_HeaderLineIsPlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.zst")
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read header line: %v", err)
	}
	if !bytes.Contains(line, []byte(`"world_id":"w_snap"`)) || !bytes.Contains(line, []byte(`"tick":1234`)) {
		t.Fatalf("header line: %s", line)
	}
}

func TestRead_MissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.zst")); err == nil {
		t.Fatalf("expected an error")
	}
}
