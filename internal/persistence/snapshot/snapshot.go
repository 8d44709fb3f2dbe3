package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// WorldStateV1 is the on-disk world state: modified chunks plus persistent
// entities. Player entities are excluded; they are respawned per session.
type WorldStateV1 struct {
	Header Header `json:"header"`

	Chunks []ChunkV1 `json:"chunks"`
	NPCs   []NPCV1   `json:"npcs"`

	NextEntityID uint64 `json:"next_entity_id,omitempty"`
}

type ChunkV1 struct {
	CX      int    `json:"cx"`
	CY      int    `json:"cy"`
	CZ      int    `json:"cz"`
	Version uint64 `json:"version"`
	Voxels  []byte `json:"voxels"`
}

type NPCV1 struct {
	EntityID     uint64     `json:"entity_id"`
	Pos          [3]float64 `json:"pos"`
	Rot          [3]float64 `json:"rot"`
	HP           float64    `json:"hp"`
	ViewDistance float64    `json:"view_distance,omitempty"`
	FOVDegrees   float64    `json:"fov_degrees,omitempty"`
}

func Write(path string, state WorldStateV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(state.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&state); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func Read(path string) (WorldStateV1, error) {
	var state WorldStateV1
	f, err := os.Open(path)
	if err != nil {
		return state, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return state, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is a plain-text peek aid; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&state); err != nil {
		return state, fmt.Errorf("gob decode: %w", err)
	}
	return state, nil
}
