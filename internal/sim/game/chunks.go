package game

import (
	"encoding/base64"
	"fmt"
	"math"
	"sort"

	"github.com/klauspost/compress/zstd"

	"playerworld.gg/internal/persistence/snapshot"
	"playerworld.gg/internal/protocol"
)

const (
	ChunkSize   = 32
	chunkVoxels = ChunkSize * ChunkSize * ChunkSize

	// Raycast marching step. Small enough that a 1-voxel wall cannot be
	// stepped over at any angle.
	rayStep = 0.25
)

type ChunkKey struct {
	CX, CY, CZ int
}

func (k ChunkKey) Arr() [3]int { return [3]int{k.CX, k.CY, k.CZ} }

// Chunk holds 32³ material ids (0 = air). Version bumps exactly once per
// terraform op that touches the chunk; it is the sole basis for delta
// sync.
type Chunk struct {
	Key     ChunkKey
	Voxels  []byte
	Version uint64

	modified bool
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then y, then z.
	return x + y*ChunkSize + z*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) byte { return c.Voxels[c.index(x, y, z)] }

func (c *Chunk) set(x, y, z int, m byte) { c.Voxels[c.index(x, y, z)] = m }

type TerraformOp int

const (
	SphereAdd TerraformOp = iota + 1
	SphereSub
	Paint
)

func TerraformOpFromWire(s string) (TerraformOp, bool) {
	switch s {
	case protocol.OpSphereAdd:
		return SphereAdd, true
	case protocol.OpSphereSub:
		return SphereSub, true
	case protocol.OpPaint:
		return Paint, true
	}
	return 0, false
}

func (op TerraformOp) Wire() string {
	switch op {
	case SphereAdd:
		return protocol.OpSphereAdd
	case SphereSub:
		return protocol.OpSphereSub
	case Paint:
		return protocol.OpPaint
	}
	return ""
}

type RayHit struct {
	Point    Vec3
	Normal   Vec3
	Distance float64
	Voxel    [3]int
}

// ChunkManager exclusively owns voxel terrain. Accessed only from the
// game loop goroutine; the zstd coders are reused across calls.
type ChunkManager struct {
	chunks map[ChunkKey]*Chunk

	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewChunkManager() *ChunkManager {
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	dec, _ := zstd.NewReader(nil)
	return &ChunkManager{
		chunks: map[ChunkKey]*Chunk{},
		enc:    enc,
		dec:    dec,
	}
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// WorldToChunk maps a world position to its chunk coordinate,
// floor(p / ChunkSize) component-wise.
func WorldToChunk(p Vec3) ChunkKey {
	return ChunkKey{
		CX: floorDiv(int(math.Floor(p.X)), ChunkSize),
		CY: floorDiv(int(math.Floor(p.Y)), ChunkSize),
		CZ: floorDiv(int(math.Floor(p.Z)), ChunkSize),
	}
}

func (m *ChunkManager) GetOrCreate(key ChunkKey) *Chunk {
	if c, ok := m.chunks[key]; ok {
		return c
	}
	c := &Chunk{Key: key, Voxels: make([]byte, chunkVoxels)}
	m.chunks[key] = c
	return c
}

func (m *ChunkManager) Lookup(key ChunkKey) (*Chunk, bool) {
	c, ok := m.chunks[key]
	return c, ok
}

func (m *ChunkManager) Len() int { return len(m.chunks) }

// VoxelAt returns the material at integer world coordinates; absent
// chunks read as air.
func (m *ChunkManager) VoxelAt(x, y, z int) byte {
	key := ChunkKey{floorDiv(x, ChunkSize), floorDiv(y, ChunkSize), floorDiv(z, ChunkSize)}
	c, ok := m.chunks[key]
	if !ok {
		return 0
	}
	return c.Get(mod(x, ChunkSize), mod(y, ChunkSize), mod(z, ChunkSize))
}

// Solid reports whether the voxel containing p is non-air.
func (m *ChunkManager) Solid(p Vec3) bool {
	return m.VoxelAt(int(math.Floor(p.X)), int(math.Floor(p.Y)), int(math.Floor(p.Z))) != 0
}

// ApplyTerraform edits every voxel within Euclidean radius of center and
// bumps each touched chunk's version exactly once. Returned versions are
// sorted by chunk coordinate for deterministic broadcasts.
func (m *ChunkManager) ApplyTerraform(op TerraformOp, center Vec3, radius float64, material byte) []protocol.ChunkVersion {
	if radius <= 0 {
		return nil
	}
	touched := map[ChunkKey]struct{}{}
	rr := radius * radius

	minX := int(math.Floor(center.X - radius))
	maxX := int(math.Ceil(center.X + radius))
	minY := int(math.Floor(center.Y - radius))
	maxY := int(math.Ceil(center.Y + radius))
	minZ := int(math.Floor(center.Z - radius))
	maxZ := int(math.Ceil(center.Z + radius))

	for z := minZ; z <= maxZ; z++ {
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				dx := float64(x) - center.X
				dy := float64(y) - center.Y
				dz := float64(z) - center.Z
				if dx*dx+dy*dy+dz*dz > rr {
					continue
				}
				key := ChunkKey{floorDiv(x, ChunkSize), floorDiv(y, ChunkSize), floorDiv(z, ChunkSize)}
				c := m.GetOrCreate(key)
				lx, ly, lz := mod(x, ChunkSize), mod(y, ChunkSize), mod(z, ChunkSize)
				switch op {
				case SphereAdd:
					c.set(lx, ly, lz, material)
				case SphereSub:
					c.set(lx, ly, lz, 0)
				case Paint:
					if c.Get(lx, ly, lz) != 0 {
						c.set(lx, ly, lz, material)
					}
				}
				touched[key] = struct{}{}
			}
		}
	}

	keys := make([]ChunkKey, 0, len(touched))
	for k := range touched {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.CX != b.CX {
			return a.CX < b.CX
		}
		if a.CY != b.CY {
			return a.CY < b.CY
		}
		return a.CZ < b.CZ
	})

	out := make([]protocol.ChunkVersion, 0, len(keys))
	for _, k := range keys {
		c := m.chunks[k]
		c.Version++
		c.modified = true
		out = append(out, protocol.ChunkVersion{ChunkID: k.Arr(), NewVersion: c.Version})
	}
	return out
}

// ChunkData answers a delta-sync request. Nothing is returned when the
// client is already current or the chunk does not exist.
func (m *ChunkManager) ChunkData(key ChunkKey, lastKnown uint64) (protocol.ChunkDataMsg, bool) {
	c, ok := m.chunks[key]
	if !ok || lastKnown >= c.Version {
		return protocol.ChunkDataMsg{}, false
	}
	compressed := m.enc.EncodeAll(c.Voxels, nil)
	return protocol.ChunkDataMsg{
		Type:       protocol.TypeChunkData,
		ChunkID:    key.Arr(),
		Version:    c.Version,
		Data:       base64.StdEncoding.EncodeToString(compressed),
		Compressed: true,
	}, true
}

// DecodeChunkData reverses the ChunkData payload framing.
func (m *ChunkManager) DecodeChunkData(msg protocol.ChunkDataMsg) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		return nil, err
	}
	if !msg.Compressed {
		return raw, nil
	}
	voxels, err := m.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, err
	}
	if len(voxels) != chunkVoxels {
		return nil, fmt.Errorf("chunk payload: got %d voxels, want %d", len(voxels), chunkVoxels)
	}
	return voxels, nil
}

// Raycast marches origin->direction at a fixed step and returns the first
// solid voxel hit. The normal is approximated from the previous sample
// point, which is good enough for impact effects and perception checks.
func (m *ChunkManager) Raycast(origin, direction Vec3, maxDist float64) (RayHit, bool) {
	dir := direction.Normalized()
	if dir == (Vec3{}) || maxDist <= 0 {
		return RayHit{}, false
	}
	prev := origin
	for d := rayStep; d <= maxDist; d += rayStep {
		p := origin.Add(dir.Scale(d))
		vx, vy, vz := int(math.Floor(p.X)), int(math.Floor(p.Y)), int(math.Floor(p.Z))
		if m.VoxelAt(vx, vy, vz) != 0 {
			return RayHit{
				Point:    p,
				Normal:   prev.Sub(p).Normalized(),
				Distance: d,
				Voxel:    [3]int{vx, vy, vz},
			}, true
		}
		prev = p
	}
	return RayHit{}, false
}

// Export serializes only chunks written since the last import.
func (m *ChunkManager) Export() []snapshot.ChunkV1 {
	keys := make([]ChunkKey, 0, len(m.chunks))
	for k, c := range m.chunks {
		if c.modified {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.CX != b.CX {
			return a.CX < b.CX
		}
		if a.CY != b.CY {
			return a.CY < b.CY
		}
		return a.CZ < b.CZ
	})
	out := make([]snapshot.ChunkV1, 0, len(keys))
	for _, k := range keys {
		c := m.chunks[k]
		voxels := make([]byte, chunkVoxels)
		copy(voxels, c.Voxels)
		out = append(out, snapshot.ChunkV1{CX: k.CX, CY: k.CY, CZ: k.CZ, Version: c.Version, Voxels: voxels})
	}
	return out
}

// Import restores chunk contents and versions verbatim and clears the
// modified flag so an immediate re-export is empty.
func (m *ChunkManager) Import(chunks []snapshot.ChunkV1) error {
	for _, in := range chunks {
		if len(in.Voxels) != chunkVoxels {
			return fmt.Errorf("chunk (%d,%d,%d): got %d voxels, want %d", in.CX, in.CY, in.CZ, len(in.Voxels), chunkVoxels)
		}
		c := m.GetOrCreate(ChunkKey{in.CX, in.CY, in.CZ})
		copy(c.Voxels, in.Voxels)
		c.Version = in.Version
		c.modified = false
	}
	return nil
}
