// Package testutil builds synthetic asset containers for tests.
//
// Production code never authors containers; this builder exists so tests can
// produce well-formed and deliberately broken files without checked-in
// binaries.
package testutil

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/rfd62794/rpgCore-sub007/internal/format"
)

// ObjectSpec describes one object blob.
type ObjectSpec struct {
	Pixels   [][]int32
	Palette  string
	Metadata map[string]any
}

// PlacementSpec describes one object placed in an environment.
type PlacementSpec struct {
	Type string
	X, Y int
}

// Builder assembles a container. The zero value is not usable; call NewBuilder.
type Builder struct {
	Magic     []byte
	Version   uint32
	BuildTime float64
	Preamble  []byte // bytes between data_offset and the compressed block

	// AssetCount overrides the computed header asset_count when non-nil.
	AssetCount *uint32
	// Checksum overrides the computed checksum when non-nil.
	Checksum *[format.ChecksumSize]byte
	// DataOffset overrides the header data_offset when non-nil.
	DataOffset *uint32
	// SchemaVersion is written as schema_version when non-zero.
	SchemaVersion uint64

	sections map[string]map[string]any
	omitted  map[string]bool
	assets   int
}

// NewBuilder returns a builder with every required section present and empty.
func NewBuilder() *Builder {
	b := &Builder{
		Magic:     append([]byte(nil), format.Magic...),
		Version:   1,
		BuildTime: 1700000000,
		omitted:   map[string]bool{},
	}
	b.sections = map[string]map[string]any{
		"sprite_bank": {
			"sprites":  map[string][]byte{},
			"palettes": map[string][][]int{},
			"metadata": map[string]map[string]any{},
		},
		"tile_registry": {
			"tiles": map[string]map[string]any{},
		},
		"object_registry": {
			"objects":      map[string][]byte{},
			"interactions": map[string]string{},
		},
		"environment_registry": {
			"maps":              map[string][]byte{},
			"dimensions":        map[string][]int{},
			"object_placements": map[string][]map[string]any{},
			"npc_placements":    map[string][]map[string]any{},
			"metadata":          map[string]map[string]any{},
		},
		"interaction_registry": {
			"interactions":  map[string]map[string]any{},
			"dialogue_sets": map[string][]map[string]any{},
		},
	}
	return b
}

// Sprite adds a character sprite with optional metadata.
func (b *Builder) Sprite(id string, grid [][]int32, meta map[string]any) *Builder {
	return b.RawSprite(id, MustBlob(grid), meta)
}

// RawSprite adds a sprite with an arbitrary (possibly corrupt) blob.
func (b *Builder) RawSprite(id string, blob []byte, meta map[string]any) *Builder {
	bank := b.sections["sprite_bank"]
	bank["sprites"].(map[string][]byte)[id] = blob
	if meta != nil {
		bank["metadata"].(map[string]map[string]any)[id] = meta
	}
	b.assets++
	return b
}

// Palette adds a palette; colors are [r,g,b] or [r,g,b,a].
func (b *Builder) Palette(id string, colors ...[]int) *Builder {
	b.sections["sprite_bank"]["palettes"].(map[string][][]int)[id] = colors
	return b
}

// Tile adds a tile definition.
func (b *Builder) Tile(id string, def map[string]any) *Builder {
	b.sections["tile_registry"]["tiles"].(map[string]map[string]any)[id] = def
	b.assets++
	return b
}

// Object adds an object blob and, when interaction is non-empty, its mapping.
func (b *Builder) Object(id string, spec ObjectSpec, interaction string) *Builder {
	rec := map[string]any{"pixels": spec.Pixels}
	if spec.Palette != "" {
		rec["palette"] = spec.Palette
	}
	if spec.Metadata != nil {
		rec["metadata"] = spec.Metadata
	}
	return b.RawObject(id, MustBlob(rec), interaction)
}

// RawObject adds an object with an arbitrary (possibly corrupt) blob.
func (b *Builder) RawObject(id string, blob []byte, interaction string) *Builder {
	reg := b.sections["object_registry"]
	reg["objects"].(map[string][]byte)[id] = blob
	if interaction != "" {
		reg["interactions"].(map[string]string)[id] = interaction
	}
	b.assets++
	return b
}

// Environment adds an RLE tile map with dimensions, placements and NPCs.
// Each run is a [value, count] pair.
func (b *Builder) Environment(id string, w, h int, runs [][2]int64, objects []PlacementSpec, npcs []map[string]any) *Builder {
	pairs := make([][]int64, len(runs))
	for i, r := range runs {
		pairs[i] = []int64{r[0], r[1]}
	}
	b.RawEnvironment(id, MustBlob(pairs), objects, npcs)
	b.sections["environment_registry"]["dimensions"].(map[string][]int)[id] = []int{w, h}
	return b
}

// RawEnvironment adds an environment map blob without dimensions.
func (b *Builder) RawEnvironment(id string, blob []byte, objects []PlacementSpec, npcs []map[string]any) *Builder {
	reg := b.sections["environment_registry"]
	reg["maps"].(map[string][]byte)[id] = blob
	if objects != nil {
		ps := make([]map[string]any, len(objects))
		for i, p := range objects {
			ps[i] = map[string]any{"type": p.Type, "position": []int{p.X, p.Y}}
		}
		reg["object_placements"].(map[string][]map[string]any)[id] = ps
	}
	if npcs != nil {
		reg["npc_placements"].(map[string][]map[string]any)[id] = npcs
	}
	b.assets++
	return b
}

// EnvironmentMeta records metadata for an environment.
func (b *Builder) EnvironmentMeta(id string, meta map[string]any) *Builder {
	b.sections["environment_registry"]["metadata"].(map[string]map[string]any)[id] = meta
	return b
}

// Interaction adds an interaction definition.
func (b *Builder) Interaction(id string, def map[string]any) *Builder {
	b.sections["interaction_registry"]["interactions"].(map[string]map[string]any)[id] = def
	return b
}

// DialogueSet adds a dialogue set.
func (b *Builder) DialogueSet(id string, lines ...map[string]any) *Builder {
	b.sections["interaction_registry"]["dialogue_sets"].(map[string][]map[string]any)[id] = lines
	return b
}

// Omit drops a required section from the payload.
func (b *Builder) Omit(section string) *Builder {
	b.omitted[section] = true
	return b
}

// Assets returns the number of assets added so far.
func (b *Builder) Assets() int { return b.assets }

// Payload returns the uncompressed CBOR payload.
func (b *Builder) Payload() []byte {
	top := map[string]any{}
	for name, sec := range b.sections {
		if !b.omitted[name] {
			top[name] = sec
		}
	}
	if b.SchemaVersion != 0 {
		top["schema_version"] = b.SchemaVersion
	}
	raw, err := cbor.Marshal(top)
	if err != nil {
		panic("testutil: encode payload: " + err.Error())
	}
	return raw
}

// Bytes returns the complete container file.
func (b *Builder) Bytes() []byte {
	return b.Assemble(Deflate(b.Payload()))
}

// Assemble writes the header and preamble in front of an already compressed
// (or deliberately not compressed) payload.
func (b *Builder) Assemble(block []byte) []byte {
	region := append(append([]byte(nil), b.Preamble...), block...)

	hdr := make([]byte, format.HeaderSize)
	copy(hdr, b.Magic)
	binary.LittleEndian.PutUint32(hdr[format.VersionOffset:], b.Version)
	binary.LittleEndian.PutUint64(hdr[format.BuildTimeOffset:], math.Float64bits(b.BuildTime))

	sum := md5.Sum(region)
	if b.Checksum != nil {
		sum = *b.Checksum
	}
	copy(hdr[format.ChecksumOffset:], sum[:])

	count := uint32(b.assets)
	if b.AssetCount != nil {
		count = *b.AssetCount
	}
	binary.LittleEndian.PutUint32(hdr[format.AssetCountOffset:], count)

	off := uint32(format.HeaderSize)
	if b.DataOffset != nil {
		off = *b.DataOffset
	}
	binary.LittleEndian.PutUint32(hdr[format.DataOffsetOffset:], off)

	return append(hdr, region...)
}

// Write writes the container into a fresh temp dir and returns its path.
func (b *Builder) Write(t testing.TB) string {
	t.Helper()
	return WriteFile(t, "assets.dgt", b.Bytes())
}

// WriteFile writes data to name inside a fresh temp dir.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Deflate zlib-compresses data.
func Deflate(data []byte) []byte {
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return out.Bytes()
}

// MustBlob CBOR-encodes v and compresses it, the way asset blobs are stored.
func MustBlob(v any) []byte {
	raw, err := cbor.Marshal(v)
	if err != nil {
		panic("testutil: encode blob: " + err.Error())
	}
	return Deflate(raw)
}

// U32 returns a pointer to v, for the header override fields.
func U32(v uint32) *uint32 { return &v }
