// Package format houses low-level decoders for the DGT asset container format.
// The goal is to keep the parsing focused, bounds-checked and independent from
// the public API so higher-level packages can orchestrate the data in a more
// ergonomic form.
package format

// Magic is the four-byte signature at the start of every container.
// Layout:
//
//	0x00  'D' 'G' 'T' 0x01
var Magic = []byte{'D', 'G', 'T', 0x01}

const (
	// HeaderSize is the size of the fixed container header in bytes.
	HeaderSize = 40

	// Header field offsets (little-endian).
	MagicOffset      = 0x00
	MagicSize        = 4
	VersionOffset    = 0x04 // u32
	BuildTimeOffset  = 0x08 // f64, unix seconds
	ChecksumOffset   = 0x10
	ChecksumSize     = 16
	AssetCountOffset = 0x20 // u32
	DataOffsetOffset = 0x24 // u32

	// DefaultMaxInflateSize bounds every inflate (payload and blobs) unless
	// the caller picks another limit.
	DefaultMaxInflateSize = 64 << 20

	// DefaultMaxExpandedCells bounds RLE expansion of a single tile map.
	DefaultMaxExpandedCells = 1 << 24

	// zlib (RFC 1950) header fields.
	zlibMethodDeflate = 8
	zlibMaxWindowBits = 7
	zlibFlagDict      = 0x20

	// deflate (RFC 1951) BTYPE values checked before inflating a candidate.
	deflateBlockStored   = 0
	deflateBlockReserved = 3
)
