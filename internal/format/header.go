package format

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/rfd62794/rpgCore-sub007/internal/buf"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// Header is the fixed 40-byte container header.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x00    4    'D' 'G' 'T' 0x01
//	 0x04    4    Format version (u32)
//	 0x08    8    Build time, unix seconds (f64)
//	 0x10   16    Checksum (raw bytes, advisory)
//	 0x20    4    Asset count (u32, advisory)
//	 0x24    4    Data offset: where the payload region starts (u32)
//
// Everything is stored little-endian.
type Header struct {
	Version    uint32
	BuildTime  float64
	Checksum   [ChecksumSize]byte
	AssetCount uint32
	DataOffset uint32
}

// ParseHeader validates the magic and extracts the header fields.
func ParseHeader(b []byte) (Header, error) {
	if !buf.Has(b, 0, HeaderSize) {
		return Header{}, fmt.Errorf("container header (%d bytes): %w", len(b), ErrTruncated)
	}
	if !HasMagic(b) {
		return Header{}, ErrBadMagic
	}
	var h Header
	h.Version = buf.U32LE(b[VersionOffset:])
	h.BuildTime = buf.F64LE(b[BuildTimeOffset:])
	copy(h.Checksum[:], b[ChecksumOffset:ChecksumOffset+ChecksumSize])
	h.AssetCount = buf.U32LE(b[AssetCountOffset:])
	h.DataOffset = buf.U32LE(b[DataOffsetOffset:])
	return h, nil
}

// HasMagic reports whether b starts with the container magic. It never
// panics; buffers shorter than the magic return false.
func HasMagic(b []byte) bool {
	head, ok := buf.Slice(b, MagicOffset, MagicSize)
	return ok && bytes.Equal(head, Magic)
}

// ValidateSanity checks the header against the real file size.
func (h Header) ValidateSanity(fileSize int64) error {
	if int64(h.DataOffset) > fileSize {
		return &types.Error{
			Kind: types.ErrKindFormat,
			Msg:  fmt.Sprintf("data_offset %d beyond file size %d", h.DataOffset, fileSize),
		}
	}
	return nil
}

// BuildTimeUTC converts the build timestamp. NaN/Inf yield the zero time.
func (h Header) BuildTimeUTC() time.Time {
	if math.IsNaN(h.BuildTime) || math.IsInf(h.BuildTime, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(h.BuildTime)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// ChecksumHex returns the checksum hex-encoded, the way it is displayed.
func (h Header) ChecksumHex() string {
	return hex.EncodeToString(h.Checksum[:])
}

// ChecksumRecorded reports whether the builder filled in a checksum.
// An all-zero checksum means none was recorded.
func (h Header) ChecksumRecorded() bool {
	return h.Checksum != [ChecksumSize]byte{}
}
