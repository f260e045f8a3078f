package format

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/rfd62794/rpgCore-sub007/internal/buf"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// IsZlibHeader reports whether cmf/flg form a valid zlib stream header:
// deflate method, window of at most 32 KiB, no preset dictionary, and the
// FCHECK bits making (CMF<<8 | FLG) a multiple of 31.
func IsZlibHeader(cmf, flg byte) bool {
	if cmf&0x0f != zlibMethodDeflate || cmf>>4 > zlibMaxWindowBits {
		return false
	}
	if flg&zlibFlagDict != 0 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// FindCompressedBlock returns the offset of the first zlib header candidate
// in region, or false if there is none. A candidate is not guaranteed to
// inflate; see LocateAndInflate.
func FindCompressedBlock(region []byte) (int, bool) {
	return nextCandidate(region, 0)
}

func nextCandidate(region []byte, from int) (int, bool) {
	for i := from; i+1 < len(region); i++ {
		if IsZlibHeader(region[i], region[i+1]) {
			return i, true
		}
	}
	return 0, false
}

// LocateAndInflate scans region (the bytes from data_offset to EOF) for the
// compressed payload. The payload may be preceded by a preamble of arbitrary
// length, and the preamble itself may contain byte pairs that look like a
// zlib header, so every candidate is tried in order and the first one that
// inflates cleanly wins. It returns the candidate's offset within region.
func LocateAndInflate(region []byte, limit int64) (int, []byte, error) {
	var lastErr error
	for off, ok := nextCandidate(region, 0); ok; off, ok = nextCandidate(region, off+1) {
		if !plausibleDeflateStart(region[off+2:]) {
			continue
		}
		out, err := Inflate(region[off:], limit)
		if err == nil {
			return off, out, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return 0, nil, &types.Error{Kind: types.ErrKindFormat, Msg: ErrNoCompressedBlock.Msg, Err: lastErr}
	}
	return 0, nil, ErrNoCompressedBlock
}

// plausibleDeflateStart reports whether b, the bytes after a zlib header,
// can open a deflate stream: the first block type must not be the reserved
// value, and a stored block needs LEN and NLEN to be complements.
func plausibleDeflateStart(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	switch (b[0] >> 1) & 3 {
	case deflateBlockReserved:
		return false
	case deflateBlockStored:
		if len(b) < 5 {
			return false
		}
		return buf.U16LE(b[1:])^buf.U16LE(b[3:]) == 0xffff
	}
	return true
}

// Inflate decompresses one zlib stream from src. Output larger than limit is
// rejected; limit <= 0 selects DefaultMaxInflateSize. Bytes after the end of
// the stream are ignored.
func Inflate(src []byte, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxInflateSize
	}
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "inflate", Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "inflate", Err: err}
	}
	if int64(len(out)) > limit {
		return nil, &types.Error{
			Kind: types.ErrKindFormat,
			Msg:  fmt.Sprintf("inflated size exceeds limit of %d bytes", limit),
		}
	}
	return out, nil
}
