package format

import "github.com/rfd62794/rpgCore-sub007/pkg/types"

// Re-exported so decoders in this package read naturally; all of them are
// *types.Error values and match through errors.Is.
var (
	ErrBadMagic          = types.ErrBadMagic
	ErrTruncated         = types.ErrTruncated
	ErrNoCompressedBlock = types.ErrNoCompressedBlock
	ErrMalformedRLE      = types.ErrMalformedRLE
)
