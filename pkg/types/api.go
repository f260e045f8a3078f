package types

import "fmt"

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat        ErrKind = iota // bad magic, missing compressed block, malformed RLE or blob
	ErrKindSchema                       // payload decoded but does not match the registry schema
	ErrKindUseAfterClose                // access to a mapped file after Close
	ErrKindNotFound                     // unknown asset id (soft miss; never escapes create_*)
	ErrKindIO                           // OS failure opening or mapping the container
)

// String returns a short name for the kind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindFormat:
		return "format"
	case ErrKindSchema:
		return "schema"
	case ErrKindUseAfterClose:
		return "use-after-close"
	case ErrKindNotFound:
		return "not-found"
	case ErrKindIO:
		return "io"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with an empty Msg is a
// category sentinel and matches every error of its kind; otherwise the
// messages must be equal too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

// Category sentinels. errors.Is(err, ErrFormat) holds for any format error.
var (
	ErrFormat        = &Error{Kind: ErrKindFormat}
	ErrSchema        = &Error{Kind: ErrKindSchema}
	ErrUseAfterClose = &Error{Kind: ErrKindUseAfterClose}
	ErrNotFound      = &Error{Kind: ErrKindNotFound}
	ErrIO            = &Error{Kind: ErrKindIO}
)

// Specific sentinels commonly returned by implementations.
var (
	// ErrBadMagic indicates the container does not start with the DGT\x01 magic.
	ErrBadMagic = &Error{Kind: ErrKindFormat, Msg: "bad magic"}
	// ErrNoCompressedBlock indicates no compressed stream follows data_offset.
	ErrNoCompressedBlock = &Error{Kind: ErrKindFormat, Msg: "no compressed block"}
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = &Error{Kind: ErrKindFormat, Msg: "truncated buffer"}
	// ErrMalformedRLE indicates a run with a non-positive count.
	ErrMalformedRLE = &Error{Kind: ErrKindFormat, Msg: "malformed rle stream"}
	// ErrClosed indicates a mapped file was used after Close.
	ErrClosed = &Error{Kind: ErrKindUseAfterClose, Msg: "mapped file is closed"}
)

// Formatf builds a format error with a formatted message.
func Formatf(format string, args ...any) *Error {
	return &Error{Kind: ErrKindFormat, Msg: fmt.Sprintf(format, args...)}
}

// Schemaf builds a schema error with a formatted message.
func Schemaf(format string, args ...any) *Error {
	return &Error{Kind: ErrKindSchema, Msg: fmt.Sprintf(format, args...)}
}

// WrapIO wraps an OS error as an IO error.
func WrapIO(msg string, err error) *Error {
	return &Error{Kind: ErrKindIO, Msg: msg, Err: err}
}
