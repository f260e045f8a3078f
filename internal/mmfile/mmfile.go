// Package mmfile provides a read-only memory mapping of a container file with
// bounded, lock-serialized accessors.
//
// Close is the release mechanism: callers pair every Open with a deferred
// Close. A runtime cleanup is attached as a backstop for a forgotten Close and
// is cancelled once Close runs.
package mmfile

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/rfd62794/rpgCore-sub007/internal/buf"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// File is a read-only mapped file. All methods are safe for concurrent use.
type File struct {
	mu       sync.Mutex
	path     string
	size     int64
	r        *region
	closed   bool
	backstop runtime.Cleanup
}

// Open maps the file at path read-only.
func Open(path string) (*File, error) {
	r, err := mapRegion(path)
	if err != nil {
		return nil, err
	}
	f := &File{
		path: path,
		size: int64(len(r.data)),
		r:    r,
	}
	f.backstop = runtime.AddCleanup(f, func(r *region) { _ = r.release() }, r)
	return f, nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// Size returns the mapped length in bytes.
func (f *File) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, types.ErrClosed
	}
	return f.size, nil
}

// Read returns a copy of size bytes starting at offset.
func (f *File) Read(offset, size int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, types.ErrClosed
	}
	b, ok := buf.Slice(f.r.data, offset, size)
	if !ok {
		return nil, outOfRange(offset, size, f.size)
	}
	return append([]byte(nil), b...), nil
}

// Slice returns a copy of everything from offset to the end of the file.
func (f *File) Slice(offset int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, types.ErrClosed
	}
	if offset < 0 || offset > len(f.r.data) {
		return nil, outOfRange(offset, 0, f.size)
	}
	return append([]byte(nil), f.r.data[offset:]...), nil
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, types.ErrClosed
	}
	if off < 0 {
		return 0, outOfRange(int(off), len(p), f.size)
	}
	if off >= f.size {
		return 0, io.EOF
	}
	n := copy(p, f.r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// View calls fn with the mapped bytes while holding the file lock. fn must
// not retain the slice or any sub-slice of it after returning.
func (f *File) View(fn func(data []byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return types.ErrClosed
	}
	return fn(f.r.data)
}

// Close releases the mapping and the file handle. It is idempotent.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.backstop.Stop()
	err := f.r.release()
	f.r = nil
	return err
}

// Closed reports whether Close has run.
func (f *File) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func outOfRange(offset, size int, fileSize int64) error {
	return &types.Error{
		Kind: types.ErrKindFormat,
		Msg:  fmt.Sprintf("read [%d:+%d] outside mapped size %d", offset, size, fileSize),
	}
}
