//go:build unix

package mmfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// region owns the mapping and the descriptor it was made from.
type region struct {
	f      *os.File
	data   []byte
	mapped bool
}

func mapRegion(path string) (*region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.WrapIO("open container", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, types.WrapIO("stat container", err)
	}
	size := info.Size()
	if size == 0 {
		// mmap rejects zero-length mappings; an empty file has nothing to map.
		return &region{f: f, data: []byte{}}, nil
	}
	if size > int64(^uint(0)>>1) {
		_ = f.Close()
		return nil, types.WrapIO("map container", fmt.Errorf("file too large to map (%d bytes)", size))
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, types.WrapIO("mmap container", err)
	}
	// Header and payload are read front to back once; ignore failures, the
	// hint is advisory.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &region{f: f, data: data, mapped: true}, nil
}

// release unmaps and closes. Safe to call more than once.
func (r *region) release() error {
	var firstErr error
	if r.mapped {
		if err := unix.Munmap(r.data); err != nil {
			firstErr = types.WrapIO("munmap container", err)
		}
		r.mapped = false
	}
	r.data = nil
	if r.f != nil {
		if err := r.f.Close(); err != nil && firstErr == nil {
			firstErr = types.WrapIO("close container", err)
		}
		r.f = nil
	}
	return firstErr
}
