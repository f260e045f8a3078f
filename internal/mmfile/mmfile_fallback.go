//go:build !unix

package mmfile

import (
	"os"

	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// region holds the file contents read into memory when mmap is not available.
type region struct {
	data []byte
}

func mapRegion(path string) (*region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapIO("read container", err)
	}
	return &region{data: data}, nil
}

func (r *region) release() error {
	r.data = nil
	return nil
}
