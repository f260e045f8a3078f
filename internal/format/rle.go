package format

import (
	"fmt"
	"math"
)

// Run is one (value, count) pair of a run-length encoded tile map. It is
// encoded as a two-element CBOR array.
type Run struct {
	_ struct{} `cbor:",toarray"`

	Value int32
	Count int64
}

// ExpandRLE concatenates Value repeated Count times for each run, in order,
// bounded by DefaultMaxExpandedCells.
func ExpandRLE(runs []Run) ([]int32, error) {
	return ExpandRLELimit(runs, DefaultMaxExpandedCells)
}

// ExpandRLELimit is ExpandRLE with an explicit cap on the number of output
// cells. maxCells <= 0 disables the cap. A non-positive count is a malformed
// stream and fails with ErrMalformedRLE.
func ExpandRLELimit(runs []Run, maxCells int) ([]int32, error) {
	total := 0
	for i, r := range runs {
		if r.Count <= 0 {
			return nil, fmt.Errorf("run %d: count %d: %w", i, r.Count, ErrMalformedRLE)
		}
		if r.Count > int64(math.MaxInt-total) {
			return nil, fmt.Errorf("run %d: total length overflows: %w", i, ErrMalformedRLE)
		}
		total += int(r.Count)
		if maxCells > 0 && total > maxCells {
			return nil, fmt.Errorf("run %d: expands past %d cells: %w", i, maxCells, ErrMalformedRLE)
		}
	}

	out := make([]int32, 0, total)
	for _, r := range runs {
		for n := int64(0); n < r.Count; n++ {
			out = append(out, r.Value)
		}
	}
	return out, nil
}
