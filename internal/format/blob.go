package format

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// decMode is shared by every record decoder. Container contents are treated
// as untrusted: duplicate map keys are rejected and nesting is capped.
var decMode = mustDecMode()

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels:  32,
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 20,
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("format: invalid cbor decode options: " + err.Error())
	}
	return dm
}

// Unmarshal decodes one CBOR record into v.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return &types.Error{Kind: types.ErrKindFormat, Msg: "decode record", Err: err}
	}
	return nil
}

// ObjectRecord is the decoded form of an object blob.
type ObjectRecord struct {
	Pixels   [][]int32      `cbor:"pixels"`
	Palette  string         `cbor:"palette,omitempty"`
	Metadata map[string]any `cbor:"metadata,omitempty"`
}

// DecodePixelGrid inflates a sprite blob into its indexed pixel grid.
func DecodePixelGrid(blob []byte, limit int64) ([][]int32, error) {
	raw, err := Inflate(blob, limit)
	if err != nil {
		return nil, err
	}
	var grid [][]int32
	if err := Unmarshal(raw, &grid); err != nil {
		return nil, err
	}
	return grid, nil
}

// DecodeObjectRecord inflates an object blob.
func DecodeObjectRecord(blob []byte, limit int64) (ObjectRecord, error) {
	raw, err := Inflate(blob, limit)
	if err != nil {
		return ObjectRecord{}, err
	}
	var rec ObjectRecord
	if err := Unmarshal(raw, &rec); err != nil {
		return ObjectRecord{}, err
	}
	return rec, nil
}

// DecodeRuns inflates an environment map blob into its RLE runs.
func DecodeRuns(blob []byte, limit int64) ([]Run, error) {
	raw, err := Inflate(blob, limit)
	if err != nil {
		return nil, err
	}
	var runs []Run
	if err := Unmarshal(raw, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
