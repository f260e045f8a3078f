package format

import (
	"errors"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

func encodeBlob(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := cbor.Marshal(v)
	if err != nil {
		t.Fatalf("cbor marshal: %v", err)
	}
	return deflate(t, raw)
}

func TestDecodePixelGrid(t *testing.T) {
	want := [][]int32{{0, 1, -1}, {2, 2, 2}}
	got, err := DecodePixelGrid(encodeBlob(t, want), 0)
	if err != nil {
		t.Fatalf("DecodePixelGrid: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("grid = %v, want %v", got, want)
	}
}

func TestDecodeObjectRecord(t *testing.T) {
	blob := encodeBlob(t, map[string]any{
		"pixels":   [][]int32{{1, 1}},
		"palette":  "wood",
		"metadata": map[string]any{"solid": true, "size": map[string]any{"w": 2}},
	})
	rec, err := DecodeObjectRecord(blob, 0)
	if err != nil {
		t.Fatalf("DecodeObjectRecord: %v", err)
	}
	if rec.Palette != "wood" || len(rec.Pixels) != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, ok := rec.Metadata["size"].(map[string]any); !ok {
		t.Fatalf("nested maps should decode as map[string]any, got %T", rec.Metadata["size"])
	}
}

func TestDecodeRuns(t *testing.T) {
	blob := encodeBlob(t, [][]int64{{5, 3}, {0, 2}})
	runs, err := DecodeRuns(blob, 0)
	if err != nil {
		t.Fatalf("DecodeRuns: %v", err)
	}
	tiles, err := ExpandRLE(runs)
	if err != nil {
		t.Fatalf("ExpandRLE: %v", err)
	}
	if want := []int32{5, 5, 5, 0, 0}; !reflect.DeepEqual(tiles, want) {
		t.Fatalf("tiles = %v, want %v", tiles, want)
	}
}

func TestDecodeRejectsWrongShape(t *testing.T) {
	_, err := DecodePixelGrid(encodeBlob(t, map[string]int{"not": 1}), 0)
	if !errors.Is(err, types.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
	_, err = DecodeRuns([]byte("not compressed"), 0)
	if !errors.Is(err, types.ErrFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}
