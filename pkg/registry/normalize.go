package registry

import (
	"golang.org/x/text/unicode/norm"

	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// NormalizeID returns the NFC form of an asset id. Build tools on different
// platforms emit composed or decomposed ids; lookups must treat them alike.
func NormalizeID(id string) string {
	if norm.NFC.IsNormalString(id) {
		return id
	}
	return norm.NFC.String(id)
}

// normalizeKeys rewrites m with NFC keys. Two keys that collapse to the same
// id are a schema error.
func normalizeKeys[V any](section string, m map[string]V) (map[string]V, error) {
	clean := true
	for k := range m {
		if !norm.NFC.IsNormalString(k) {
			clean = false
			break
		}
	}
	if clean {
		if m == nil {
			m = map[string]V{}
		}
		return m, nil
	}

	out := make(map[string]V, len(m))
	origin := make(map[string]string, len(m))
	for k, v := range m {
		nk := NormalizeID(k)
		if prev, dup := origin[nk]; dup {
			return nil, types.Schemaf("%s: asset id %q collides with %q after normalization", section, k, prev)
		}
		origin[nk] = k
		out[nk] = v
	}
	return out, nil
}

// CloneMetadata deep-copies a decoded metadata map so instances never share
// mutable state with the registry.
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneRecords deep-copies a list of decoded records.
func CloneRecords(list []map[string]any) []map[string]any {
	if list == nil {
		return nil
	}
	out := make([]map[string]any, len(list))
	for i, m := range list {
		out[i] = CloneMetadata(m)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMetadata(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}
