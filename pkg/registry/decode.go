package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/rfd62794/rpgCore-sub007/internal/format"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// Wire shapes. Each section is decoded on its own so a type mismatch can be
// reported against the section that carries it.

type wireSpriteBank struct {
	Sprites  map[string][]byte         `cbor:"sprites"`
	Palettes map[string][][]int        `cbor:"palettes"`
	Metadata map[string]map[string]any `cbor:"metadata"`
}

type wireTileRegistry struct {
	Tiles map[string]map[string]any `cbor:"tiles"`
}

type wireObjectRegistry struct {
	Objects      map[string][]byte `cbor:"objects"`
	Interactions map[string]string `cbor:"interactions"`
}

type wirePlacement struct {
	Type     string `cbor:"type"`
	Position []int  `cbor:"position"`
}

type wireEnvironmentRegistry struct {
	Maps             map[string][]byte           `cbor:"maps"`
	Dimensions       map[string][]int            `cbor:"dimensions"`
	ObjectPlacements map[string][]wirePlacement  `cbor:"object_placements"`
	NPCPlacements    map[string][]map[string]any `cbor:"npc_placements"`
	Metadata         map[string]map[string]any   `cbor:"metadata"`
}

type wireInteractionRegistry struct {
	Interactions map[string]map[string]any   `cbor:"interactions"`
	DialogueSets map[string][]map[string]any `cbor:"dialogue_sets"`
}

const keySchemaVersion = "schema_version"

// Decode parses a decompressed payload into a Registry.
//
// The payload must be a CBOR map carrying every RequiredSections key; missing
// keys fail with a schema error naming all of them. An optional
// schema_version newer than SchemaVersion is rejected. Asset ids are
// normalized to NFC.
func Decode(payload []byte) (*Registry, error) {
	var top map[string]cbor.RawMessage
	if err := format.Unmarshal(payload, &top); err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "payload is not a registry map", Err: errors.Unwrap(err)}
	}

	var missing []string
	for _, name := range RequiredSections {
		if _, ok := top[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, types.Schemaf("missing required registries: %s", strings.Join(missing, ", "))
	}

	reg := &Registry{SchemaVersion: SchemaVersion}
	if raw, ok := top[keySchemaVersion]; ok {
		var v uint64
		if err := decodeSection(keySchemaVersion, raw, &v); err != nil {
			return nil, err
		}
		if v == 0 || v > SchemaVersion {
			return nil, types.Schemaf("unsupported schema_version %d (supported: 1..%d)", v, SchemaVersion)
		}
		reg.SchemaVersion = int(v)
	}

	if err := decodeSpriteBank(top[SectionSpriteBank], &reg.SpriteBank); err != nil {
		return nil, err
	}
	if err := decodeTiles(top[SectionTiles], &reg.Tiles); err != nil {
		return nil, err
	}
	if err := decodeObjects(top[SectionObjects], &reg.Objects); err != nil {
		return nil, err
	}
	if err := decodeEnvironments(top[SectionEnvironments], &reg.Environments); err != nil {
		return nil, err
	}
	if err := decodeInteractions(top[SectionInteractions], &reg.Interactions); err != nil {
		return nil, err
	}
	return reg, nil
}

func decodeSection(section string, raw []byte, v any) error {
	if err := format.Unmarshal(raw, v); err != nil {
		return &types.Error{Kind: types.ErrKindSchema, Msg: section, Err: errors.Unwrap(err)}
	}
	return nil
}

func decodeSpriteBank(raw []byte, out *SpriteBank) error {
	var w wireSpriteBank
	if err := decodeSection(SectionSpriteBank, raw, &w); err != nil {
		return err
	}
	var err error
	if out.Sprites, err = normalizeKeys(SectionSpriteBank+".sprites", w.Sprites); err != nil {
		return err
	}
	if out.Metadata, err = normalizeKeys(SectionSpriteBank+".metadata", w.Metadata); err != nil {
		return err
	}
	palettes, err := normalizeKeys(SectionSpriteBank+".palettes", w.Palettes)
	if err != nil {
		return err
	}
	out.Palettes = make(map[string][]types.Color, len(palettes))
	for id, entries := range palettes {
		colors := make([]types.Color, len(entries))
		for i, c := range entries {
			col, err := toColor(c)
			if err != nil {
				return types.Schemaf("%s.palettes[%q][%d]: %v", SectionSpriteBank, id, i, err)
			}
			colors[i] = col
		}
		out.Palettes[id] = colors
	}
	return nil
}

func decodeTiles(raw []byte, out *TileRegistry) error {
	var w wireTileRegistry
	if err := decodeSection(SectionTiles, raw, &w); err != nil {
		return err
	}
	var err error
	out.Tiles, err = normalizeKeys(SectionTiles+".tiles", w.Tiles)
	return err
}

func decodeObjects(raw []byte, out *ObjectRegistry) error {
	var w wireObjectRegistry
	if err := decodeSection(SectionObjects, raw, &w); err != nil {
		return err
	}
	var err error
	if out.Objects, err = normalizeKeys(SectionObjects+".objects", w.Objects); err != nil {
		return err
	}
	out.Interactions, err = normalizeKeys(SectionObjects+".interactions", w.Interactions)
	return err
}

func decodeEnvironments(raw []byte, out *EnvironmentRegistry) error {
	var w wireEnvironmentRegistry
	if err := decodeSection(SectionEnvironments, raw, &w); err != nil {
		return err
	}
	var err error
	if out.Maps, err = normalizeKeys(SectionEnvironments+".maps", w.Maps); err != nil {
		return err
	}
	if out.NPCPlacements, err = normalizeKeys(SectionEnvironments+".npc_placements", w.NPCPlacements); err != nil {
		return err
	}
	if out.Metadata, err = normalizeKeys(SectionEnvironments+".metadata", w.Metadata); err != nil {
		return err
	}

	dims, err := normalizeKeys(SectionEnvironments+".dimensions", w.Dimensions)
	if err != nil {
		return err
	}
	out.Dimensions = make(map[string]Dimensions, len(dims))
	for id, wh := range dims {
		if len(wh) != 2 || wh[0] < 0 || wh[1] < 0 {
			return types.Schemaf("%s.dimensions[%q]: want [width, height], got %v", SectionEnvironments, id, wh)
		}
		out.Dimensions[id] = Dimensions{Width: wh[0], Height: wh[1]}
	}

	placements, err := normalizeKeys(SectionEnvironments+".object_placements", w.ObjectPlacements)
	if err != nil {
		return err
	}
	out.ObjectPlacements = make(map[string][]Placement, len(placements))
	for id, list := range placements {
		ps := make([]Placement, len(list))
		for i, p := range list {
			if len(p.Position) != 2 {
				return types.Schemaf("%s.object_placements[%q][%d]: want position [x, y], got %v",
					SectionEnvironments, id, i, p.Position)
			}
			ps[i] = Placement{
				Type:     NormalizeID(p.Type),
				Position: types.Position{X: p.Position[0], Y: p.Position[1]},
			}
		}
		out.ObjectPlacements[id] = ps
	}
	return nil
}

func decodeInteractions(raw []byte, out *InteractionRegistry) error {
	var w wireInteractionRegistry
	if err := decodeSection(SectionInteractions, raw, &w); err != nil {
		return err
	}
	var err error
	if out.Interactions, err = normalizeKeys(SectionInteractions+".interactions", w.Interactions); err != nil {
		return err
	}
	out.DialogueSets, err = normalizeKeys(SectionInteractions+".dialogue_sets", w.DialogueSets)
	return err
}

// toColor converts [r,g,b] or [r,g,b,a]; alpha defaults to opaque.
func toColor(c []int) (types.Color, error) {
	if len(c) != 3 && len(c) != 4 {
		return types.Color{}, fmt.Errorf("want 3 or 4 components, got %d", len(c))
	}
	for _, v := range c {
		if v < 0 || v > 255 {
			return types.Color{}, fmt.Errorf("component %d out of range 0..255", v)
		}
	}
	col := types.Color{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2]), A: 255}
	if len(c) == 4 {
		col.A = uint8(c[3])
	}
	return col, nil
}
