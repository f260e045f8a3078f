// Package registry holds the decoded payload of a container: five named
// registries of per-asset blobs and metadata.
//
// A Registry is built once by Decode and never mutated afterwards, so any
// number of goroutines may read it without locking.
package registry

import (
	"sort"

	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// SchemaVersion is the newest payload schema this package understands.
const SchemaVersion = 1

// Required top-level section names, in the order they are reported.
const (
	SectionSpriteBank   = "sprite_bank"
	SectionTiles        = "tile_registry"
	SectionObjects      = "object_registry"
	SectionEnvironments = "environment_registry"
	SectionInteractions = "interaction_registry"
)

// RequiredSections lists every section a payload must carry.
var RequiredSections = []string{
	SectionSpriteBank,
	SectionTiles,
	SectionObjects,
	SectionEnvironments,
	SectionInteractions,
}

// SpriteBank holds character sprites, palettes and per-sprite metadata.
type SpriteBank struct {
	Sprites  map[string][]byte
	Palettes map[string][]types.Color
	Metadata map[string]map[string]any
}

// TileRegistry holds tile definitions keyed by tile id.
type TileRegistry struct {
	Tiles map[string]map[string]any
}

// ObjectRegistry holds object blobs and their interaction references.
type ObjectRegistry struct {
	Objects      map[string][]byte
	Interactions map[string]string
}

// Dimensions is a tile map size.
type Dimensions struct {
	Width  int
	Height int
}

// Placement records one object placed in an environment.
type Placement struct {
	Type     string
	Position types.Position
}

// EnvironmentRegistry holds RLE tile maps and what is placed on them.
type EnvironmentRegistry struct {
	Maps             map[string][]byte
	Dimensions       map[string]Dimensions
	ObjectPlacements map[string][]Placement
	NPCPlacements    map[string][]map[string]any
	Metadata         map[string]map[string]any
}

// InteractionRegistry holds interaction definitions and dialogue sets.
type InteractionRegistry struct {
	Interactions map[string]map[string]any
	DialogueSets map[string][]map[string]any
}

// Registry is the whole decoded payload.
type Registry struct {
	SchemaVersion int
	SpriteBank    SpriteBank
	Tiles         TileRegistry
	Objects       ObjectRegistry
	Environments  EnvironmentRegistry
	Interactions  InteractionRegistry
}

// AssetCount is the number of assets the header's asset_count describes:
// sprites, tiles, objects and environment maps.
func (r *Registry) AssetCount() int {
	if r == nil {
		return 0
	}
	return len(r.SpriteBank.Sprites) + len(r.Tiles.Tiles) + len(r.Objects.Objects) + len(r.Environments.Maps)
}

// Sprite returns the compressed sprite blob for id.
func (r *Registry) Sprite(id string) ([]byte, bool) {
	b, ok := r.SpriteBank.Sprites[id]
	return b, ok
}

// Palette returns the palette for id.
func (r *Registry) Palette(id string) ([]types.Color, bool) {
	p, ok := r.SpriteBank.Palettes[id]
	return p, ok
}

// SpriteMetadata returns the metadata recorded for sprite id (may be nil).
func (r *Registry) SpriteMetadata(id string) map[string]any {
	return r.SpriteBank.Metadata[id]
}

// Object returns the compressed object blob for id.
func (r *Registry) Object(id string) ([]byte, bool) {
	b, ok := r.Objects.Objects[id]
	return b, ok
}

// ObjectInteraction returns the interaction id mapped to object id.
func (r *Registry) ObjectInteraction(id string) (string, bool) {
	s, ok := r.Objects.Interactions[id]
	return s, ok
}

// Map returns the compressed RLE tile map for environment id.
func (r *Registry) Map(id string) ([]byte, bool) {
	b, ok := r.Environments.Maps[id]
	return b, ok
}

// Dimensions returns the recorded size of environment id.
func (r *Registry) Dimensions(id string) (Dimensions, bool) {
	d, ok := r.Environments.Dimensions[id]
	return d, ok
}

// ObjectPlacements returns the objects placed in environment id.
func (r *Registry) ObjectPlacements(id string) []Placement {
	return r.Environments.ObjectPlacements[id]
}

// NPCPlacements returns the raw NPC placement records of environment id.
func (r *Registry) NPCPlacements(id string) []map[string]any {
	return r.Environments.NPCPlacements[id]
}

// EnvironmentMetadata returns the metadata recorded for environment id (may be nil).
func (r *Registry) EnvironmentMetadata(id string) map[string]any {
	return r.Environments.Metadata[id]
}

// Interaction returns the interaction definition for id.
func (r *Registry) Interaction(id string) (map[string]any, bool) {
	m, ok := r.Interactions.Interactions[id]
	return m, ok
}

// DialogueSet returns the dialogue set for id.
func (r *Registry) DialogueSet(id string) ([]map[string]any, bool) {
	d, ok := r.Interactions.DialogueSets[id]
	return d, ok
}

// IDs returns the sorted asset ids of one kind.
func (r *Registry) IDs(kind types.Kind) []string {
	switch kind {
	case types.KindCharacter:
		return sortedKeys(r.SpriteBank.Sprites)
	case types.KindObject:
		return sortedKeys(r.Objects.Objects)
	case types.KindEnvironment:
		return sortedKeys(r.Environments.Maps)
	}
	return nil
}

// TileIDs returns the sorted tile ids.
func (r *Registry) TileIDs() []string { return sortedKeys(r.Tiles.Tiles) }

// InteractionIDs returns the sorted interaction ids.
func (r *Registry) InteractionIDs() []string { return sortedKeys(r.Interactions.Interactions) }

// DialogueSetIDs returns the sorted dialogue set ids.
func (r *Registry) DialogueSetIDs() []string { return sortedKeys(r.Interactions.DialogueSets) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
