package types

import (
	"fmt"
	"strings"
	"sync"
)

// Kind enumerates the closed set of runtime instance variants.
type Kind uint8

const (
	KindCharacter Kind = iota + 1
	KindObject
	KindEnvironment
)

// String implements the Stringer interface for Kind.
func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindObject:
		return "object"
	case KindEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind resolves a kind name ("character", "object", "environment").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "character", "char":
		return KindCharacter, nil
	case "object", "obj":
		return KindObject, nil
	case "environment", "env":
		return KindEnvironment, nil
	}
	return 0, fmt.Errorf("unknown instance kind %q", s)
}

// CacheKey identifies one instantiation request. An empty Variant means the
// asset's default palette.
type CacheKey struct {
	Kind    Kind
	ID      string
	Variant string
}

func (k CacheKey) String() string {
	if k.Variant == "" {
		return k.Kind.String() + "/" + k.ID
	}
	return k.Kind.String() + "/" + k.ID + "@" + k.Variant
}

// Position is a placement in world tile coordinates.
type Position struct {
	X int
	Y int
}

// Instance is the closed sum type handed to renderers: exactly one of
// *Character, *Object or *Environment. Switch on the concrete type.
type Instance interface {
	Kind() Kind
	AssetID() string
	Position() Position
	SetPosition(Position)

	instance()
}

var (
	_ Instance = (*Character)(nil)
	_ Instance = (*Object)(nil)
	_ Instance = (*Environment)(nil)
)

// placement holds the only mutable field of an instance. Cached instances are
// shared, so the position is overwritten in place on every cache hit.
type placement struct {
	mu  sync.RWMutex
	pos Position
}

func (p *placement) Position() Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

func (p *placement) SetPosition(pos Position) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
}

// Character is a palette-applied sprite.
type Character struct {
	placement

	ID        string
	Variant   string
	PaletteID string
	Pixels    [][]Pixel
	Metadata  map[string]any
}

func (*Character) Kind() Kind        { return KindCharacter }
func (c *Character) AssetID() string { return c.ID }
func (*Character) instance()         {}

// Object is a world object. InteractionID is the raw interaction reference;
// resolving it is the caller's job (see assets.InteractionProvider).
type Object struct {
	placement

	ID            string
	PaletteID     string
	InteractionID string
	Pixels        [][]Pixel
	Metadata      map[string]any
}

func (*Object) Kind() Kind        { return KindObject }
func (o *Object) AssetID() string { return o.ID }
func (*Object) instance()         {}

// HasInteraction reports whether the object carries an interaction reference.
func (o *Object) HasInteraction() bool { return o.InteractionID != "" }

// Environment is an expanded tile map with its placed objects.
// Tiles is row-major, len(Tiles) == Width*Height.
type Environment struct {
	placement

	ID       string
	Width    int
	Height   int
	Tiles    []int32
	Objects  []*Object
	NPCs     []map[string]any
	Metadata map[string]any
}

func (*Environment) Kind() Kind        { return KindEnvironment }
func (e *Environment) AssetID() string { return e.ID }
func (*Environment) instance()         {}

// TileAt returns the tile value at (x, y).
func (e *Environment) TileAt(x, y int) (int32, bool) {
	if x < 0 || y < 0 || x >= e.Width || y >= e.Height {
		return 0, false
	}
	i := y*e.Width + x
	if i >= len(e.Tiles) {
		return 0, false
	}
	return e.Tiles[i], true
}
