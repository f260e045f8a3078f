package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/rfd62794/rpgCore-sub007/internal/buf"
	"github.com/rfd62794/rpgCore-sub007/internal/cache"
	"github.com/rfd62794/rpgCore-sub007/internal/format"
	"github.com/rfd62794/rpgCore-sub007/internal/palette"
	"github.com/rfd62794/rpgCore-sub007/pkg/registry"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// errNotLoaded is returned internally when a create call finds no container.
var errNotLoaded = &types.Error{Kind: types.ErrKindNotFound, Msg: "no container loaded"}

// Stats is a snapshot of factory counters.
type Stats struct {
	Hits           int64 `json:"hits"`
	Misses         int64 `json:"misses"`
	Decompressions int64 `json:"decompressions"`
	Evictions      int64 `json:"evictions"`
	Failures       int64 `json:"failures"`
	Cached         int   `json:"cached"`
	Capacity       int   `json:"capacity"`
}

// Factory instantiates runtime instances from the loader's registries.
//
// Characters and objects are cached by (kind, id, variant). Concurrent misses
// on the same key share one decompression. Environments are built fresh on
// every call; the objects placed in them go through the cache.
type Factory struct {
	loader  *Loader
	log     *slog.Logger
	maxBlob int64

	// mu is held shared by create calls and exclusively by Reload, so a
	// reload never swaps the registry under an in-flight instantiation.
	mu     sync.RWMutex
	cache  *cache.LRU[types.CacheKey, types.Instance]
	flight singleflight.Group

	hits           atomic.Int64
	misses         atomic.Int64
	decompressions atomic.Int64
	evictions      atomic.Int64
	failures       atomic.Int64

	interactions *InteractionProvider
}

// NewFactory returns a factory bound to loader. The factory's cache is
// cleared whenever the loader is cleaned up or reloaded.
func NewFactory(loader *Loader, opts FactoryOptions) *Factory {
	log := opts.Logger
	if log == nil {
		log = loader.log
	}
	maxBlob := opts.MaxBlobSize
	if maxBlob <= 0 {
		maxBlob = loader.opts.MaxBlobSize
	}
	f := &Factory{
		loader:       loader,
		log:          log,
		maxBlob:      maxBlob,
		cache:        cache.New[types.CacheKey, types.Instance](opts.CacheCapacity),
		interactions: NewInteractionProvider(loader),
	}
	f.cache.OnEvict(func(key types.CacheKey, _ types.Instance) {
		f.evictions.Add(1)
		f.log.Debug("instance evicted", "key", key.String())
	})
	loader.OnCleanup(f.cache.Clear)
	return f
}

// Interactions returns the provider resolving interaction references of
// created objects.
func (f *Factory) Interactions() *InteractionProvider { return f.interactions }

// CreateCharacter returns the character for id with the palette selected by
// variant (or the sprite's default palette when variant is empty), placed at
// pos. It returns nil when id is unknown or its sprite is corrupt.
func (f *Factory) CreateCharacter(ctx context.Context, id string, pos types.Position, variant string) *types.Character {
	_, span := tracer.Start(ctx, "assets.Factory.CreateCharacter", trace.WithAttributes(
		attribute.String("asset.id", id),
		attribute.String("asset.variant", variant),
	))
	defer span.End()

	f.mu.RLock()
	defer f.mu.RUnlock()

	id, variant = registry.NormalizeID(id), registry.NormalizeID(variant)
	key := types.CacheKey{Kind: types.KindCharacter, ID: id, Variant: variant}
	inst := f.cached(key, func(reg *registry.Registry) (types.Instance, error) {
		return f.buildCharacter(reg, id, variant)
	})
	if inst == nil {
		return nil
	}
	c := inst.(*types.Character)
	c.SetPosition(pos)
	return c
}

// CreateObject returns the object for id placed at pos, or nil when id is
// unknown or its blob is corrupt. A missing interaction mapping leaves
// InteractionID empty.
func (f *Factory) CreateObject(ctx context.Context, id string, pos types.Position) *types.Object {
	_, span := tracer.Start(ctx, "assets.Factory.CreateObject",
		trace.WithAttributes(attribute.String("asset.id", id)))
	defer span.End()

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.createObject(id, pos)
}

// createObject is CreateObject for callers already holding f.mu.
func (f *Factory) createObject(id string, pos types.Position) *types.Object {
	id = registry.NormalizeID(id)
	key := types.CacheKey{Kind: types.KindObject, ID: id}
	inst := f.cached(key, func(reg *registry.Registry) (types.Instance, error) {
		return f.buildObject(reg, id)
	})
	if inst == nil {
		return nil
	}
	o := inst.(*types.Object)
	o.SetPosition(pos)
	return o
}

// CreateEnvironment expands the tile map for id and instantiates every placed
// object. Objects that fail are logged and left out; the environment is
// still returned. It returns nil when id is unknown or the map is corrupt.
//
// Placed objects come from the shared cache, so when the same object id is
// placed more than once every entry in Objects is the same *types.Object,
// positioned at the last placement. Callers that need one instance per
// placement should copy the entries.
func (f *Factory) CreateEnvironment(ctx context.Context, id string) *types.Environment {
	_, span := tracer.Start(ctx, "assets.Factory.CreateEnvironment",
		trace.WithAttributes(attribute.String("asset.id", id)))
	defer span.End()

	f.mu.RLock()
	defer f.mu.RUnlock()

	id = registry.NormalizeID(id)
	env, err := f.buildSafely(types.KindEnvironment, id, func(reg *registry.Registry) (types.Instance, error) {
		return f.buildEnvironment(reg, id)
	})
	if err != nil {
		f.report(types.CacheKey{Kind: types.KindEnvironment, ID: id}, err)
		return nil
	}
	e := env.(*types.Environment)
	span.SetAttributes(attribute.Int("environment.objects", len(e.Objects)))
	return e
}

// Create dispatches on kind. Variant applies to characters only. The result
// is a nil interface (never a typed nil) when nothing was created.
func (f *Factory) Create(ctx context.Context, kind types.Kind, id string, pos types.Position, variant string) types.Instance {
	switch kind {
	case types.KindCharacter:
		if c := f.CreateCharacter(ctx, id, pos, variant); c != nil {
			return c
		}
	case types.KindObject:
		if o := f.CreateObject(ctx, id, pos); o != nil {
			return o
		}
	case types.KindEnvironment:
		if e := f.CreateEnvironment(ctx, id); e != nil {
			e.SetPosition(pos)
			return e
		}
	default:
		f.log.Warn("unknown instance kind", "kind", kind.String(), "asset_id", id)
	}
	return nil
}

// Stats returns a snapshot of the factory counters.
func (f *Factory) Stats() Stats {
	return Stats{
		Hits:           f.hits.Load(),
		Misses:         f.misses.Load(),
		Decompressions: f.decompressions.Load(),
		Evictions:      f.evictions.Load(),
		Failures:       f.failures.Load(),
		Cached:         f.cache.Len(),
		Capacity:       f.cache.Capacity(),
	}
}

// Reload loads path into the factory's loader. It waits for in-flight create
// calls and blocks new ones until the reload finished. The cache is cleared
// whether or not the reload succeeds.
func (f *Factory) Reload(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.log.Info("reloading container", "path", path)
	err := f.loader.Load(ctx, path)
	f.cache.Clear()
	return err
}

// Close drops every cached instance. The loader is left untouched.
func (f *Factory) Close() {
	f.cache.Clear()
}

// cached returns the cached instance for key, building it on a miss. Only one
// build runs per key at a time; concurrent callers wait for it and share the
// result. Failures are logged and yield nil.
func (f *Factory) cached(key types.CacheKey, build func(*registry.Registry) (types.Instance, error)) types.Instance {
	if inst, ok := f.cache.Get(key); ok {
		f.hits.Add(1)
		return inst
	}
	f.misses.Add(1)

	v, err, _ := f.flight.Do(flightKey(key), func() (any, error) {
		// A caller that lost the race to the previous flight lands here after
		// the value is already cached.
		if inst, ok := f.cache.Peek(key); ok {
			return inst, nil
		}
		inst, err := f.buildSafely(key.Kind, key.ID, build)
		if err != nil {
			return nil, err
		}
		f.cache.Set(key, inst)
		return inst, nil
	})
	if err != nil {
		f.report(key, err)
		return nil
	}
	return v.(types.Instance)
}

// buildSafely runs build against the current registry and converts a panic
// into an error.
func (f *Factory) buildSafely(kind types.Kind, id string, build func(*registry.Registry) (types.Instance, error)) (inst types.Instance, err error) {
	reg := f.loader.AssetData()
	if reg == nil {
		return nil, errNotLoaded
	}
	defer func() {
		if r := recover(); r != nil {
			inst = nil
			err = fmt.Errorf("instantiate %s %q: panic: %v", kind, id, r)
		}
	}()
	return build(reg)
}

// report logs a failed create. Unknown ids are a soft miss and only logged
// at debug level.
func (f *Factory) report(key types.CacheKey, err error) {
	if errors.Is(err, types.ErrNotFound) {
		f.log.Debug("asset not found", "key", key.String(), "reason", err)
		return
	}
	f.failures.Add(1)
	f.log.Error("instantiation failed", "key", key.String(), "error", err)
}

func (f *Factory) buildCharacter(reg *registry.Registry, id, variant string) (*types.Character, error) {
	blob, ok := reg.Sprite(id)
	if !ok {
		return nil, notFound(types.KindCharacter, id)
	}
	f.decompressions.Add(1)
	grid, err := format.DecodePixelGrid(blob, f.maxBlob)
	if err != nil {
		return nil, fmt.Errorf("sprite %q: %w", id, err)
	}

	meta := reg.SpriteMetadata(id)
	palID := variant
	if palID == "" {
		if s, ok := meta["palette"].(string); ok {
			palID = registry.NormalizeID(s)
		}
	}
	pal := f.lookupPalette(reg, id, palID)
	if pal == nil {
		palID = ""
	}

	return &types.Character{
		ID:        id,
		Variant:   variant,
		PaletteID: palID,
		Pixels:    palette.Apply(grid, pal),
		Metadata:  registry.CloneMetadata(meta),
	}, nil
}

func (f *Factory) buildObject(reg *registry.Registry, id string) (*types.Object, error) {
	blob, ok := reg.Object(id)
	if !ok {
		return nil, notFound(types.KindObject, id)
	}
	f.decompressions.Add(1)
	rec, err := format.DecodeObjectRecord(blob, f.maxBlob)
	if err != nil {
		return nil, fmt.Errorf("object %q: %w", id, err)
	}

	palID := registry.NormalizeID(rec.Palette)
	pal := f.lookupPalette(reg, id, palID)
	if pal == nil {
		palID = ""
	}
	interaction, _ := reg.ObjectInteraction(id)

	return &types.Object{
		ID:            id,
		PaletteID:     palID,
		InteractionID: interaction,
		Pixels:        palette.Apply(rec.Pixels, pal),
		Metadata:      registry.CloneMetadata(rec.Metadata),
	}, nil
}

func (f *Factory) buildEnvironment(reg *registry.Registry, id string) (*types.Environment, error) {
	blob, ok := reg.Map(id)
	if !ok {
		return nil, notFound(types.KindEnvironment, id)
	}
	dims, ok := reg.Dimensions(id)
	if !ok {
		return nil, types.Schemaf("environment %q: no dimensions recorded", id)
	}
	f.decompressions.Add(1)
	runs, err := format.DecodeRuns(blob, f.maxBlob)
	if err != nil {
		return nil, fmt.Errorf("environment %q: %w", id, err)
	}
	tiles, err := format.ExpandRLE(runs)
	if err != nil {
		return nil, fmt.Errorf("environment %q: %w", id, err)
	}
	want, ok := buf.MulOverflowSafe(dims.Width, dims.Height)
	if !ok || dims.Width < 0 || dims.Height < 0 {
		return nil, types.Formatf("environment %q: %dx%d dimensions overflow", id, dims.Width, dims.Height)
	}
	if want != len(tiles) {
		return nil, types.Formatf("environment %q: %dx%d map expands to %d tiles", id, dims.Width, dims.Height, len(tiles))
	}

	env := &types.Environment{
		ID:       id,
		Width:    dims.Width,
		Height:   dims.Height,
		Tiles:    tiles,
		NPCs:     registry.CloneRecords(reg.NPCPlacements(id)),
		Metadata: registry.CloneMetadata(reg.EnvironmentMetadata(id)),
	}
	for i, p := range reg.ObjectPlacements(id) {
		obj := f.createObject(p.Type, p.Position)
		if obj == nil {
			f.log.Warn("placed object omitted",
				"environment", id,
				"placement", i,
				"object", p.Type,
			)
			continue
		}
		env.Objects = append(env.Objects, obj)
	}
	return env, nil
}

// lookupPalette returns the palette palID, or nil when palID is empty or
// unknown. An unknown palette is logged; the asset is still created unmapped.
func (f *Factory) lookupPalette(reg *registry.Registry, assetID, palID string) []types.Color {
	if palID == "" {
		return nil
	}
	pal, ok := reg.Palette(palID)
	if !ok {
		f.log.Warn("palette not found", "asset_id", assetID, "palette", palID)
		return nil
	}
	return pal
}

func notFound(kind types.Kind, id string) error {
	return &types.Error{Kind: types.ErrKindNotFound, Msg: fmt.Sprintf("%s %q not found", kind, id)}
}

// flightKey encodes a cache key for singleflight. Ids may contain any
// character, so the fields are separated by NUL.
func flightKey(k types.CacheKey) string {
	return fmt.Sprintf("%d\x00%s\x00%s", k.Kind, k.ID, k.Variant)
}
