// Package assets loads asset containers and turns their compressed blobs into
// ready-to-render instances.
//
// A container is one file: a fixed 40-byte header, an optional preamble, and
// a zlib-compressed CBOR payload holding five registries (sprites and
// palettes, tiles, objects, environments, interactions). Loader validates and
// decodes the container; Factory instantiates characters, objects and
// environments on demand and caches them in an LRU.
//
// Basic usage:
//
//	loader := assets.NewLoader(assets.LoaderOptions{})
//	if err := loader.Load(ctx, "world.dgt"); err != nil {
//	    return err
//	}
//	defer loader.Cleanup()
//
//	f := assets.NewFactory(loader, assets.FactoryOptions{})
//	hero := f.CreateCharacter(ctx, "hero", types.Position{X: 3, Y: 4}, "")
//	if hero == nil {
//	    // unknown id or corrupt blob; the reason is logged
//	}
//
// Lookups never fail loudly: create operations return nil for unknown ids and
// for corrupt sub-assets, and log why. Load is the only operation that
// returns errors, which are *types.Error values classified by kind.
//
// Cached instances are shared. Every create call overwrites the position of
// the instance it returns, so two holders of the same cached character see
// each other's placements. Callers that need independent positions request
// distinct variants.
package assets
