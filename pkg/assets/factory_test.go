package assets

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfd62794/rpgCore-sub007/internal/testutil"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

func TestCreateCharacterDefaultPalette(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})

	c := f.CreateCharacter(t.Context(), "hero", types.Position{X: 3, Y: 4}, "")
	require.NotNil(t, c)

	assert.Equal(t, "hero", c.ID)
	assert.Equal(t, "", c.Variant)
	assert.Equal(t, "day", c.PaletteID)
	assert.Equal(t, types.Position{X: 3, Y: 4}, c.Position())
	assert.Equal(t, "player", c.Metadata["role"])

	assert.Equal(t, types.Pixel{Index: 0, Color: red, Mapped: true}, c.Pixels[0][0])
	assert.Equal(t, types.Pixel{Index: 1, Color: green, Mapped: true}, c.Pixels[0][1])
	assert.True(t, c.Pixels[1][0].Transparent())
	assert.False(t, c.Pixels[1][0].Mapped)
}

func TestCreateCharacterVariantOverridesPalette(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})

	c := f.CreateCharacter(t.Context(), "hero", types.Position{}, "night")
	require.NotNil(t, c)
	assert.Equal(t, "night", c.Variant)
	assert.Equal(t, "night", c.PaletteID)
	assert.Equal(t, navy, c.Pixels[0][0].Color)
}

func TestCreateCharacterUnknownPaletteLeavesPixelsUnmapped(t *testing.T) {
	log, out := bufferLogger()
	_, f := loadSample(t, sampleContainer(), FactoryOptions{Logger: log})

	c := f.CreateCharacter(t.Context(), "hero", types.Position{}, "sepia")
	require.NotNil(t, c)
	assert.Equal(t, "", c.PaletteID)
	assert.Equal(t, types.Pixel{Index: 1}, c.Pixels[0][1])
	assert.Contains(t, out.String(), "palette not found")

	ghost := f.CreateCharacter(t.Context(), "ghost", types.Position{}, "")
	require.NotNil(t, ghost)
	assert.Equal(t, types.Pixel{Index: 0}, ghost.Pixels[0][0])
	assert.NotNil(t, ghost.Metadata)
}

func TestVariantsAreDistinctCacheEntries(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})
	ctx := t.Context()

	a := f.CreateCharacter(ctx, "hero", types.Position{}, "day")
	b := f.CreateCharacter(ctx, "hero", types.Position{}, "night")
	c := f.CreateCharacter(ctx, "hero", types.Position{}, "")
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)
	assert.NotSame(t, a, b)
	assert.NotSame(t, b, c)
	assert.NotSame(t, a, c)

	st := f.Stats()
	assert.Equal(t, 3, st.Cached)
	assert.Equal(t, int64(3), st.Decompressions)

	assert.Same(t, a, f.CreateCharacter(ctx, "hero", types.Position{}, "day"))
	assert.Same(t, b, f.CreateCharacter(ctx, "hero", types.Position{}, "night"))
	assert.Same(t, c, f.CreateCharacter(ctx, "hero", types.Position{}, ""))

	st = f.Stats()
	assert.Equal(t, int64(3), st.Decompressions)
	assert.Equal(t, int64(3), st.Hits)
	assert.Equal(t, int64(3), st.Misses)
}

func TestCacheHitRepositionsSharedInstance(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})

	first := f.CreateCharacter(t.Context(), "hero", types.Position{X: 1, Y: 1}, "")
	second := f.CreateCharacter(t.Context(), "hero", types.Position{X: 9, Y: 9}, "")

	require.Same(t, first, second)
	assert.Equal(t, types.Position{X: 9, Y: 9}, first.Position())
}

func TestCreateUnknownIDsReturnNil(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})
	ctx := t.Context()

	assert.Nil(t, f.CreateCharacter(ctx, "nobody", types.Position{}, ""))
	assert.Nil(t, f.CreateObject(ctx, "nothing", types.Position{}))
	assert.Nil(t, f.CreateEnvironment(ctx, "unknown"))

	st := f.Stats()
	assert.Zero(t, st.Failures)
	assert.Zero(t, st.Decompressions)
	assert.Zero(t, st.Cached)
}

func TestCorruptBlobIsLoggedAndNotCached(t *testing.T) {
	log, out := bufferLogger()
	b := sampleContainer().RawSprite("glitch", []byte{0x78, 0x9c, 0xff}, nil)
	_, f := loadSample(t, b, FactoryOptions{Logger: log})

	assert.Nil(t, f.CreateCharacter(t.Context(), "glitch", types.Position{}, ""))
	assert.Nil(t, f.CreateCharacter(t.Context(), "glitch", types.Position{}, ""))

	st := f.Stats()
	assert.Equal(t, int64(2), st.Failures)
	assert.Equal(t, int64(2), st.Decompressions)
	assert.Zero(t, st.Cached)
	assert.Contains(t, out.String(), "instantiation failed")
}

func TestCreateObject(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})

	chest := f.CreateObject(t.Context(), "chest", types.Position{X: 2, Y: 5})
	require.NotNil(t, chest)
	assert.Equal(t, "open_chest", chest.InteractionID)
	assert.True(t, chest.HasInteraction())
	assert.Equal(t, "day", chest.PaletteID)
	assert.Equal(t, green, chest.Pixels[0][0].Color)
	assert.Equal(t, "gold", chest.Metadata["loot"])
	assert.Equal(t, types.Position{X: 2, Y: 5}, chest.Position())

	rock := f.CreateObject(t.Context(), "rock", types.Position{})
	require.NotNil(t, rock)
	assert.Equal(t, "", rock.InteractionID)
	assert.False(t, rock.HasInteraction())

	assert.Nil(t, f.CreateObject(t.Context(), "broken", types.Position{}))
}

func TestInstanceMetadataIsACopy(t *testing.T) {
	l, f := loadSample(t, sampleContainer(), FactoryOptions{})

	c := f.CreateCharacter(t.Context(), "hero", types.Position{}, "")
	require.NotNil(t, c)
	c.Metadata["role"] = "villain"

	assert.Equal(t, "player", l.AssetData().SpriteMetadata("hero")["role"])
}

func TestCreateEnvironment(t *testing.T) {
	log, out := bufferLogger()
	_, f := loadSample(t, sampleContainer(), FactoryOptions{Logger: log})

	env := f.CreateEnvironment(t.Context(), "village")
	require.NotNil(t, env)

	assert.Equal(t, 3, env.Width)
	assert.Equal(t, 2, env.Height)
	assert.Equal(t, []int32{5, 5, 5, 0, 0, 0}, env.Tiles)
	v, ok := env.TileAt(2, 0)
	assert.True(t, ok)
	assert.Equal(t, int32(5), v)
	_, ok = env.TileAt(3, 0)
	assert.False(t, ok)

	// broken and missing placements are dropped, chest survives
	require.Len(t, env.Objects, 1)
	assert.Equal(t, "chest", env.Objects[0].ID)
	assert.Equal(t, types.Position{X: 1, Y: 1}, env.Objects[0].Position())
	assert.Contains(t, out.String(), "placed object omitted")

	require.Len(t, env.NPCs, 1)
	assert.Equal(t, "elder", env.NPCs[0]["name"])
	assert.Equal(t, "calm", env.Metadata["music"])
}

func TestEnvironmentsAreNotCached(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})

	a := f.CreateEnvironment(t.Context(), "village")
	b := f.CreateEnvironment(t.Context(), "village")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	// the placed chest is cached and shared between both
	assert.Same(t, a.Objects[0], b.Objects[0])
}

func TestCreateEnvironmentCorruptMaps(t *testing.T) {
	b := sampleContainer().
		Environment("zero_run", 1, 1, [][2]int64{{1, 0}}, nil, nil).
		Environment("wrong_size", 2, 2, [][2]int64{{1, 3}}, nil, nil).
		RawEnvironment("no_dims", testutil.MustBlob([][]int64{{1, 1}}), nil, nil).
		// 2^32 x 2^32 on 64-bit: the unchecked product wraps to 0 and
		// would match an empty run list.
		Environment("overflow", math.MaxInt>>31+1, math.MaxInt>>31+1, [][2]int64{}, nil, nil)
	_, f := loadSample(t, b, FactoryOptions{})

	for _, id := range []string{"zero_run", "wrong_size", "no_dims", "overflow"} {
		t.Run(id, func(t *testing.T) {
			assert.Nil(t, f.CreateEnvironment(t.Context(), id))
		})
	}
	assert.Equal(t, int64(4), f.Stats().Failures)
}

func TestCreateEnvironmentDuplicatePlacementsShareObject(t *testing.T) {
	b := sampleContainer().
		Environment("camp", 1, 1, [][2]int64{{0, 1}},
			[]testutil.PlacementSpec{
				{Type: "rock", X: 1, Y: 2},
				{Type: "rock", X: 7, Y: 9},
			}, nil)
	_, f := loadSample(t, b, FactoryOptions{})

	env := f.CreateEnvironment(t.Context(), "camp")
	require.NotNil(t, env)
	require.Len(t, env.Objects, 2)
	assert.Same(t, env.Objects[0], env.Objects[1])
	assert.Equal(t, types.Position{X: 7, Y: 9}, env.Objects[0].Position())
}

func TestCreateDispatch(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})
	ctx := t.Context()
	pos := types.Position{X: 4, Y: 2}

	c, ok := f.Create(ctx, types.KindCharacter, "hero", pos, "night").(*types.Character)
	require.True(t, ok)
	assert.Equal(t, "night", c.PaletteID)

	o, ok := f.Create(ctx, types.KindObject, "rock", pos, "").(*types.Object)
	require.True(t, ok)
	assert.Equal(t, pos, o.Position())

	e, ok := f.Create(ctx, types.KindEnvironment, "village", pos, "").(*types.Environment)
	require.True(t, ok)
	assert.Equal(t, pos, e.Position())

	assert.True(t, f.Create(ctx, types.KindObject, "nothing", pos, "") == nil)
	assert.True(t, f.Create(ctx, types.Kind(42), "hero", pos, "") == nil)
}

func TestCreateBeforeLoadReturnsNil(t *testing.T) {
	f := NewFactory(NewLoader(LoaderOptions{}), FactoryOptions{})

	assert.Nil(t, f.CreateCharacter(t.Context(), "hero", types.Position{}, ""))
	assert.Nil(t, f.CreateEnvironment(t.Context(), "village"))
	assert.Zero(t, f.Stats().Failures)
}

func TestIDsAreNormalized(t *testing.T) {
	b := sampleContainer().Sprite("caf\u00e9", [][]int32{{0}}, nil)
	_, f := loadSample(t, b, FactoryOptions{})

	composed := f.CreateCharacter(t.Context(), "caf\u00e9", types.Position{}, "")
	decomposed := f.CreateCharacter(t.Context(), "cafe\u0301", types.Position{}, "")
	require.NotNil(t, composed)
	assert.Same(t, composed, decomposed)
}

func TestConcurrentMissesDecompressOnce(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})

	const workers = 32
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		got   = make([]*types.Character, workers)
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			got[i] = f.CreateCharacter(t.Context(), "hero", types.Position{X: i}, "")
		}()
	}
	close(start)
	wg.Wait()

	for i, c := range got {
		require.NotNil(t, c, "worker %d", i)
		assert.Same(t, got[0], c)
		assert.Equal(t, red, c.Pixels[0][0].Color)
		assert.Equal(t, green, c.Pixels[0][1].Color)
	}
	assert.Equal(t, int64(1), f.Stats().Decompressions)
}

func TestLRUEvictionThroughFactory(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{CacheCapacity: 2})
	ctx := t.Context()

	hero := f.CreateCharacter(ctx, "hero", types.Position{}, "")
	ghost := f.CreateCharacter(ctx, "ghost", types.Position{}, "")
	require.NotNil(t, hero)
	require.NotNil(t, ghost)

	// touching hero makes ghost the eviction candidate
	require.Same(t, hero, f.CreateCharacter(ctx, "hero", types.Position{}, ""))
	require.NotNil(t, f.CreateObject(ctx, "rock", types.Position{}))

	st := f.Stats()
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, 2, st.Cached)
	assert.Equal(t, 2, st.Capacity)

	assert.Same(t, hero, f.CreateCharacter(ctx, "hero", types.Position{}, ""))
	assert.Equal(t, int64(3), f.Stats().Decompressions)

	assert.NotSame(t, ghost, f.CreateCharacter(ctx, "ghost", types.Position{}, ""))
	assert.Equal(t, int64(4), f.Stats().Decompressions)
}

func TestLoaderCleanupClearsFactoryCache(t *testing.T) {
	l, f := loadSample(t, sampleContainer(), FactoryOptions{})
	meta, _ := l.Metadata()

	require.NotNil(t, f.CreateCharacter(t.Context(), "hero", types.Position{}, ""))
	require.Equal(t, 1, f.Stats().Cached)

	l.Cleanup()
	assert.Zero(t, f.Stats().Cached)
	assert.Nil(t, f.CreateCharacter(t.Context(), "hero", types.Position{}, ""))

	require.NoError(t, l.Load(t.Context(), meta.Path))
	assert.NotNil(t, f.CreateCharacter(t.Context(), "hero", types.Position{}, ""))
}

func TestReload(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})
	ctx := t.Context()

	before := f.CreateCharacter(ctx, "hero", types.Position{}, "")
	require.NotNil(t, before)

	next := testutil.NewBuilder().
		Palette("day", []int{0, 0, 64}).
		Sprite("hero", [][]int32{{0}}, map[string]any{"palette": "day"}).
		Write(t)
	require.NoError(t, f.Reload(ctx, next))

	after := f.CreateCharacter(ctx, "hero", types.Position{}, "")
	require.NotNil(t, after)
	assert.NotSame(t, before, after)
	assert.Equal(t, navy, after.Pixels[0][0].Color)
	assert.Nil(t, f.CreateObject(ctx, "chest", types.Position{}))

	require.Error(t, f.Reload(ctx, t.TempDir()+"/gone.dgt"))
	assert.Nil(t, f.CreateCharacter(ctx, "hero", types.Position{}, ""))
}

func TestFactoryClose(t *testing.T) {
	_, f := loadSample(t, sampleContainer(), FactoryOptions{})
	require.NotNil(t, f.CreateCharacter(t.Context(), "hero", types.Position{}, ""))

	f.Close()
	assert.Zero(t, f.Stats().Cached)
}
