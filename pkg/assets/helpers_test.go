package assets

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rfd62794/rpgCore-sub007/internal/testutil"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

var (
	red   = types.Color{R: 255, A: 255}
	green = types.Color{G: 255, A: 255}
	navy  = types.Color{B: 64, A: 255}
)

// sampleContainer is a small world: two characters, three objects (one
// corrupt), one tile and a village with placements.
func sampleContainer() *testutil.Builder {
	return testutil.NewBuilder().
		Palette("day", []int{255, 0, 0}, []int{0, 255, 0}).
		Palette("night", []int{0, 0, 64}, []int{0, 0, 128}).
		Sprite("hero", [][]int32{{0, 1}, {types.NoPixel, 1}}, map[string]any{"palette": "day", "role": "player"}).
		Sprite("ghost", [][]int32{{0}}, nil).
		Tile("grass", map[string]any{"walkable": true}).
		Object("chest", testutil.ObjectSpec{
			Pixels:   [][]int32{{1, 1}},
			Palette:  "day",
			Metadata: map[string]any{"loot": "gold"},
		}, "open_chest").
		Object("rock", testutil.ObjectSpec{Pixels: [][]int32{{0}}}, "").
		RawObject("broken", []byte("not a blob"), "").
		Environment("village", 3, 2, [][2]int64{{5, 3}, {0, 3}},
			[]testutil.PlacementSpec{
				{Type: "chest", X: 1, Y: 1},
				{Type: "broken", X: 0, Y: 0},
				{Type: "missing", X: 2, Y: 0},
			},
			[]map[string]any{{"name": "elder"}}).
		EnvironmentMeta("village", map[string]any{"music": "calm"}).
		Interaction("open_chest", map[string]any{"type": "loot", "dialogue": "chest_lines"}).
		DialogueSet("chest_lines", map[string]any{"text": "It's locked."})
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func bufferLogger() (*slog.Logger, *syncBuffer) {
	out := &syncBuffer{}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})), out
}

// loadSample loads b into a fresh loader and wraps it in a factory.
func loadSample(t *testing.T, b *testutil.Builder, opts FactoryOptions) (*Loader, *Factory) {
	t.Helper()
	l := NewLoader(LoaderOptions{})
	require.NoError(t, l.Load(t.Context(), b.Write(t)))
	t.Cleanup(l.Cleanup)
	return l, NewFactory(l, opts)
}
