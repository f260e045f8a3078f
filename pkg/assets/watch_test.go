package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfd62794/rpgCore-sub007/internal/testutil"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// replaceFile swaps data in at path the way build tools do: write a sibling
// and rename it over the original.
func replaceFile(t *testing.T, path string, data []byte) {
	t.Helper()
	tmp := filepath.Join(filepath.Dir(path), ".next.dgt")
	require.NoError(t, os.WriteFile(tmp, data, 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := sampleContainer().Write(t)
	l := NewLoader(LoaderOptions{})
	require.NoError(t, l.Load(t.Context(), path))
	t.Cleanup(l.Cleanup)
	f := NewFactory(l, FactoryOptions{})
	require.NotNil(t, f.CreateCharacter(t.Context(), "hero", types.Position{}, ""))

	reloaded := make(chan error, 8)
	w, err := NewWatcher(f, path, WatcherOptions{
		Debounce: 20 * time.Millisecond,
		OnReload: func(err error) { reloaded <- err },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	next := testutil.NewBuilder().Sprite("slime", [][]int32{{0}}, nil).Bytes()
	replaceFile(t, path, next)

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after file change")
	}

	assert.GreaterOrEqual(t, w.Reloads(), int64(1))
	assert.Nil(t, f.CreateCharacter(t.Context(), "hero", types.Position{}, ""))
	assert.NotNil(t, f.CreateCharacter(t.Context(), "slime", types.Position{}, ""))

	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
	require.NoError(t, w.Close())
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	path := sampleContainer().Write(t)
	l := NewLoader(LoaderOptions{})
	require.NoError(t, l.Load(t.Context(), path))
	t.Cleanup(l.Cleanup)
	f := NewFactory(l, FactoryOptions{})

	w, err := NewWatcher(f, path, WatcherOptions{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()
	go func() {
		_ = os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("hi"), 0o644)
	}()

	assert.ErrorIs(t, w.Run(ctx), context.DeadlineExceeded)
	assert.Zero(t, w.Reloads())
}

func TestNewWatcherMissingDirectory(t *testing.T) {
	f := NewFactory(NewLoader(LoaderOptions{}), FactoryOptions{})
	_, err := NewWatcher(f, filepath.Join(t.TempDir(), "gone", "assets.dgt"), WatcherOptions{})
	assert.Error(t, err)
}
