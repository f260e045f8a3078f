package assets

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a container into a Factory whenever the file changes on
// disk. The parent directory is watched rather than the file itself so that
// atomic replace-by-rename, which most build tools do, is picked up too.
type Watcher struct {
	factory  *Factory
	path     string
	debounce time.Duration
	log      *slog.Logger
	onReload func(error)

	fsw     *fsnotify.Watcher
	reloads atomic.Int64
}

// NewWatcher starts watching path. Call Run to process events and Close to
// stop watching.
func NewWatcher(f *Factory, path string, opts WatcherOptions) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		factory:  f,
		path:     abs,
		debounce: opts.Debounce,
		log:      opts.Logger,
		onReload: opts.OnReload,
		fsw:      fsw,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultWatchDebounce
	}
	if w.log == nil {
		w.log = f.log
	}
	return w, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
// It returns ctx.Err() on cancellation and nil after Close.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("container changed", "path", w.path, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload(ctx context.Context) {
	err := w.factory.Reload(ctx, w.path)
	w.reloads.Add(1)
	if err != nil {
		w.log.Error("reload failed", "path", w.path, "error", err)
	} else {
		w.log.Info("container reloaded", "path", w.path)
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}

// Reloads returns how many reloads were attempted.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Close stops watching. A running Run returns nil.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
