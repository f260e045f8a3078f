package assets

import (
	"log/slog"
	"time"
)

// LoaderOptions controls container loading.
type LoaderOptions struct {
	// Logger receives load progress and warnings.
	// If nil, logging is discarded.
	Logger *slog.Logger

	// MaxBlobSize bounds every inflate: the payload and each sub-asset blob.
	// Default: format.DefaultMaxInflateSize (64 MiB).
	MaxBlobSize int64

	// StrictChecksum turns a header checksum mismatch into a load failure.
	// When false a mismatch is only logged.
	StrictChecksum bool
}

// FactoryOptions controls instantiation.
type FactoryOptions struct {
	// CacheCapacity is the LRU capacity in instances.
	// Default: 1000.
	CacheCapacity int

	// Logger receives instantiation failures.
	// If nil, the loader's logger is used.
	Logger *slog.Logger

	// MaxBlobSize bounds blob inflation.
	// Default: the loader's MaxBlobSize.
	MaxBlobSize int64
}

// WatcherOptions controls hot reload.
type WatcherOptions struct {
	// Debounce coalesces bursts of file events into one reload.
	// Default: 250ms.
	Debounce time.Duration

	// Logger receives reload results.
	// If nil, the factory's logger is used.
	Logger *slog.Logger

	// OnReload, if set, is called after every reload attempt with its result.
	OnReload func(error)
}

// DefaultWatchDebounce is the debounce used when WatcherOptions.Debounce is zero.
const DefaultWatchDebounce = 250 * time.Millisecond
