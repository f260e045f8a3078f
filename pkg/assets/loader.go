package assets

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rfd62794/rpgCore-sub007/internal/format"
	"github.com/rfd62794/rpgCore-sub007/internal/logger"
	"github.com/rfd62794/rpgCore-sub007/internal/mmfile"
	"github.com/rfd62794/rpgCore-sub007/pkg/registry"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// ChecksumStatus describes how the header checksum compared to the payload
// region.
type ChecksumStatus string

const (
	ChecksumOK       ChecksumStatus = "ok"
	ChecksumMismatch ChecksumStatus = "mismatch"
	ChecksumAbsent   ChecksumStatus = "absent"
)

// Metadata describes a loaded container.
type Metadata struct {
	Path           string         `json:"path"`
	FileSize       int64          `json:"file_size"`
	Version        uint32         `json:"version"`
	BuildTime      time.Time      `json:"build_time"`
	Checksum       string         `json:"checksum"`
	ChecksumStatus ChecksumStatus `json:"checksum_status"`
	AssetCount     uint32         `json:"asset_count"`
	CountedAssets  int            `json:"counted_assets"`
	DataOffset     uint32         `json:"data_offset"`
	PayloadOffset  int64          `json:"payload_offset"`
	PayloadSize    int            `json:"payload_size"`
	SchemaVersion  int            `json:"schema_version"`
	LoadedAt       time.Time      `json:"loaded_at"`
}

// Loader owns one loaded container: the mapped file, the decoded registry and
// the header metadata. It is safe for concurrent use; Load and Cleanup
// replace state under a write lock.
type Loader struct {
	opts LoaderOptions
	log  *slog.Logger

	mu     sync.RWMutex
	file   *mmfile.File
	reg    *registry.Registry
	meta   Metadata
	loaded bool

	cbMu      sync.Mutex
	callbacks []func()
}

// NewLoader returns an empty loader. Call Load before asking for data.
func NewLoader(opts LoaderOptions) *Loader {
	if opts.MaxBlobSize <= 0 {
		opts.MaxBlobSize = format.DefaultMaxInflateSize
	}
	return &Loader{opts: opts, log: logger.Or(opts.Logger)}
}

// ValidateAssetFormat reports whether data starts with the container magic.
// Short or empty input returns false.
func ValidateAssetFormat(data []byte) bool {
	return format.HasMagic(data)
}

// ValidateAssetFormat is the method form of the package function.
func (l *Loader) ValidateAssetFormat(data []byte) bool {
	return ValidateAssetFormat(data)
}

// Load maps path, validates the header, locates and inflates the payload and
// decodes the registries. A previously loaded container is cleaned up first.
// On failure everything acquired so far is released and the loader is left
// empty.
func (l *Loader) Load(ctx context.Context, path string) (err error) {
	_, span := tracer.Start(ctx, "assets.Loader.Load",
		trace.WithAttributes(attribute.String("container.path", path)))
	defer func() { endSpan(span, err) }()

	if l.Loaded() {
		l.Cleanup()
	}

	start := time.Now()
	l.log.Debug("loading container", "path", path)

	file, reg, meta, err := l.load(path)
	if err != nil {
		l.log.Error("container load failed", "path", path, "error", err)
		l.Cleanup()
		return err
	}

	l.mu.Lock()
	l.file = file
	l.reg = reg
	l.meta = meta
	l.loaded = true
	l.mu.Unlock()

	span.SetAttributes(
		attribute.Int("container.assets", meta.CountedAssets),
		attribute.Int("container.payload_size", meta.PayloadSize),
	)
	l.log.Info("container loaded",
		"path", path,
		"version", meta.Version,
		"assets", meta.CountedAssets,
		"payload_bytes", meta.PayloadSize,
		"elapsed", time.Since(start),
	)
	return nil
}

func (l *Loader) load(path string) (_ *mmfile.File, _ *registry.Registry, _ Metadata, err error) {
	var meta Metadata

	file, err := mmfile.Open(path)
	if err != nil {
		return nil, nil, meta, err
	}
	defer func() {
		if err != nil {
			_ = file.Close()
		}
	}()

	size, err := file.Size()
	if err != nil {
		return nil, nil, meta, err
	}
	head, err := file.Read(0, int(min(size, format.HeaderSize)))
	if err != nil {
		return nil, nil, meta, err
	}
	if !format.HasMagic(head) {
		return nil, nil, meta, format.ErrBadMagic
	}
	hdr, err := format.ParseHeader(head)
	if err != nil {
		return nil, nil, meta, err
	}
	if err := hdr.ValidateSanity(size); err != nil {
		return nil, nil, meta, err
	}

	meta = Metadata{
		Path:       path,
		FileSize:   size,
		Version:    hdr.Version,
		BuildTime:  hdr.BuildTimeUTC(),
		Checksum:   hdr.ChecksumHex(),
		AssetCount: hdr.AssetCount,
		DataOffset: hdr.DataOffset,
	}

	var (
		payloadOff int
		payload    []byte
	)
	err = file.View(func(data []byte) error {
		region := data[hdr.DataOffset:]
		status, err := l.verifyChecksum(hdr, region)
		if err != nil {
			return err
		}
		meta.ChecksumStatus = status
		payloadOff, payload, err = format.LocateAndInflate(region, l.opts.MaxBlobSize)
		return err
	})
	if err != nil {
		return nil, nil, meta, err
	}

	reg, err := registry.Decode(payload)
	if err != nil {
		return nil, nil, meta, err
	}

	meta.PayloadOffset = int64(hdr.DataOffset) + int64(payloadOff)
	meta.PayloadSize = len(payload)
	meta.SchemaVersion = reg.SchemaVersion
	meta.CountedAssets = reg.AssetCount()
	meta.LoadedAt = time.Now().UTC()

	if meta.CountedAssets != int(hdr.AssetCount) {
		l.log.Warn("asset count mismatch",
			"path", path,
			"header", hdr.AssetCount,
			"counted", meta.CountedAssets,
		)
	}
	return file, reg, meta, nil
}

// verifyChecksum compares the MD5 of the payload region with the header.
func (l *Loader) verifyChecksum(hdr format.Header, region []byte) (ChecksumStatus, error) {
	if !hdr.ChecksumRecorded() {
		return ChecksumAbsent, nil
	}
	sum := md5.Sum(region)
	if bytes.Equal(sum[:], hdr.Checksum[:]) {
		return ChecksumOK, nil
	}
	got := hex.EncodeToString(sum[:])
	if l.opts.StrictChecksum {
		return ChecksumMismatch, types.Formatf("checksum mismatch: header %s, computed %s", hdr.ChecksumHex(), got)
	}
	l.log.Warn("checksum mismatch", "header", hdr.ChecksumHex(), "computed", got)
	return ChecksumMismatch, nil
}

// Loaded reports whether a container is currently loaded.
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// AssetData returns the decoded registries, or nil when nothing is loaded.
// The registry is immutable and may be shared freely.
func (l *Loader) AssetData() *registry.Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg
}

// Metadata returns the header metadata of the loaded container.
func (l *Loader) Metadata() (Metadata, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meta, l.loaded
}

// ReadRaw returns a copy of size bytes at offset of the mapped container.
// It fails with a use-after-close error once the loader is cleaned up.
func (l *Loader) ReadRaw(offset, size int) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.file == nil {
		return nil, types.ErrClosed
	}
	return l.file.Read(offset, size)
}

// OnCleanup registers fn to run on every Cleanup, after the container is
// released. Callbacks run in registration order and survive reloads.
func (l *Loader) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	l.cbMu.Lock()
	l.callbacks = append(l.callbacks, fn)
	l.cbMu.Unlock()
}

// Cleanup unmaps the container, drops the registry and runs the registered
// callbacks. It is safe to call repeatedly and on a loader that never loaded.
func (l *Loader) Cleanup() {
	l.mu.Lock()
	file := l.file
	l.file = nil
	l.reg = nil
	l.meta = Metadata{}
	l.loaded = false
	l.mu.Unlock()

	if file != nil {
		if err := file.Close(); err != nil {
			l.log.Warn("unmap container", "path", file.Path(), "error", err)
		}
	}

	l.cbMu.Lock()
	cbs := append([]func(){}, l.callbacks...)
	l.cbMu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}
