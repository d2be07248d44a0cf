package audiocache

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

// CacheItem is the metadata and lifecycle of one cached object: its
// backing file path, media attributes, current size, and completion flag.
//
// Destruction is reference-counted rather than tied to a language
// destructor (Go has none): the CachePool holds one implicit reference for
// as long as the key is registered, and every reader opened against the
// item holds one more for the lifetime of its read handle. When the last
// reference is released and the item is not completed, the backing file is
// removed — mirroring spec.md's Drop-on-incomplete contract.
type CacheItem struct {
	fs        afero.Fs
	path      string
	extension string
	duration  time.Duration

	size      atomic.Int64
	completed atomic.Bool

	mu     sync.Mutex
	refs   int
	logger *slog.Logger
}

func newCacheItem(fs afero.Fs, path string, info AudioInfo, logger *slog.Logger) *CacheItem {
	item := &CacheItem{
		fs:        fs,
		path:      path,
		extension: info.Extension,
		duration:  info.Duration,
		refs:      1, // the pool's own reference
		logger:    logger,
	}
	item.size.Store(info.Size)
	return item
}

// Path is the absolute path to the backing file inside the cache root.
func (i *CacheItem) Path() string { return i.path }

// Extension is the media file extension declared by the provider.
func (i *CacheItem) Extension() string { return i.extension }

// Duration is the track duration declared by the provider.
func (i *CacheItem) Duration() time.Duration { return i.duration }

// Size returns the expected or final byte length.
func (i *CacheItem) Size() int64 { return i.size.Load() }

// SetSize overwrites the byte length, called once by the copier when the
// observed size differs from the provider's declared size.
func (i *CacheItem) SetSize(n int64) { i.size.Store(n) }

// Completed reports whether the backing file holds the full object.
func (i *CacheItem) Completed() bool { return i.completed.Load() }

// SetCompleted marks (or unmarks) the item as a full, canonical copy.
func (i *CacheItem) SetCompleted(v bool) { i.completed.Store(v) }

// acquire adds a strong reference to the item. Must be paired with release.
func (i *CacheItem) acquire() {
	i.mu.Lock()
	i.refs++
	i.mu.Unlock()
}

// release drops a strong reference. When the last reference is released
// and the item is not completed, its backing file is removed and any
// removal error is logged and swallowed (spec.md §4.B).
func (i *CacheItem) release() {
	i.mu.Lock()
	i.refs--
	remaining := i.refs
	i.mu.Unlock()

	if remaining > 0 {
		return
	}
	if i.Completed() {
		return
	}
	if err := i.fs.Remove(i.path); err != nil && !os.IsNotExist(err) {
		i.logger.Error("audiocache: failed to remove incomplete cache file", "path", i.path, "error", err)
	}
}
