package audiocache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

// recencyCapacity bounds the simplelru.LRU's own internal size parameter.
// The pool never lets simplelru evict on its own (it always evicts
// manually via GetOldest and Remove after an explicit size check), so this only
// needs to be large enough to never trigger automatically.
const recencyCapacity = 1 << 30

// MissFunc produces the AudioInfo and byte stream for a cache miss. It is
// invoked at most once per concurrent wave of misses for the same key, and
// only when the key is not already registered.
type MissFunc func(ctx context.Context) (AudioInfo, io.ReadCloser, error)

// CachePool is a keyed, size-bounded, LRU-evicted disk cache with
// single-flight miss coordination (spec.md §3.1, §4.D).
type CachePool struct {
	fs      afero.Fs
	root    string
	maxSize int64
	logger  *slog.Logger
	metrics *Metrics

	items sync.Map // string -> *CacheItem

	mu      sync.Mutex // guards recency; never held across an await
	recency *lru.LRU[string, struct{}]

	flight  singleflight.Group
	copiers *conc.WaitGroup
}

// Option configures optional CachePool dependencies.
type Option func(*CachePool)

// WithFs overrides the filesystem backing the cache root. Defaults to
// afero.NewOsFs().
func WithFs(fs afero.Fs) Option {
	return func(p *CachePool) { p.fs = fs }
}

// WithLogger overrides the pool's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *CachePool) { p.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation. Defaults to nil
// (disabled).
func WithMetrics(m *Metrics) Option {
	return func(p *CachePool) { p.metrics = m }
}

// NewCachePool validates cfg.Root and constructs an empty CachePool. The
// pool never reads pre-existing files under cfg.Root on startup (spec.md
// §6.3: the directory is not authoritative across restarts).
func NewCachePool(cfg Config, opts ...Option) (*CachePool, error) {
	p := &CachePool{
		fs:      afero.NewOsFs(),
		root:    cfg.Root,
		maxSize: cfg.MaxSize,
		logger:  slog.Default(),
		copiers: conc.NewWaitGroup(),
	}
	for _, opt := range opts {
		opt(p)
	}

	recency, err := lru.NewLRU[string, struct{}](recencyCapacity, nil)
	if err != nil {
		return nil, fmt.Errorf("audiocache: create recency tracker: %w", err)
	}
	p.recency = recency

	if err := ValidateRoot(p.fs, p.root); err != nil {
		return nil, err
	}

	return p, nil
}

// Fetch resolves key to a CacheItem (serving a hit directly or running a
// single-flighted miss) and returns a reader positioned at rng.Start,
// capped at rng's length if bounded (spec.md §4.D "Reader assembly").
func (p *CachePool) Fetch(ctx context.Context, key string, rng Range, miss MissFunc) (*AudioResourceReader, error) {
	if key == "" {
		return nil, fmt.Errorf("audiocache: empty key")
	}

	item, err := p.resolve(ctx, key, miss)
	if err != nil {
		return nil, err
	}

	return p.openReader(item, rng)
}

// resolve returns the item registered for key, running the miss path
// (guarded by per-key single-flight) if it is not yet registered. The
// returned item always carries one extra reference on behalf of the
// caller, taken before resolve hands the pointer back, so that a
// concurrent eviction of key cannot delete the backing file out from
// under a caller that is still on its way to opening it. The caller (via
// openReader) is responsible for releasing that reference.
func (p *CachePool) resolve(ctx context.Context, key string, miss MissFunc) (*CacheItem, error) {
	if v, ok := p.items.Load(key); ok {
		item := v.(*CacheItem)
		item.acquire()
		p.touch(key)
		p.observe(func(m *Metrics) { m.hits.Inc() })
		return item, nil
	}

	v, err, _ := p.flight.Do(key, func() (any, error) {
		// Re-check: another Fetch may have completed admission for this
		// key while we were waiting to enter Do (the only caller that
		// actually runs admit is the first to reach this point for key).
		if v, ok := p.items.Load(key); ok {
			return v, nil
		}
		p.observe(func(m *Metrics) { m.misses.Inc() })
		return p.admit(ctx, key, miss)
	})
	if err != nil {
		return nil, err
	}

	// Every waiter sharing this Do call (the leader and any followers)
	// reaches here and must take its own reference: singleflight hands
	// the same *CacheItem back to all of them.
	item := v.(*CacheItem)
	item.acquire()
	return item, nil
}

// admit runs the miss path described in spec.md §4.D: reserve the key,
// await the upstream fetch, create the backing file, register the item,
// evict if over budget, and spawn the background copier.
func (p *CachePool) admit(ctx context.Context, key string, miss MissFunc) (*CacheItem, error) {
	p.mu.Lock()
	p.recency.Add(key, struct{}{})
	p.mu.Unlock()

	info, src, err := miss(ctx)
	if err != nil {
		p.forget(key)
		return nil, fmt.Errorf("audiocache: upstream fetch for key %s: %w", key, err)
	}

	itemPath := path.Join(p.root, key)
	dst, err := p.fs.Create(itemPath)
	if err != nil {
		src.Close()
		p.forget(key)
		return nil, fmt.Errorf("audiocache: create cache file for key %s: %w", key, err)
	}

	item := newCacheItem(p.fs, itemPath, info, p.logger)
	p.items.Store(key, item)

	p.evictIfOverBudget(key)

	p.copiers.Go(func() {
		p.copy(key, item, dst, src)
	})

	return item, nil
}

// forget removes a reserved-but-never-admitted key from recency, used
// when the miss path fails before an item is created.
func (p *CachePool) forget(key string) {
	p.mu.Lock()
	p.recency.Remove(key)
	p.mu.Unlock()
}

// touch marks key as most-recently-used.
func (p *CachePool) touch(key string) {
	p.mu.Lock()
	p.recency.Get(key)
	p.mu.Unlock()
}

// evictIfOverBudget evicts at most one least-recently-used item if the
// pool's total size exceeds maxSize. One overshoot per miss is tolerated
// by design (spec.md §8.1 invariant 3); this deliberately never evicts the
// key that was just admitted.
func (p *CachePool) evictIfOverBudget(justAdmitted string) {
	if p.maxSize <= 0 || p.totalSize() <= p.maxSize {
		return
	}

	p.mu.Lock()
	victim, _, ok := p.recency.GetOldest()
	if !ok || victim == justAdmitted {
		p.mu.Unlock()
		return
	}
	p.recency.Remove(victim)
	p.mu.Unlock()

	if p.dropItem(victim) {
		p.observe(func(m *Metrics) { m.evictions.Inc() })
	}
}

// Remove invalidates key: it is unregistered from items (flipping
// completed to false so the backing file is deleted on last reader
// release) and removed from recency. Safe to call for an unknown key.
func (p *CachePool) Remove(key string) {
	p.mu.Lock()
	p.recency.Remove(key)
	p.mu.Unlock()

	if p.dropItem(key) {
		p.observe(func(m *Metrics) { m.evictions.Inc() })
	}
}

// dropItem removes key from items and releases the pool's own reference,
// flipping completed to false first so the file is deleted once any
// outstanding readers release their references. Reports whether an item
// was actually present.
func (p *CachePool) dropItem(key string) bool {
	v, ok := p.items.LoadAndDelete(key)
	if !ok {
		return false
	}
	item := v.(*CacheItem)
	item.SetCompleted(false)
	item.release()
	return true
}

func (p *CachePool) totalSize() int64 {
	var sum int64
	p.items.Range(func(_, v any) bool {
		sum += v.(*CacheItem).Size()
		return true
	})
	return sum
}

// copy streams src into dst, completing the item on success. A failure is
// logged and swallowed (spec.md §7: background-copier failure is never
// surfaced to a caller); the item is left completed=false so it is
// eventually cleaned up on eviction, invalidation, or last-reader release.
func (p *CachePool) copy(key string, item *CacheItem, dst afero.File, src io.ReadCloser) {
	defer src.Close()
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		p.logger.Error("audiocache: background copy failed", "key", key, "error", err)
		return
	}

	if n != item.Size() {
		item.SetSize(n)
	}
	item.SetCompleted(true)
	p.observe(func(m *Metrics) { m.bytesCached.Add(float64(n)) })
}

// openReader opens a fresh handle to item's backing file, wraps it in a
// tail-following reader, and applies rng (spec.md §4.D "Reader assembly").
// item arrives with a reference already held by resolve on the caller's
// behalf; openReader consumes that reference, either handing it off to the
// returned reader (released on Close) or releasing it itself on an early
// error return.
func (p *CachePool) openReader(item *CacheItem, rng Range) (*AudioResourceReader, error) {
	f, err := p.fs.Open(item.Path())
	if err != nil {
		item.release()
		return nil, fmt.Errorf("audiocache: open cached file: %w", err)
	}

	tr := newTailReader(item, f)

	if rng.Start > 0 {
		if _, err := io.CopyN(io.Discard, tr, rng.Start); err != nil && err != io.EOF {
			tr.Close()
			return nil, fmt.Errorf("audiocache: skip to range start %d: %w", rng.Start, err)
		}
	}

	var rc io.ReadCloser = tr
	if length, ok := rng.Length(); ok {
		rc = &limitedReadCloser{Reader: io.LimitReader(tr, length), closer: tr}
	}

	return &AudioResourceReader{
		Info: AudioInfo{
			Extension: item.Extension(),
			Duration:  item.Duration(),
			Size:      item.Size(),
		},
		Range:  rng,
		Reader: rc,
	}, nil
}

// Close waits for in-flight background copies to finish, or for ctx to be
// done, whichever comes first. Not required for correctness (copiers are
// detached by design, spec.md §5), but lets an embedding server shut down
// gracefully without leaving dangling goroutines in tests.
func (p *CachePool) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.copiers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *CachePool) observe(fn func(*Metrics)) {
	if p.metrics != nil {
		fn(p.metrics)
	}
}
