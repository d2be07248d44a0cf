package audiocache

import (
	"context"
	"io"
)

// Wrapper adapts an upstream Provider to the same interface, routing audio
// fetches through a CachePool and passing everything else straight to the
// inner provider (spec.md §4.E).
type Wrapper struct {
	inner Provider
	pool  *CachePool
}

// NewWrapper builds a caching Provider in front of inner, using pool for
// all get-audio traffic.
func NewWrapper(inner Provider, pool *CachePool) *Wrapper {
	return &Wrapper{inner: inner, pool: pool}
}

var _ InvalidatingProvider = (*Wrapper)(nil)

// Albums reflects live upstream state; never cached.
func (w *Wrapper) Albums(ctx context.Context) (map[string]struct{}, error) {
	return w.inner.Albums(ctx)
}

// GetAudioInfo is always passed through: metadata requests are not cached.
func (w *Wrapper) GetAudioInfo(ctx context.Context, albumID string, discID, trackID uint8) (AudioInfo, error) {
	return w.inner.GetAudioInfo(ctx, albumID, discID, trackID)
}

// GetAudio routes the request through the pool. The upstream call used to
// fill a miss always requests Full, never the caller's range — the cache
// never asks the upstream provider for a partial object.
func (w *Wrapper) GetAudio(ctx context.Context, albumID string, discID, trackID uint8, rng Range) (*AudioResourceReader, error) {
	key := HashKey(albumID, discID, trackID)

	miss := func(ctx context.Context) (AudioInfo, io.ReadCloser, error) {
		res, err := w.inner.GetAudio(ctx, albumID, discID, trackID, Full)
		if err != nil {
			return AudioInfo{}, nil, err
		}
		return res.Info, res.Reader, nil
	}

	return w.pool.Fetch(ctx, key, rng, miss)
}

// GetCover is always passed through: cover art is not cached by the core.
func (w *Wrapper) GetCover(ctx context.Context, albumID string, discID *uint8) (io.ReadCloser, error) {
	return w.inner.GetCover(ctx, albumID, discID)
}

// Reload is passed through to the underlying provider.
func (w *Wrapper) Reload(ctx context.Context) error {
	return w.inner.Reload(ctx)
}

// Invalidate drops the cached copy of one track, if any.
func (w *Wrapper) Invalidate(albumID string, discID, trackID uint8) {
	w.pool.Remove(HashKey(albumID, discID, trackID))
}
