// Package audiocache implements a streaming, read-through disk cache that
// sits in front of an abstract audio Provider. A caller asking for a byte
// range of (album, disc, track) is served from a local cache file; on a
// miss the cache downloads the full object from the upstream Provider while
// simultaneously streaming the bytes already written to the requesting
// reader, and collapses concurrent misses for the same track into a single
// upstream fetch.
package audiocache

import (
	"context"
	"io"
	"time"
)

// AudioInfo describes a single track as reported by a Provider.
type AudioInfo struct {
	// Extension is the file extension of the audio resource, without a
	// leading dot (e.g. "flac").
	Extension string
	// Duration is the track length as declared by the provider.
	Duration time.Duration
	// Size is the provider's declared byte length. It may be wrong; the
	// cache overwrites it with the observed byte count once a download
	// completes.
	Size int64
}

// AudioResourceReader is returned by Provider.GetAudio and Wrapper.GetAudio.
// Info is a snapshot taken when the reader was constructed; Size may still
// grow after that snapshot if info.Size was the wrapped CacheItem's
// provider-declared size.
type AudioResourceReader struct {
	Info   AudioInfo
	Range  Range
	Reader io.ReadCloser
}

// Provider is the upstream collaborator the cache sits in front of. It is
// modeled as an interface so that the cache never depends on any concrete
// transport (local filesystem, cloud drive, RPC client, ...).
type Provider interface {
	// Albums returns the current set of known album IDs.
	Albums(ctx context.Context) (map[string]struct{}, error)

	// GetAudioInfo returns metadata for one track without fetching it.
	GetAudioInfo(ctx context.Context, albumID string, discID, trackID uint8) (AudioInfo, error)

	// GetAudio opens a reader over the requested byte range of one track.
	// The provider is never asked to resume a partial download: callers
	// that need caching call this through a Wrapper instead.
	GetAudio(ctx context.Context, albumID string, discID, trackID uint8, rng Range) (*AudioResourceReader, error)

	// GetCover opens a reader over an album's (or one disc's) cover art.
	GetCover(ctx context.Context, albumID string, discID *uint8) (io.ReadCloser, error)

	// Reload refreshes any provider-internal view of the backing store.
	Reload(ctx context.Context) error
}

// InvalidatingProvider is a Provider that additionally supports dropping a
// single cached track. Wrapper implements this on top of a plain Provider.
type InvalidatingProvider interface {
	Provider

	// Invalidate evicts the cached copy of one track, if any. Safe to call
	// for a track that was never cached.
	Invalidate(albumID string, discID, trackID uint8)
}
