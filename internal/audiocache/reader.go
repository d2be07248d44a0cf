package audiocache

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

// tailPollInterval is how long the reader waits before retrying a read
// that found nothing past the writer's current position. Fixed at 100ms
// per spec.md §4.C: simple, bounds wake-ups at <=10Hz per reader, and
// naturally tolerates the writer updating Size() after a short read.
const tailPollInterval = 100 * time.Millisecond

// tailReader is a byte stream over a CacheItem's backing file. It blocks
// when it catches up with the writer and terminates at logical EOF, which
// is only reached once the item is Completed() and exactly Size() bytes
// have been delivered.
type tailReader struct {
	item   *CacheItem
	file   afero.File
	filled atomic.Int64
	closed atomic.Bool
	done   chan struct{}
}

func newTailReader(item *CacheItem, file afero.File) *tailReader {
	return &tailReader{item: item, file: file, done: make(chan struct{})}
}

// Read implements the tail-following algorithm from spec.md §4.C:
//  1. Attempt a read from the file at its current position.
//  2. If it yielded bytes, deliver them.
//  3. If it returned EOF:
//     - item completed and filled == size: signal EOF.
//     - item completed but filled < size: more bytes landed between our
//       length check and EOF; retry immediately.
//     - item not completed: wait 100ms and retry.
//  4. Any other I/O error is surfaced without retry.
func (r *tailReader) Read(p []byte) (int, error) {
	for {
		if r.closed.Load() {
			return 0, io.ErrClosedPipe
		}

		n, err := r.file.Read(p)
		if n > 0 {
			r.filled.Add(int64(n))
			return n, nil
		}

		if err != nil && err != io.EOF {
			return 0, err
		}

		if r.item.Completed() {
			if r.filled.Load() >= r.item.Size() {
				return 0, io.EOF
			}
			continue // writer finished between our read and this check; retry now
		}

		select {
		case <-r.done:
			return 0, io.ErrClosedPipe
		case <-time.After(tailPollInterval):
		}
	}
}

// Close releases the reader's file handle and its reference on the item.
// Idempotent; an in-progress wait is interrupted immediately.
func (r *tailReader) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.done)
	err := r.file.Close()
	r.item.release()
	return err
}

// limitedReadCloser adapts an io.LimitReader (for range caps) back into an
// io.ReadCloser by delegating Close to the underlying tailReader.
type limitedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l *limitedReadCloser) Close() error { return l.closer.Close() }
