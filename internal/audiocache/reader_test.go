package audiocache

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func openTailReader(t *testing.T, fs afero.Fs, item *CacheItem) *tailReader {
	t.Helper()
	f, err := fs.Open(item.Path())
	require.NoError(t, err)
	return newTailReader(item, f)
}

func TestTailReaderWaitsThenDeliversAppendedBytes(t *testing.T) {
	fs := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "growing")
	require.NoError(t, afero.WriteFile(fs, path, []byte("first-"), 0o644))

	item := newCacheItem(fs, path, AudioInfo{Size: 12}, slog.Default())
	defer item.release()

	r := openTailReader(t, fs, item)
	defer r.Close()

	buf := make([]byte, 6)
	n, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	require.Equal(t, "first-", string(buf[:n]))

	// Reader has caught up with the (still incomplete) writer; the next
	// Read must block, polling every 100ms, until more bytes land.
	appended := make(chan struct{})
	go func() {
		time.Sleep(150 * time.Millisecond)
		w, err := fs.OpenFile(path, 0, 0)
		if err == nil {
			w.Close()
		}
		_ = afero.WriteFile(fs, path, []byte("first-second"), 0o644)
		close(appended)
	}()

	buf2 := make([]byte, 6)
	n, err = io.ReadFull(r, buf2)
	<-appended
	require.NoError(t, err)
	require.Equal(t, "second", string(buf2[:n]))
}

func TestTailReaderEOFExactlyAtCompletedSize(t *testing.T) {
	fs := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "full")
	payload := []byte("0123456789")
	require.NoError(t, afero.WriteFile(fs, path, payload, 0o644))

	item := newCacheItem(fs, path, AudioInfo{Size: int64(len(payload))}, slog.Default())
	item.SetCompleted(true)
	defer item.release()

	r := openTailReader(t, fs, item)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestTailReaderDeliversRestAfterWriterCompletes(t *testing.T) {
	// Simulates the writer appending the remaining bytes and marking the
	// item completed while the reader is waiting at the tail: the reader
	// must not treat its earlier EOF as final.
	fs := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "race")
	require.NoError(t, afero.WriteFile(fs, path, []byte("abc"), 0o644))

	item := newCacheItem(fs, path, AudioInfo{Size: 6}, slog.Default())
	defer item.release()

	r := openTailReader(t, fs, item)
	defer r.Close()

	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))

	go func() {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, afero.WriteFile(fs, path, []byte("abcdef"), 0o644))
		item.SetCompleted(true)
	}()

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "def", string(rest))
}

func TestTailReaderCloseInterruptsWaitPromptly(t *testing.T) {
	fs := afero.NewOsFs()
	path := filepath.Join(t.TempDir(), "stalled")
	require.NoError(t, afero.WriteFile(fs, path, nil, 0o644))

	item := newCacheItem(fs, path, AudioInfo{Size: 100}, slog.Default())
	defer item.release()

	r := openTailReader(t, fs, item)

	done := make(chan error, 1)
	go func() {
		_, err := r.Read(make([]byte, 1))
		done <- err
	}()

	start := time.Now()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Close())

	err := <-done
	elapsed := time.Since(start)

	require.ErrorIs(t, err, io.ErrClosedPipe)
	require.Less(t, elapsed, tailPollInterval, "Close should interrupt an in-progress wait rather than waiting out the poll interval")
}
