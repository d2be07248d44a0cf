package audiocache

import (
	"fmt"

	"github.com/spf13/afero"
)

// Config holds CachePool construction options (spec.md §6.4). There are no
// environment variables or CLI flags defined by this package; a Config is
// built and validated entirely by the embedding application.
type Config struct {
	// Root is the cache directory. Must exist (or be creatable) and be
	// writable; use ValidateRoot before NewCachePool to check this
	// explicitly and get a clear error.
	Root string
	// MaxSize is a soft upper bound, in bytes, on the sum of resident
	// item sizes. Zero means unbounded.
	MaxSize int64
}

const probeFileName = ".audiocache-write-test"

// ValidateRoot checks that cfg.Root exists under fs (creating it if
// missing) and is writable, by creating and removing a small probe file.
// Adapted from the donor's internal/pathutil.CheckDirectoryWritable,
// generalized to operate against any afero.Fs so the same check runs
// against an in-memory filesystem in tests.
func ValidateRoot(fs afero.Fs, root string) error {
	if root == "" {
		return fmt.Errorf("audiocache: cache root must not be empty")
	}

	info, err := fs.Stat(root)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("audiocache: cache root %q is not a directory", root)
		}
	case afero.IsNotExist(err):
		if err := fs.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("audiocache: cache root %q does not exist and cannot be created: %w", root, err)
		}
	default:
		return fmt.Errorf("audiocache: cannot access cache root %q: %w", root, err)
	}

	probe := root + "/" + probeFileName
	f, err := fs.Create(probe)
	if err != nil {
		return fmt.Errorf("audiocache: cache root %q is not writable: %w", root, err)
	}
	_ = f.Close()
	_ = fs.Remove(probe)

	return nil
}
