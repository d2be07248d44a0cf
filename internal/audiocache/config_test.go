package audiocache_test

import (
	"path/filepath"
	"testing"

	"github.com/nyaru/annil-go/internal/audiocache"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRootCreatesMissingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/var/cache/audio"

	require.NoError(t, audiocache.ValidateRoot(fs, root))

	info, err := fs.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestValidateRootLeavesNoProbeFileBehind(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/var/cache/audio"
	require.NoError(t, audiocache.ValidateRoot(fs, root))

	entries, err := afero.ReadDir(fs, root)
	require.NoError(t, err)
	assert.Empty(t, entries, "the writability probe file must be cleaned up")
}

func TestValidateRootRejectsNonDirectoryPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/var/cache/audio", []byte("not a dir"), 0o644))

	err := audiocache.ValidateRoot(fs, "/var/cache/audio")
	assert.Error(t, err)
}

func TestValidateRootRejectsEmptyPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.Error(t, audiocache.ValidateRoot(fs, ""))
}

func TestValidateRootAcceptsExistingWritableDirectory(t *testing.T) {
	fs := afero.NewOsFs()
	root := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, fs.MkdirAll(root, 0o755))

	assert.NoError(t, audiocache.ValidateRoot(fs, root))
}

func TestValidateRootRejectsReadOnlyFilesystem(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	assert.Error(t, audiocache.ValidateRoot(fs, "/cache"))
}
