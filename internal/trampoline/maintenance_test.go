package trampoline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_SkipsMetaSidecars(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin"), []byte("x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin.meta"), []byte("0 0"), 0o644))

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(dir, "bin"), entries[0].Path)
}

func TestClean_RemovesOldEntriesAndTheirMeta(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old-bin")
	fresh := filepath.Join(dir, "fresh-bin")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o755))
	require.NoError(t, os.WriteFile(old+".meta", []byte("0 0"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o755))

	pastTime := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, pastTime, pastTime))

	removed, err := Clean(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, removed)
	assert.NoFileExists(t, old)
	assert.NoFileExists(t, old+".meta")
	assert.FileExists(t, fresh)
}

func TestList_MissingCacheDirIsEmpty(t *testing.T) {
	entries, err := List(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
