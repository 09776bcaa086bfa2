//go:build linux

package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nclifford/remapper/internal/mapping"
)

func TestBuildMounts(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, ".apprc"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, "unrelated"), []byte("x"), 0o644))

	m, err := mapping.Parse(filepath.Join(home, ".app*"), home, "/")
	require.NoError(t, err)

	target := t.TempDir()
	set, err := mapping.NewSet(target, []mapping.Mapping{m})
	require.NoError(t, err)

	mounts, err := buildMounts(set)
	require.NoError(t, err)
	require.Len(t, mounts, 1)
	assert.Equal(t, filepath.Join(home, ".apprc"), mounts[0].source)
	assert.Equal(t, filepath.Join(target, ".apprc"), mounts[0].target)
}

func TestBuildMounts_OverCapacityIsArgumentError(t *testing.T) {
	home := t.TempDir()
	for i := 0; i < maxMountEntries+1; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(home, ".app"+string(rune('a'+i%26))+string(rune('a'+i/26))), []byte("x"), 0o644))
	}

	m, err := mapping.Parse(filepath.Join(home, ".app*"), home, "/")
	require.NoError(t, err)

	set, err := mapping.NewSet(t.TempDir(), []mapping.Mapping{m})
	require.NoError(t, err)

	_, err = buildMounts(set)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument-error")
}

func TestBuildMounts_NoMatchesIsEmpty(t *testing.T) {
	home := t.TempDir()
	m, err := mapping.Parse(filepath.Join(home, ".app*"), home, "/")
	require.NoError(t, err)

	set, err := mapping.NewSet(t.TempDir(), []mapping.Mapping{m})
	require.NoError(t, err)

	mounts, err := buildMounts(set)
	require.NoError(t, err)
	assert.Empty(t, mounts)
}

func TestScaffoldTarget_CreatesFilePlaceholder(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "file")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	dstDir := t.TempDir()
	dst := filepath.Join(dstDir, "nested", "file")

	require.NoError(t, scaffoldTarget(mountEntry{source: src, target: dst}))
	st, err := os.Stat(dst)
	require.NoError(t, err)
	assert.False(t, st.IsDir())
}

func TestScaffoldTarget_CreatesDirPlaceholder(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "nested", "dir")

	require.NoError(t, scaffoldTarget(mountEntry{source: src, target: dst}))
	st, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}
