package trampoline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHardened_NotMachOPassesThrough(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(original, []byte("#!/bin/sh\necho hi\n"), 0o755))

	ctx := &Context{
		ConfigDir:        dir,
		CacheDir:         filepath.Join(dir, "cache"),
		EntitlementsPath: filepath.Join(dir, "entitlements.plist"),
		SignerPath:       "/usr/bin/true",
	}

	resolved, cached, err := ctx.ResolveHardened(context.Background(), original)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, original, resolved)
}

func TestResolveHardened_ReentrantCallPassesThrough(t *testing.T) {
	dir := t.TempDir()
	original := writeOriginal(t, dir)

	ctx := &Context{
		ConfigDir:        dir,
		CacheDir:         filepath.Join(dir, "cache"),
		EntitlementsPath: filepath.Join(dir, "entitlements.plist"),
		SignerPath:       "/usr/bin/true",
	}

	guarded := withResolving(context.Background())
	resolved, cached, err := ctx.ResolveHardened(guarded, original)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, original, resolved)
}

func TestResolveHardened_ValidCacheIsReused(t *testing.T) {
	dir := t.TempDir()
	original := writeOriginal(t, dir)

	ctx := &Context{
		ConfigDir:        dir,
		CacheDir:         filepath.Join(dir, "cache"),
		EntitlementsPath: filepath.Join(dir, "entitlements.plist"),
		SignerPath:       "/usr/bin/true",
	}
	require.NoError(t, os.WriteFile(ctx.EntitlementsPath, []byte(entitlementsXML), 0o644))

	cached, err := ctx.Create(original)
	require.NoError(t, err)

	resolved, wasCached, err := ctx.ResolveHardened(context.Background(), original)
	require.NoError(t, err)
	assert.True(t, wasCached)
	assert.Equal(t, cached, resolved)
}
