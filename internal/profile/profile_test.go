package profile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	profiles, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestSaveThenLookup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, "dev", Profile{
		Target:   "/tmp/dev-target",
		Mappings: []string{"~/.apprc"},
	}))

	p, err := Lookup(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dev-target", p.Target)
	assert.Equal(t, []string{"~/.apprc"}, p.Mappings)
}

func TestLookup_UnknownNameErrors(t *testing.T) {
	_, err := Lookup(t.TempDir(), "nope")
	require.Error(t, err)
}

func TestSave_PreservesOtherProfiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, "a", Profile{Target: "/a"}))
	require.NoError(t, Save(dir, "b", Profile{Target: "/b"}))

	profiles, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "/a", profiles["a"].Target)
	assert.Equal(t, "/b", profiles["b"].Target)
	assert.FileExists(t, filepath.Join(dir, FileName))
}
