package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		home       string
		cwd        string
		wantParent string
		wantGlob   string
		wantErr    bool
	}{
		{"absolute", "/h/.app*", "/h", "/cwd", "/h/", ".app*", false},
		{"tilde", "~/.app*", "/h", "/cwd", "/h/", ".app*", false},
		{"bare tilde dir", "~/.app", "/h", "/cwd", "/h/", ".app", false},
		{"relative", ".app*", "/h", "/cwd", "/cwd/", ".app*", false},
		{"root-level rejected", "/app*", "/h", "/cwd", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.raw, tt.home, tt.cwd)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantParent, m.ParentDir)
			assert.Equal(t, tt.wantGlob, m.Glob)
		})
	}
}

func TestSet_Rewrite(t *testing.T) {
	m1, err := Parse("/h/.app*", "/h", "/")
	require.NoError(t, err)
	m2, err := Parse("/h/.b*", "/h", "/")
	require.NoError(t, err)

	set, err := NewSet("/tgt", []Mapping{m1, m2})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"matches first mapping with trailing path", "/h/.app/x", "/tgt/.app/x", true},
		{"matches first mapping's prefix-glob variant", "/h/.app-code/z", "/tgt/.app-code/z", true},
		{"no match for unrelated sibling", "/h/foo/.app", "/h/foo/.app", false},
		{"exact parent dir is not rewritten", "/h/", "/h/", false},
		{"component beyond slash still bound to prefix", "/h/.b/y/z", "/tgt/.b/y/z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := set.Rewrite(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSet_RewriteNoMappingsIsNoOp(t *testing.T) {
	set, err := NewSet("/tgt", nil)
	require.NoError(t, err)

	got, ok := set.Rewrite("/anything/at/all")
	assert.False(t, ok)
	assert.Equal(t, "/anything/at/all", got)
}

func TestNewSet_OverCapacity(t *testing.T) {
	many := make([]Mapping, MaxMappings+1)
	_, err := NewSet("/tgt", many)
	require.Error(t, err)
}

func TestNewSet_NormalisesTrailingSlash(t *testing.T) {
	set, err := NewSet("/tgt", nil)
	require.NoError(t, err)
	assert.Equal(t, "/tgt/", set.Target)
}

func TestMapping_MatchingEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".app-one"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".app-two"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o644))

	m, err := Parse(filepath.Join(dir, ".app*"), "/h", "/")
	require.NoError(t, err)

	matches, err := m.MatchingEntries()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, ".app-one"),
		filepath.Join(dir, ".app-two"),
	}, matches)
}

func TestMapping_MatchingEntries_MissingParentDirIsEmpty(t *testing.T) {
	m, err := Parse("/does/not/exist/.app*", "/h", "/")
	require.NoError(t, err)

	matches, err := m.MatchingEntries()
	require.NoError(t, err)
	assert.Empty(t, matches)
}
