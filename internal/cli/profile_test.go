package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nclifford/remapper/internal/profile"
)

func TestProfileSave_PersistsAndIsLoadable(t *testing.T) {
	t.Setenv("RMP_CONFIG", t.TempDir())

	cmd := newProfileCmd()
	cmd.SetArgs([]string{"save", "dev", "/tgt", "~/.app*", "~/.b*"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `saved profile "dev"`)

	p, err := profile.Lookup(configDirForCLI(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "/tgt", p.Target)
	assert.Equal(t, []string{"~/.app*", "~/.b*"}, p.Mappings)
}

func TestProfileSave_RejectsInvalidMapping(t *testing.T) {
	t.Setenv("RMP_CONFIG", t.TempDir())

	cmd := newProfileCmd()
	cmd.SetArgs([]string{"save", "dev", "/tgt", "/"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestProfileLS_EmptyReportsNoProfiles(t *testing.T) {
	t.Setenv("RMP_CONFIG", t.TempDir())

	cmd := newProfileCmd()
	cmd.SetArgs([]string{"ls"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "no profiles saved")
}
