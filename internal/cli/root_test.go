package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertLegacyRun_BareLegacyFormGetsRunPrefix(t *testing.T) {
	got := InsertLegacyRun([]string{"/tgt", "~/.app*", "--", "cmd", "arg1"})
	assert.Equal(t, []string{"run", "/tgt", "~/.app*", "--", "cmd", "arg1"}, got)
}

func TestInsertLegacyRun_BareShortcutFormGetsRunPrefix(t *testing.T) {
	got := InsertLegacyRun([]string{"/tgt", "~/.app*", "cmd"})
	assert.Equal(t, []string{"run", "/tgt", "~/.app*", "cmd"}, got)
}

func TestInsertLegacyRun_KnownSubcommandIsUntouched(t *testing.T) {
	got := InsertLegacyRun([]string{"doctor"})
	assert.Equal(t, []string{"doctor"}, got)

	got = InsertLegacyRun([]string{"run", "/tgt", "~/.app*", "--", "cmd"})
	assert.Equal(t, []string{"run", "/tgt", "~/.app*", "--", "cmd"}, got)
}

func TestInsertLegacyRun_LeadingFlagIsUntouched(t *testing.T) {
	got := InsertLegacyRun([]string{"--version"})
	assert.Equal(t, []string{"--version"}, got)
}

func TestInsertLegacyRun_TooShortToBeLegacyIsUntouched(t *testing.T) {
	got := InsertLegacyRun([]string{"/tgt", "~/.app*"})
	assert.Equal(t, []string{"/tgt", "~/.app*"}, got)
}

func TestInsertLegacyRun_EmptyArgsIsUntouched(t *testing.T) {
	assert.Equal(t, []string{}, InsertLegacyRun([]string{}))
}
