package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewRoot builds the command tree: run (the launcher), doctor, cache,
// profile, and the --version flag cobra derives automatically from
// cmd.Version.
func NewRoot(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "remapper",
		Short:         "remapper: launch a program with a redirected view of the filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = version
	cmd.SetVersionTemplate("remapper {{.Version}}\n")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newProfileCmd())

	return cmd
}

// knownSubcommands are the top-level command names (plus the cobra-builtin
// pseudo-commands) that InsertLegacyRun must never shadow.
var knownSubcommands = map[string]bool{
	"run":        true,
	"doctor":     true,
	"cache":      true,
	"profile":    true,
	"help":       true,
	"version":    true,
	"completion": true,
}

// InsertLegacyRun prepends "run" to args when the first token isn't a
// known subcommand or flag and the rest looks like the legacy
// `<target-dir> <mapping>... -- <cmd>...` invocation spec.md documents
// with no "run" prefix — a bare "--" separator, or at least the
// single-mapping shortcut's three positional tokens. Anything else
// (including a bare "--version"/"--help") is left untouched so cobra's
// own flag and subcommand handling still applies.
func InsertLegacyRun(args []string) []string {
	if len(args) == 0 {
		return args
	}
	first := args[0]
	if knownSubcommands[first] || strings.HasPrefix(first, "-") {
		return args
	}

	hasDash := false
	for _, a := range args {
		if a == "--" {
			hasDash = true
			break
		}
	}
	if !hasDash && len(args) < 3 {
		return args
	}

	out := make([]string, 0, len(args)+1)
	out = append(out, "run")
	out = append(out, args...)
	return out
}
