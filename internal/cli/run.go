package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nclifford/remapper/internal/launcher"
	"github.com/nclifford/remapper/internal/logging"
	"github.com/nclifford/remapper/internal/mapping"
	"github.com/nclifford/remapper/internal/profile"
	"github.com/nclifford/remapper/internal/rmppath"
)

func newRunCmd() *cobra.Command {
	var debugLog string
	var profileName string

	cmd := &cobra.Command{
		Use:   "run [flags] <target-dir> <mapping>... -- <cmd> [args...]",
		Short: "Launch a program with a redirected view of the filesystem",
		Long: `Launch cmd so that every mapping's matched paths resolve inside
target-dir instead of their real location.

The -- separator is mandatory with more than one mapping; with exactly one
mapping it may be omitted:

  remapper run /tgt '~/.app*' -- codegen --flag
  remapper run /tgt '~/.app*' '~/.b*' -- codegen --flag`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if profileName == "" {
				profileName = os.Getenv("RMP_PROFILE")
			}

			targetRaw, mappingRaws, command, err := resolveRunArgs(cmd, args, profileName)
			if err != nil {
				return NewExitError(1, usageError(cmd, err))
			}

			home, err := rmppath.HomeDir()
			if err != nil {
				return NewExitError(127, err.Error())
			}
			cwd, err := os.Getwd()
			if err != nil {
				return NewExitError(127, fmt.Sprintf("io-error: getwd: %v", err))
			}

			target := rmppath.Absolutise(rmppath.TildeExpand(targetRaw, home), cwd)

			mappings := make([]mapping.Mapping, 0, len(mappingRaws))
			for _, raw := range mappingRaws {
				m, err := mapping.Parse(raw, home, cwd)
				if err != nil {
					return NewExitError(1, usageError(cmd, err))
				}
				mappings = append(mappings, m)
			}

			var debugSink *os.File
			if debugLog != "" {
				debugSink, err = os.OpenFile(debugLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return NewExitError(127, fmt.Sprintf("io-error: open %s: %v", debugLog, err))
				}
				defer debugSink.Close()
			}

			logger := logging.New(debugSink, debugLog != "")
			logger.Debug("launching", "run_id", uuid.NewString(), "target", target, "command", command[0])

			err = launcher.Launch(launcher.Request{
				Target:    target,
				Mappings:  mappings,
				Command:   command,
				DebugLog:  debugLog,
				DebugSink: debugSink,
			})
			if err == nil {
				// launcher.Launch only returns on pre-exec failure; success
				// means the process image was replaced and this line never
				// runs.
				return nil
			}
			return NewExitError(exitCodeFor(err), err.Error())
		},
	}

	cmd.Flags().StringVar(&debugLog, "debug-log", "", "write debug trace output to this file")
	cmd.Flags().StringVar(&profileName, "profile", "", "load target and mappings from a named profile (env RMP_PROFILE)")

	return cmd
}

// resolveRunArgs implements the run grammar of the CLI surface: the
// mandatory-dash-with-multiple-mappings form, the single-mapping
// shortcut, and profile-backed invocations where the target/mappings
// come from ~/.remapper/profiles.yaml and the command alone follows "--".
func resolveRunArgs(cmd *cobra.Command, args []string, profileName string) (target string, mappingRaws []string, command []string, err error) {
	dash := cmd.ArgsLenAtDash()

	if profileName != "" && dash == 0 {
		p, err := profile.Lookup(configDirForCLI(), profileName)
		if err != nil {
			return "", nil, nil, err
		}
		if len(args) == 0 {
			return "", nil, nil, fmt.Errorf("argument-error: missing command after --")
		}
		return p.Target, p.Mappings, args, nil
	}

	if dash >= 0 {
		pre, post := args[:dash], args[dash:]
		if profileName != "" {
			p, err := profile.Lookup(configDirForCLI(), profileName)
			if err != nil {
				return "", nil, nil, err
			}
			target = p.Target
			mappingRaws = p.Mappings
			if len(pre) > 0 {
				target = pre[0]
			}
			if len(pre) > 1 {
				mappingRaws = append(mappingRaws, pre[1:]...)
			}
			if len(post) == 0 {
				return "", nil, nil, fmt.Errorf("argument-error: missing command after --")
			}
			return target, mappingRaws, post, nil
		}

		if len(pre) < 2 {
			return "", nil, nil, fmt.Errorf("argument-error: expected <target-dir> <mapping>... before --")
		}
		if len(post) == 0 {
			return "", nil, nil, fmt.Errorf("argument-error: missing command after --")
		}
		return pre[0], pre[1:], post, nil
	}

	// No "--": the single-mapping shortcut, <target-dir> <mapping> <cmd> [args...].
	if len(args) < 3 {
		return "", nil, nil, fmt.Errorf("argument-error: expected at least <target-dir> <mapping> <cmd>")
	}
	return args[0], args[1:2], args[2:], nil
}

func usageError(cmd *cobra.Command, err error) string {
	return fmt.Sprintf("%v\n\n%s", err, cmd.UsageString())
}

// exitCodeFor maps an error kind tag onto the exit-code contract: an
// argument-error is a usage mistake (exit 1); everything else is a
// pre-exec failure (exit 127).
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if strings.HasPrefix(err.Error(), "argument-error") {
		return 1
	}
	return launcher.PreExecFailureExitCode
}

func configDirForCLI() string {
	if d := os.Getenv("RMP_CONFIG"); d != "" {
		return d
	}
	home, err := rmppath.HomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".remapper")
}
