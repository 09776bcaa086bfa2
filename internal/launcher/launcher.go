// Package launcher implements the launch adapter (C10) and dispatches to
// whichever realisation — the Darwin library-interposition engine or the
// Linux mount-namespace engine — the build target provides.
package launcher

import (
	"fmt"
	"io"

	"github.com/nclifford/remapper/internal/mapping"
)

// PreExecFailureExitCode is the canonical "could not exec" status the
// spec's exit-code contract assigns to any failure before the target
// program is reached.
const PreExecFailureExitCode = 127

// Request is the immutable LaunchRequest: produced once by the CLI
// adapter and consumed once by whichever realisation runs.
type Request struct {
	Target    string
	Mappings  []mapping.Mapping
	Command   []string
	DebugLog  string
	DebugSink io.Writer
}

// Launch normalises req and dispatches to the platform realisation. On
// success the target process image replaces this one (via exec) and
// Launch never returns; it returns only on a pre-exec failure, which the
// CLI adapter maps to PreExecFailureExitCode (argument-errors, such as a
// missing command or too many mappings, map to exit code 1 instead).
func Launch(req Request) error {
	if len(req.Command) == 0 {
		return fmt.Errorf("argument-error: no command to launch")
	}
	set, err := mapping.NewSet(req.Target, req.Mappings)
	if err != nil {
		return err
	}
	return launch(req, set)
}
