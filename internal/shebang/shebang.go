// Package shebang resolves a script's interpreter the way the kernel
// would, rewriting the exec target and argv so that a dyld-injected
// library survives the kernel's own #! handling on Darwin — where either
// `env` indirection or a SIP-protected/hardened direct interpreter would
// otherwise exec a process the injector never gets to touch.
package shebang

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nclifford/remapper/internal/rmppath"
	"github.com/nclifford/remapper/internal/trampoline"
)

// sipPrefixes are the SIP-protected regions whose binaries are always
// treated as if hardened, regardless of their own signature.
var sipPrefixes = []string{"/usr/", "/bin/", "/sbin/"}

// maxShebangBytes bounds how much of the script is read while looking
// for the interpreter line.
const maxShebangBytes = 256

// Result is the possibly-rewritten exec target produced by Resolve.
// Rewritten is false when the kernel should be left to handle the
// shebang normally (no env indirection, no hardened/SIP interpreter).
type Result struct {
	Binary    string
	Argv      []string
	Rewritten bool
}

// Resolve inspects scriptPath's first line and, per the component's
// contract, returns either an env-form rewrite, a direct-form trampoline
// rewrite, or Rewritten=false to let the kernel proceed unmodified.
// tctx may be nil only when the caller already knows no SIP/hardened
// rewrite can apply (tests exercising the env-form path, for instance);
// passing nil into the direct-form branch for a binary that actually
// needs a trampoline is a programmer error and returns an error.
func Resolve(ctx context.Context, tctx *trampoline.Context, scriptPath string, origArgv []string) (Result, error) {
	interp, arg, ok, err := readShebang(scriptPath)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, nil
	}

	rest := []string{}
	if len(origArgv) > 1 {
		rest = origArgv[1:]
	}

	if interp == "/usr/bin/env" {
		return resolveEnvForm(arg, scriptPath, rest)
	}
	return resolveDirectForm(ctx, tctx, interp, arg, scriptPath, rest)
}

// resolveEnvForm splits the kernel's single shebang argument ("PROG
// [extra]") into the program name to resolve via PATH and an optional
// extra argument that is carried through verbatim.
func resolveEnvForm(shebangArg, scriptPath string, rest []string) (Result, error) {
	prog, extra, ok := strings.Cut(shebangArg, " ")
	if !ok {
		prog = shebangArg
	}
	prog = strings.TrimSpace(prog)
	extra = strings.TrimSpace(extra)
	if prog == "" {
		return Result{}, nil
	}

	resolved, err := rmppath.LookPath(prog)
	if err != nil {
		return Result{}, err
	}

	argv := []string{resolved}
	if extra != "" {
		argv = append(argv, extra)
	}
	argv = append(argv, scriptPath)
	argv = append(argv, rest...)
	return Result{Binary: resolved, Argv: argv, Rewritten: true}, nil
}

func resolveDirectForm(ctx context.Context, tctx *trampoline.Context, interp, arg, scriptPath string, rest []string) (Result, error) {
	needsTrampoline := hasSIPPrefix(interp)
	if !needsTrampoline {
		if tctx == nil {
			return Result{}, nil
		}
		needsTrampoline = tctx.IsHardened(interp)
	}
	if !needsTrampoline {
		return Result{}, nil
	}
	if tctx == nil {
		return Result{}, fmt.Errorf("shebang interpreter %q needs a trampoline but no signer context was provided", interp)
	}

	binary, _, err := tctx.ResolveHardened(ctx, interp)
	if err != nil {
		// signer-failure: fall through with the original interpreter
		// rather than fail the whole launch.
		binary = interp
	}

	argv := []string{binary}
	if arg != "" {
		argv = append(argv, arg)
	}
	argv = append(argv, scriptPath)
	argv = append(argv, rest...)
	return Result{Binary: binary, Argv: argv, Rewritten: true}, nil
}

func hasSIPPrefix(path string) bool {
	for _, p := range sipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// readShebang returns the interpreter path and its optional single
// trailing argument, following the kernel's own shebang convention: at
// most one argument, everything after the first blank preserved
// verbatim (further internal whitespace is part of the argument).
func readShebang(scriptPath string) (interp, arg string, ok bool, err error) {
	f, err := os.Open(scriptPath)
	if err != nil {
		return "", "", false, fmt.Errorf("resolution-error: open %s: %w", scriptPath, err)
	}
	defer f.Close()

	buf := make([]byte, maxShebangBytes)
	n, readErr := io.ReadFull(bufio.NewReader(f), buf)
	if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
		return "", "", false, fmt.Errorf("io-error: read %s: %w", scriptPath, readErr)
	}
	buf = buf[:n]

	if len(buf) < 3 || buf[0] != '#' || buf[1] != '!' {
		return "", "", false, nil
	}
	line := buf[2:]
	if idx := strings.IndexByte(string(line), '\n'); idx >= 0 {
		line = line[:idx]
	}

	trimmed := strings.TrimLeft(string(line), " \t")
	if trimmed == "" {
		return "", "", false, nil
	}

	sp := strings.IndexAny(trimmed, " \t")
	if sp < 0 {
		return trimmed, "", true, nil
	}
	interpPath := trimmed[:sp]
	remainder := strings.TrimLeft(trimmed[sp:], " \t")
	return interpPath, remainder, true, nil
}
