// Package rmppath collects the small filesystem-path helpers shared by the
// launcher and the trampoline cache: home-directory lookup, tilde
// expansion, absolutisation, recursive directory creation, and PATH
// search. None of these allocate global state; callers pass home/cwd
// explicitly so the helpers stay trivially testable.
package rmppath

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
)

// ErrNoHome is returned by HomeDir when neither the environment nor the
// user database yields a usable home directory.
var ErrNoHome = errors.New("resolution-error: could not determine home directory")

// HomeDir prefers $HOME; on an empty/absent value it falls back to the
// user database. Both outcomes failing is a resolution-error.
func HomeDir() (string, error) {
	if h := os.Getenv("HOME"); h != "" {
		return h, nil
	}
	u, err := user.Current()
	if err != nil || u.HomeDir == "" {
		return "", ErrNoHome
	}
	return u.HomeDir, nil
}

// TildeExpand expands a leading "~" or "~/..." using home. Any other use
// of "~" (e.g. "~other") is left untouched — per-user-home expansion for
// users other than the caller is a declared non-goal.
func TildeExpand(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Absolutise joins path against cwd when it is not already absolute.
func Absolutise(path, cwd string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

// Mkdirs creates path component by component, the same way the original
// implementation does, tolerating "already exists" at each step. It is a
// thin, testable wrapper over os.MkdirAll with a fixed 0755 mode.
func Mkdirs(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("io-error: mkdirs %s: %w", path, err)
	}
	return nil
}

// LookPath walks $PATH for prog, the same way the kernel's exec would,
// unless prog already contains a slash (in which case it is used as-is).
// It never consults a shell.
func LookPath(prog string) (string, error) {
	if strings.ContainsRune(prog, '/') {
		return prog, nil
	}
	resolved, err := exec.LookPath(prog)
	if err != nil {
		return "", fmt.Errorf("resolution-error: %s not found on PATH: %w", prog, err)
	}
	return resolved, nil
}

// RunCapturingOutput runs name with args with no shell involved, capturing
// combined stdout+stderr. It is the "safe pipe-subprocess" utility used by
// the trampoline cache to talk to the signer and by diagnostics to probe
// system tools. A non-zero exit is reported through exitCode with a nil
// error; only a failure to start the program is a spawn-failure.
func RunCapturingOutput(name string, args ...string) (output string, exitCode int, err error) {
	cmd := exec.Command(name, args...)
	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		return "", -1, fmt.Errorf("spawn-failure: %s: %w", name, runErr)
	}
	return string(out), 0, nil
}
