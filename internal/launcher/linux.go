//go:build linux

package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nclifford/remapper/internal/mapping"
	"github.com/nclifford/remapper/internal/rmppath"
)

// launch implements C9: enumerate every mapping's matching entries, enter
// a fresh user+mount namespace, bind-mount each match's counterpart under
// the target over the matched path, and exec the command inside that
// namespace.
// A mapping set with zero matches anywhere is a warning, not a failure —
// the command still runs, just unmodified.
func launch(req Request, set *mapping.Set) error {
	mounts, err := buildMounts(set)
	if err != nil {
		return err
	}
	if len(mounts) == 0 && req.DebugSink != nil {
		fmt.Fprintf(req.DebugSink, "[remapper] no mapping matched anything under its parent directory; launching unmodified\n")
	}

	cmdPath, err := rmppath.LookPath(req.Command[0])
	if err != nil {
		return err
	}
	argv := append([]string{cmdPath}, req.Command[1:]...)

	if len(mounts) > 0 {
		if err := enterNamespace(); err != nil {
			return err
		}
		if err := applyMounts(set.Target, mounts); err != nil {
			return err
		}
	}

	if err := syscall.Exec(cmdPath, argv, os.Environ()); err != nil {
		return fmt.Errorf("resolution-error: exec %s: %w", cmdPath, err)
	}
	return nil // unreachable: syscall.Exec replaces the process image on success
}

// maxMountEntries bounds the number of bind mounts a single launch may
// build. A mapping set that legitimately expands to more entries than
// this is rejected outright rather than bind-mounted partially.
const maxMountEntries = 256

// mountEntry is a single recursive bind mount: source is the real path
// that matched a mapping and serves as the mount point; target is its
// rewritten counterpart under the target directory, whose content is
// mounted over source so the original path shows what the Darwin
// interposer's rewrite would have produced.
type mountEntry struct {
	source string
	target string
}

// buildMounts enumerates every mapping's matching entries and pairs each
// with its rewritten destination under the target directory, mirroring
// C1's matching algorithm without needing to intercept every syscall: on
// Linux the rewrite is applied once, up front, as a mount plan.
func buildMounts(set *mapping.Set) ([]mountEntry, error) {
	var mounts []mountEntry
	for _, m := range set.Mappings {
		matches, err := m.MatchingEntries()
		if err != nil {
			return nil, err
		}
		for _, src := range matches {
			rewritten, ok := set.Rewrite(src)
			if !ok {
				continue
			}
			mounts = append(mounts, mountEntry{source: src, target: rewritten})
		}
	}
	if len(mounts) > maxMountEntries {
		return nil, fmt.Errorf("argument-error: over-capacity: %d mount entries exceeds the limit of %d", len(mounts), maxMountEntries)
	}
	return mounts, nil
}

// enterNamespace unshares a new user and mount namespace and maps the
// caller's real uid/gid to uid/gid 0 inside it, so this process may
// bind-mount without elevated privilege outside and the mounts are
// visible only to this process tree.
// EPERM here almost always means unprivileged user namespaces are
// disabled system-wide (sysctl kernel.unprivileged_userns_clone=0), which
// is worth saying explicitly since the raw errno alone is not actionable.
func enterNamespace() error {
	uid := os.Getuid()
	gid := os.Getgid()

	if err := unix.Unshare(unix.CLONE_NEWUSER | unix.CLONE_NEWNS); err != nil {
		if err == unix.EPERM {
			return fmt.Errorf("namespace-error: unshare user+mount namespace: %w (unprivileged user namespaces may be disabled — check kernel.unprivileged_userns_clone)", err)
		}
		return fmt.Errorf("namespace-error: unshare user+mount namespace: %w", err)
	}

	if err := os.WriteFile("/proc/self/setgroups", []byte("deny"), 0o644); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("namespace-error: write /proc/self/setgroups: %w", err)
	}
	if err := os.WriteFile("/proc/self/uid_map", []byte(fmt.Sprintf("0 %d 1\n", uid)), 0o644); err != nil {
		return fmt.Errorf("namespace-error: write /proc/self/uid_map: %w", err)
	}
	if err := os.WriteFile("/proc/self/gid_map", []byte(fmt.Sprintf("0 %d 1\n", gid)), 0o644); err != nil {
		return fmt.Errorf("namespace-error: write /proc/self/gid_map: %w", err)
	}

	// MS_REC|MS_PRIVATE on / stops our bind mounts from propagating back
	// to the parent namespace's mount table.
	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return fmt.Errorf("namespace-error: make / private: %w", err)
	}
	return nil
}

// applyMounts scaffolds the target directory tree and recursively bind
// mounts each entry's counterpart under the target over its matched
// source path, creating parent directories (and, for file sources, an
// empty placeholder file) as needed so the counterpart exists before the
// mount syscall runs.
func applyMounts(target string, mounts []mountEntry) error {
	if err := rmppath.Mkdirs(target); err != nil {
		return err
	}
	for _, m := range mounts {
		if err := scaffoldTarget(m); err != nil {
			return err
		}
		if err := unix.Mount(m.target, m.source, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
			return fmt.Errorf("namespace-error: bind mount %s -> %s: %w", m.target, m.source, err)
		}
	}
	return nil
}

func scaffoldTarget(m mountEntry) error {
	if err := rmppath.Mkdirs(filepath.Dir(m.target)); err != nil {
		return err
	}
	st, err := os.Stat(m.source)
	if err != nil {
		return fmt.Errorf("io-error: stat %s: %w", m.source, err)
	}
	if st.IsDir() {
		return rmppath.Mkdirs(m.target)
	}
	f, err := os.OpenFile(m.target, os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("io-error: create bind-mount placeholder %s: %w", m.target, err)
	}
	return f.Close()
}
