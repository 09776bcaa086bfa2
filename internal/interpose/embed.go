// Package interpose owns the library that gets injected into the child
// via DYLD_INSERT_LIBRARIES (C3). Go cannot itself produce a Mach-O
// dylib with the __DATA,__interpose section the dynamic linker expects,
// so the "embedded blob" of the original implementation is realised
// here as embedded C source compiled on demand with the system
// toolchain, cached on disk the same way a trampoline is: keyed by a
// content hash of the source tree, published via atomic rename.
package interpose

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/nclifford/remapper/internal/rmppath"
)

//go:embed csrc
var csrc embed.FS

// LibraryName is the on-disk name of the extracted/compiled library, per
// the persisted-state layout of the spec.
const LibraryName = "interpose.dylib"

// SourceVersion hashes the embedded C source tree; it stands in for the
// "size of the embedded blob" check of the original (there, the launcher
// and the blob are versioned in lockstep at build time; here, the
// launcher and its own embedded source are too, so a content hash plays
// the identical role of "has the payload changed since we last wrote
// it?").
func SourceVersion() (string, error) {
	entries, err := csrc.ReadDir("csrc")
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		b, err := csrc.ReadFile(filepath.Join("csrc", name))
		if err != nil {
			return "", err
		}
		h.Write([]byte(name))
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Ensure materialises the compiled library at configDir/LibraryName,
// rebuilding it only if missing or stamped with a different source
// version than what's currently embedded. It returns the library path
// to pass via DYLD_INSERT_LIBRARIES.
func Ensure(configDir string) (string, error) {
	version, err := SourceVersion()
	if err != nil {
		return "", fmt.Errorf("io-error: hash embedded interpose source: %w", err)
	}

	libPath := filepath.Join(configDir, LibraryName)
	versionPath := libPath + ".version"

	if current, err := os.ReadFile(versionPath); err == nil && string(current) == version {
		if _, err := os.Stat(libPath); err == nil {
			return libPath, nil
		}
	}

	srcDir, err := extractSources(configDir)
	if err != nil {
		return "", err
	}
	if err := compile(srcDir, libPath); err != nil {
		return "", err
	}
	if err := writeFileAtomic(versionPath, []byte(version)); err != nil {
		return "", err
	}
	return libPath, nil
}

func extractSources(configDir string) (string, error) {
	srcDir := filepath.Join(configDir, "interpose-src")
	if err := rmppath.Mkdirs(srcDir); err != nil {
		return "", err
	}

	entries, err := csrc.ReadDir("csrc")
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		b, err := csrc.ReadFile(filepath.Join("csrc", e.Name()))
		if err != nil {
			return "", err
		}
		if err := writeFileAtomic(filepath.Join(srcDir, e.Name()), b); err != nil {
			return "", err
		}
	}
	return srcDir, nil
}

// compile invokes the system C compiler to build the injected library as
// a dynamic library with the interpose section. No shell is involved.
func compile(srcDir, libPath string) error {
	cc, err := rmppath.LookPath(ccCompiler())
	if err != nil {
		return fmt.Errorf("resolution-error: no C compiler available to build the interpose library: %w", err)
	}

	tmp := libPath + fmt.Sprintf(".tmp.%d.%s", os.Getpid(), uuid.NewString())
	args := []string{
		"-dynamiclib", "-O2", "-Wall",
		"-o", tmp,
		filepath.Join(srcDir, "interpose_core.c"),
		filepath.Join(srcDir, "interpose_fs.c"),
		filepath.Join(srcDir, "interpose_exec.c"),
		filepath.Join(srcDir, "rmp_shared.c"),
	}
	cmd := exec.Command(cc, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("io-error: compile interpose library: %w: %s", err, out)
	}
	if err := os.Rename(tmp, libPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("io-error: rename %s -> %s: %w", tmp, libPath, err)
	}
	return nil
}

func ccCompiler() string {
	if cc := os.Getenv("CC"); cc != "" {
		return cc
	}
	return "cc"
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := rmppath.Mkdirs(dir); err != nil {
		return err
	}
	tmpName := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d.%s", filepath.Base(path), os.Getpid(), uuid.NewString()))
	tmp, err := os.OpenFile(tmpName, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("io-error: create temp for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("io-error: write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("io-error: sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("io-error: close temp for %s: %w", path, err)
	}
	return os.Rename(tmpName, path)
}
