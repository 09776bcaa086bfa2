package trampoline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nclifford/remapper/internal/rmppath"
)

// CachePath derives the on-disk cached location for an original absolute
// path: the original is appended verbatim to cacheDir.
func CachePath(cacheDir, original string) string {
	return filepath.Join(cacheDir, original)
}

func metaPath(cached string) string {
	return cached + ".meta"
}

// runSigner invokes the signer with no shell involved, exactly the "safe
// pipe-subprocess" contract of the path utilities component.
func runSigner(signerPath string, args ...string) (string, int, error) {
	return rmppath.RunCapturingOutput(signerPath, args...)
}

// stat returns the (mtime, size) pair the validity and meta-sidecar
// checks compare against. It is its own function so both Valid and
// Create read the *original's* stats through one code path.
func stat(path string) (mtime int64, size int64, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	return fi.ModTime().Unix(), fi.Size(), nil
}

// Valid reports whether cached exists with a meta sidecar recording
// exactly the (mtime, size) of original. The sidecar describes the
// original, never the cached copy; replacing the original invalidates
// the cache even if the cached file itself is untouched.
func Valid(cached, original string) bool {
	origMtime, origSize, err := stat(original)
	if err != nil {
		return false
	}
	if _, err := os.Stat(cached); err != nil {
		return false
	}
	metaMtime, metaSize, err := readMeta(metaPath(cached))
	if err != nil {
		return false
	}
	return metaMtime == origMtime && metaSize == origSize
}

func readMeta(path string) (mtime, size int64, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	n, err := fmt.Sscanf(string(b), "%d %d", &mtime, &size)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("malformed meta sidecar %s", path)
	}
	return mtime, size, nil
}

// Create copies original to a unique temp file under cacheDir, re-signs
// it ad-hoc using ctx's signer and entitlements, and publishes it at
// cached via atomic rename. A losing rename under concurrent creation is
// acceptable because the content is identical either way. On signer
// failure the temp file is discarded and an error returned — the caller
// falls back to the uncached original per the spec's pass-through policy.
func (c *Context) Create(original string) (cached string, err error) {
	cached = CachePath(c.CacheDir, original)
	if err := os.MkdirAll(filepath.Dir(cached), 0o755); err != nil {
		return "", fmt.Errorf("io-error: mkdir %s: %w", filepath.Dir(cached), err)
	}

	origMtime, origSize, err := stat(original)
	if err != nil {
		return "", fmt.Errorf("io-error: stat %s: %w", original, err)
	}

	tmp := fmt.Sprintf("%s.tmp.%d.%s", cached, os.Getpid(), uuid.NewString())
	if err := copyExecutable(original, tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	if err := c.resign(tmp); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("signer-failure: %w", err)
	}

	if err := os.Rename(tmp, cached); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("io-error: rename %s -> %s: %w", tmp, cached, err)
	}

	meta := fmt.Sprintf("%d %d", origMtime, origSize)
	if err := writeFileAtomic(metaPath(cached), []byte(meta), 0o644); err != nil {
		return "", err
	}

	c.debugf("cached %s -> %s", original, cached)
	return cached, nil
}

// resign invokes the signer equivalent to "force re-sign, ad-hoc
// identity, using the stored entitlements plist, operating on path".
func (c *Context) resign(path string) error {
	args := []string{"--force", "--sign", "-", "--entitlements", c.EntitlementsPath, "--options", "runtime", path}
	out, code, err := runSigner(c.SignerPath, args...)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("signer exited %d: %s", code, out)
	}
	return nil
}

// copyExecutable copies src to dst bitwise, preserving the executable
// bit, without going through a shell.
func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("io-error: open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("io-error: stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode()|0o111)
	if err != nil {
		return fmt.Errorf("io-error: create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("io-error: copy %s -> %s: %w", src, dst, err)
	}
	return out.Sync()
}

// regularMachO reports whether path is a regular file beginning with one
// of the Mach-O / fat-Mach-O magic numbers. It is the first hardened-
// detection gate: anything else is passed through untouched.
func regularMachO(path string) bool {
	fi, err := os.Lstat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}
	switch [4]byte(magic) {
	case [4]byte{0xfe, 0xed, 0xfa, 0xce}, // MH_MAGIC
		[4]byte{0xce, 0xfa, 0xed, 0xfe}, // MH_CIGAM
		[4]byte{0xfe, 0xed, 0xfa, 0xcf}, // MH_MAGIC_64
		[4]byte{0xcf, 0xfa, 0xed, 0xfe}, // MH_CIGAM_64
		[4]byte{0xca, 0xfe, 0xba, 0xbe}, // FAT_MAGIC
		[4]byte{0xbe, 0xba, 0xfe, 0xca}: // FAT_CIGAM
		return true
	default:
		return false
	}
}
