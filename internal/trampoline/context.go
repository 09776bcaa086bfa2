// Package trampoline implements the hardened-binary detection and
// ad-hoc-resigning cache that the Darwin launcher and its injected
// library share: given a binary that would have its dyld-injection
// environment stripped by the kernel, produce a cached, re-signed copy
// that behaves identically except for its signature.
package trampoline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nclifford/remapper/internal/rmppath"
)

// entitlementsXML grants the two capabilities a trampoline needs: dyld
// environment variables are honoured, and library validation is relaxed
// so the injected library itself can load into an otherwise-hardened
// binary.
const entitlementsXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>com.apple.security.cs.allow-dyld-environment-variables</key>
	<true/>
	<key>com.apple.security.cs.disable-library-validation</key>
	<true/>
</dict>
</plist>
`

// Context is the per-process SignerContext: the directories the cache
// lives under, the entitlements document every resign operation uses,
// and the resolved signer binary. It is created once by the launcher and
// is safe to read concurrently once built.
type Context struct {
	ConfigDir        string
	CacheDir         string
	EntitlementsPath string
	SignerPath       string
	DebugSink        io.Writer

	mem *MemoryCache
}

// NewContext resolves the signer (codesign) and writes the entitlements
// plist if it is not already present, exactly once, via atomic rename.
// A signer that cannot be resolved is a resolution-error and is fatal to
// the caller: without a signer we must fail closed on every hardened
// binary rather than silently skip re-signing.
func NewContext(configDir, cacheDir string, debugSink io.Writer) (*Context, error) {
	if err := rmppath.Mkdirs(configDir); err != nil {
		return nil, err
	}
	if err := rmppath.Mkdirs(cacheDir); err != nil {
		return nil, err
	}

	signerPath, err := rmppath.LookPath("codesign")
	if err != nil {
		return nil, fmt.Errorf("resolution-error: no signer available: %w", err)
	}

	mem, err := NewMemoryCache()
	if err != nil {
		return nil, fmt.Errorf("io-error: init hardened-bit memory cache: %w", err)
	}

	ctx := &Context{
		ConfigDir:        configDir,
		CacheDir:         cacheDir,
		EntitlementsPath: filepath.Join(configDir, "entitlements.plist"),
		SignerPath:       signerPath,
		DebugSink:        debugSink,
		mem:              mem,
	}
	if err := ctx.ensureEntitlements(); err != nil {
		return nil, err
	}
	return ctx, nil
}

// ensureEntitlements writes the entitlements document once; subsequent
// launches see it already present (access check) and skip the write.
func (c *Context) ensureEntitlements() error {
	if _, err := os.Stat(c.EntitlementsPath); err == nil {
		return nil
	}
	return writeFileAtomic(c.EntitlementsPath, []byte(entitlementsXML), 0o644)
}

func (c *Context) debugf(format string, args ...any) {
	if c.DebugSink == nil {
		return
	}
	fmt.Fprintf(c.DebugSink, "[remapper] "+format+"\n", args...)
}

// writeFileAtomic creates path's parent directory, writes b to a unique
// temp file in the same directory, and renames into place — identical
// discipline to the cache entries and extracted library below.
func writeFileAtomic(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := rmppath.Mkdirs(dir); err != nil {
		return err
	}

	tmpName := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d.%s", filepath.Base(path), os.Getpid(), uuid.NewString()))
	tmp, err := os.OpenFile(tmpName, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("io-error: create temp for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("io-error: chmod temp for %s: %w", path, err)
	}
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
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("io-error: rename temp -> %s: %w", path, err)
	}
	return nil
}
