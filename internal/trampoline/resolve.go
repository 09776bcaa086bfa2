package trampoline

import "context"

// resolvingKey guards against the signer itself triggering a recursive
// resolve (e.g. codesign execing a helper that is itself interposed).
// The design notes prefer an explicit context value here over raw
// thread-local state, since Go's re-entrant call chains are not bound to
// a single OS thread the way the original's are.
type resolvingKey struct{}

func withResolving(ctx context.Context) context.Context {
	return context.WithValue(ctx, resolvingKey{}, true)
}

func isResolving(ctx context.Context) bool {
	v, _ := ctx.Value(resolvingKey{}).(bool)
	return v
}

// ResolveHardened is the high-level entry point: return the cached,
// re-signed copy of original if one is already valid, or if original
// turns out to be hardened and a fresh copy can be created; otherwise
// return original unchanged. The boolean result distinguishes the two
// outcomes for callers that need to know whether a substitution
// happened (C6's argv[0] rewrite, for instance).
//
// Before probing the signer, a not-hardened verdict is checked against c.mem,
// the process-local speed cache: the same interpreter is routinely
// resolved more than once in a single launch (a shebang chain revisiting
// /usr/bin/env, for instance), and each miss otherwise costs a signer
// subprocess.
func (c *Context) ResolveHardened(ctx context.Context, original string) (resolved string, wasCached bool, err error) {
	if isResolving(ctx) {
		return original, false, nil
	}

	cached := CachePath(c.CacheDir, original)
	if Valid(cached, original) {
		return cached, true, nil
	}

	mtime, size, statErr := stat(original)
	if statErr == nil {
		if hardened, ok := c.mem.Lookup(original, mtime, size); ok && !hardened {
			return original, false, nil
		}
	}

	hardened := c.isHardenedGuarded(ctx, original)
	if statErr == nil {
		c.mem.Store(original, mtime, size, hardened)
	}
	if !hardened {
		return original, false, nil
	}

	created, err := c.Create(original)
	if err != nil {
		// signer-failure and io-error both fall through to the
		// uncached original; the caller warns but keeps going.
		return original, false, err
	}
	return created, true, nil
}

func (c *Context) isHardenedGuarded(ctx context.Context, path string) bool {
	if isResolving(ctx) {
		return false
	}
	return c.IsHardened(path)
}
