package trampoline

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCacheCapacity bounds the per-process hardened-bit cache. The
// original implementation backs this with a fixed array that silently
// stops accepting new entries once full; losing an entry is explicitly
// never incorrect, only slower (spec §5), so an LRU eviction policy
// satisfies the same contract while reclaiming the slot instead of
// wasting it on a binary that is never exec'd again in this process.
const MemoryCacheCapacity = 128

// hardenedEntry is the per-path verdict cached in memory: the (mtime,
// size) this verdict was computed for, plus whether the binary needed a
// trampoline. A reader that finds an entry whose stat no longer matches
// must treat it as a miss.
type hardenedEntry struct {
	mtime    int64
	size     int64
	hardened bool
}

// MemoryCache is the process-wide, per-child speed cache consulted before
// probing the signer. It is not safe against concurrent
// mutation by multiple threads beyond what golang-lru itself guarantees;
// per spec this is acceptable — the worst outcome of a race is a
// duplicate lookup or a lost insertion, never a wrong verdict, because a
// stale (mtime, size) is detected and treated as a miss.
type MemoryCache struct {
	lru *lru.Cache[string, hardenedEntry]
}

// NewMemoryCache constructs a bounded in-memory cache. It never fails in
// practice (the only error golang-lru returns is for a non-positive
// size, which MemoryCacheCapacity never is) but the error is still
// surfaced so callers don't need to know that.
func NewMemoryCache() (*MemoryCache, error) {
	c, err := lru.New[string, hardenedEntry](MemoryCacheCapacity)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: c}, nil
}

// Lookup returns the cached hardened verdict for path if present and
// still valid against the given (mtime, size); a stale or absent entry
// is reported as a miss.
func (m *MemoryCache) Lookup(path string, mtime, size int64) (hardened bool, ok bool) {
	if m == nil || path == "" {
		return false, false
	}
	entry, found := m.lru.Get(path)
	if !found || entry.mtime != mtime || entry.size != size {
		return false, false
	}
	return entry.hardened, true
}

// Store records the hardened verdict for path at the given (mtime,
// size), evicting the least-recently-used entry if the cache is full.
func (m *MemoryCache) Store(path string, mtime, size int64, hardened bool) {
	if m == nil || path == "" {
		return
	}
	m.lru.Add(path, hardenedEntry{mtime: mtime, size: size, hardened: hardened})
}
