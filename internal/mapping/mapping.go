// Package mapping implements the parent-dir + last-component-glob model
// that both launch realisations rewrite paths through.
package mapping

import (
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"

	"github.com/nclifford/remapper/internal/rmppath"
)

// MaxMappings is the per-launch cap on the number of mappings accepted.
const MaxMappings = 64

// maxComponent bounds the length of the path component matched against a
// mapping's glob; it mirrors the 256-byte component buffer of the C
// interposer, which rejects components of 256 bytes or more.
const maxComponent = 255

// Mapping is a single (parent_dir, glob) pair. ParentDir always ends in
// '/'; Glob is the literal or *-bearing pattern applied to exactly one
// path component.
type Mapping struct {
	ParentDir string
	Glob      string

	compiled glob.Glob
}

// Parse tilde-expands and absolutises raw against home/cwd, then splits it
// at the last '/' into a parent directory and a last-component glob. A raw
// mapping with no slash, or whose last slash is at position 0 preceded by
// nothing usable as a directory, is rejected.
func Parse(raw, home, cwd string) (Mapping, error) {
	expanded := rmppath.TildeExpand(raw, home)
	abs := rmppath.Absolutise(expanded, cwd)

	idx := strings.LastIndexByte(abs, '/')
	if idx <= 0 {
		return Mapping{}, fmt.Errorf("mapping %q has no usable directory component", raw)
	}
	parent := abs[:idx+1]
	last := abs[idx+1:]
	if parent == "" || last == "" {
		return Mapping{}, fmt.Errorf("mapping %q has an empty directory or glob component", raw)
	}

	g, err := glob.Compile(last)
	if err != nil {
		return Mapping{}, fmt.Errorf("mapping %q: invalid glob %q: %w", raw, last, err)
	}
	return Mapping{ParentDir: parent, Glob: last, compiled: g}, nil
}

// Set is an ordered, capacity-bounded collection of mappings plus the
// target directory they rewrite into.
type Set struct {
	Target   string
	Mappings []Mapping
}

// NewSet normalises target to end in '/' and validates the mapping count.
func NewSet(target string, mappings []Mapping) (*Set, error) {
	if len(mappings) > MaxMappings {
		return nil, fmt.Errorf("argument-error: over-capacity: %d mappings exceeds the limit of %d", len(mappings), MaxMappings)
	}
	if !strings.HasSuffix(target, "/") {
		target += "/"
	}
	return &Set{Target: target, Mappings: mappings}, nil
}

// Rewrite implements the matching algorithm of the mapping model: the
// first mapping whose parent_dir prefixes q and whose next path component
// glob-matches wins. Paths matching no mapping are returned unchanged,
// with ok=false.
func (s *Set) Rewrite(q string) (rewritten string, ok bool) {
	if s == nil {
		return q, false
	}
	for _, m := range s.Mappings {
		if rw, matched := m.rewrite(q, s.Target); matched {
			return rw, true
		}
	}
	return q, false
}

// MatchingEntries lists the absolute source paths of m.ParentDir's entries
// whose name glob-matches m.Glob. The Linux realisation uses this to turn a
// mapping into the concrete bind-mount list the mount-namespace launcher
// needs; the Darwin realisation never enumerates, since its interposer
// matches names lazily as the child asks for them.
func (m Mapping) MatchingEntries() ([]string, error) {
	entries, err := os.ReadDir(m.ParentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("io-error: read %s: %w", m.ParentDir, err)
	}
	var matches []string
	for _, e := range entries {
		name := e.Name()
		if len(name) == 0 || len(name) > maxComponent {
			continue
		}
		if m.compiled.Match(name) {
			matches = append(matches, m.ParentDir+name)
		}
	}
	return matches, nil
}

func (m Mapping) rewrite(q, target string) (string, bool) {
	if !strings.HasPrefix(q, m.ParentDir) {
		return "", false
	}
	rest := q[len(m.ParentDir):]
	if rest == "" {
		// q is exactly parent_dir; nothing to match against.
		return "", false
	}

	component := rest
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		component = rest[:slash]
	}
	if len(component) == 0 || len(component) > maxComponent {
		return "", false
	}

	if !m.compiled.Match(component) {
		return "", false
	}

	rewritten := target + rest
	// Overflow of the rewrite buffer falls through to the next mapping
	// rather than erroring; in Go there is no fixed buffer, but we honour
	// the spec's intent by rejecting pathologically long results the same
	// way the original PATH_MAX check would.
	if len(rewritten) >= 4096 {
		return "", false
	}
	return rewritten, true
}
