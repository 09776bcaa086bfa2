// Package profile loads named, reusable sets of mapping arguments from
// ~/.remapper/profiles.yaml, so a frequent `run` invocation's target and
// mapping list can be named once and referenced with --profile instead of
// repeated on every command line.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Profile is one named, persisted (target, mappings) pair.
type Profile struct {
	Target   string   `yaml:"target"`
	Mappings []string `yaml:"mappings"`
}

// fileWrapper mirrors the top-level key profiles.yaml uses, the same
// pattern the ambient policy config uses for its own YAML files.
type fileWrapper struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// FileName is the persisted file's name under the config directory.
const FileName = "profiles.yaml"

// Load reads configDir/profiles.yaml. A missing file is not an error: it
// yields an empty, usable set so --profile only ever fails when the named
// profile is actually absent.
func Load(configDir string) (map[string]Profile, error) {
	path := filepath.Join(configDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Profile{}, nil
		}
		return nil, fmt.Errorf("io-error: read %s: %w", path, err)
	}

	var wrapper fileWrapper
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("argument-error: parse %s: %w", path, err)
	}
	if wrapper.Profiles == nil {
		return map[string]Profile{}, nil
	}
	return wrapper.Profiles, nil
}

// Lookup resolves name against the profiles persisted under configDir. An
// unknown name is an argument-error naming the profile so the CLI can
// report it directly.
func Lookup(configDir, name string) (Profile, error) {
	profiles, err := Load(configDir)
	if err != nil {
		return Profile{}, err
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("argument-error: no profile named %q in %s", name, filepath.Join(configDir, FileName))
	}
	return p, nil
}

// Save persists name -> p into configDir/profiles.yaml, preserving every
// other profile already on disk. Writes go through a temp-file-then-
// rename so a crash mid-write never corrupts the file other profiles are
// also read from.
func Save(configDir, name string, p Profile) error {
	profiles, err := Load(configDir)
	if err != nil {
		return err
	}
	profiles[name] = p

	out, err := yaml.Marshal(fileWrapper{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("io-error: marshal profiles: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("io-error: mkdir %s: %w", configDir, err)
	}
	path := filepath.Join(configDir, FileName)
	tmpName := filepath.Join(configDir, fmt.Sprintf(".%s.tmp.%d.%s", FileName, os.Getpid(), uuid.NewString()))
	tmp, err := os.OpenFile(tmpName, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("io-error: create temp for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("io-error: write temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("io-error: close temp for %s: %w", path, err)
	}
	return os.Rename(tmpName, path)
}
