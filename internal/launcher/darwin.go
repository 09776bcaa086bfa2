//go:build darwin

package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nclifford/remapper/internal/interpose"
	"github.com/nclifford/remapper/internal/mapping"
	"github.com/nclifford/remapper/internal/rmppath"
	"github.com/nclifford/remapper/internal/shebang"
	"github.com/nclifford/remapper/internal/trampoline"
)

// launch implements C8: extract the injected library, stand up the
// trampoline cache, resolve the command's shebang and hardened status,
// set the RMP_*/DYLD_INSERT_LIBRARIES environment, and exec.
func launch(req Request, set *mapping.Set) error {
	configDir, cacheDir, err := configDirs()
	if err != nil {
		return err
	}

	libPath, err := interpose.Ensure(configDir)
	if err != nil {
		return fmt.Errorf("io-error: extract interpose library: %w", err)
	}

	signerCtx, err := trampoline.NewContext(configDir, cacheDir, req.DebugSink)
	if err != nil {
		return err
	}

	mappingString := buildMappingString(set)

	cmdPath, err := rmppath.LookPath(req.Command[0])
	if err != nil {
		return err
	}

	binary := cmdPath
	argv := append([]string{cmdPath}, req.Command[1:]...)

	res, err := shebang.Resolve(context.Background(), signerCtx, cmdPath, argv)
	if err == nil && res.Rewritten {
		binary = res.Binary
		argv = res.Argv
	}

	if resolved, wasCached, err := signerCtx.ResolveHardened(context.Background(), binary); err == nil && wasCached {
		binary = resolved
		argv[0] = resolved
	}

	env := buildEnv(set, mappingString, configDir, cacheDir, libPath, req.DebugLog)

	if err := syscall.Exec(binary, argv, env); err != nil {
		return fmt.Errorf("resolution-error: exec %s: %w", binary, err)
	}
	return nil // unreachable: syscall.Exec replaces the process image on success
}

func configDirs() (configDir, cacheDir string, err error) {
	configDir = os.Getenv("RMP_CONFIG")
	if configDir == "" {
		home, herr := rmppath.HomeDir()
		if herr != nil {
			return "", "", herr
		}
		configDir = filepath.Join(home, ".remapper")
	}
	cacheDir = os.Getenv("RMP_CACHE")
	if cacheDir == "" {
		cacheDir = filepath.Join(configDir, "cache")
	}
	return configDir, cacheDir, nil
}

func buildMappingString(set *mapping.Set) string {
	parts := make([]string, 0, len(set.Mappings))
	for _, m := range set.Mappings {
		parts = append(parts, m.ParentDir+m.Glob)
	}
	return strings.Join(parts, ":")
}

func buildEnv(set *mapping.Set, mappingString, configDir, cacheDir, libPath, debugLog string) []string {
	env := os.Environ()
	env = append(env,
		"RMP_TARGET="+set.Target,
		"RMP_MAPPINGS="+mappingString,
		"RMP_CONFIG="+configDir,
		"RMP_CACHE="+cacheDir,
	)

	existing := os.Getenv("DYLD_INSERT_LIBRARIES")
	if existing != "" {
		env = append(env, "DYLD_INSERT_LIBRARIES="+libPath+":"+existing)
	} else {
		env = append(env, "DYLD_INSERT_LIBRARIES="+libPath)
	}

	if debugLog != "" {
		env = append(env, "RMP_DEBUG_LOG="+debugLog)
	}
	return env
}
