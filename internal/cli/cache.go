package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nclifford/remapper/internal/trampoline"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the on-disk trampoline cache",
	}
	cmd.AddCommand(newCacheLSCmd(), newCacheCleanCmd())
	return cmd
}

func cacheDirForCLI() string {
	return filepath.Join(configDirForCLI(), "cache")
}

func newCacheLSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List cached, re-signed trampolines",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := trampoline.List(cacheDirForCLI())
			if err != nil {
				return NewExitError(127, err.Error())
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "cache empty")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s ago\n", e.Path, e.Size, time.Since(e.ModTime).Round(time.Second))
			}
			return nil
		},
	}
}

func newCacheCleanCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove cached trampolines older than a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := trampoline.Clean(cacheDirForCLI(), olderThan)
			if err != nil {
				return NewExitError(127, err.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", len(removed))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "remove entries whose cached copy is older than this duration (default: all)")
	return cmd
}
