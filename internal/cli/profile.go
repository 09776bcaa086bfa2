package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nclifford/remapper/internal/mapping"
	"github.com/nclifford/remapper/internal/profile"
	"github.com/nclifford/remapper/internal/rmppath"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Save and inspect named (target, mappings) sets for --profile",
	}
	cmd.AddCommand(newProfileSaveCmd(), newProfileLSCmd())
	return cmd
}

func newProfileSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <name> <target-dir> <mapping>...",
		Short: "Persist a named target and mapping list to profiles.yaml",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, targetRaw, mappingRaws := args[0], args[1], args[2:]

			home, err := rmppath.HomeDir()
			if err != nil {
				return NewExitError(127, err.Error())
			}
			// Parsed only to reject a malformed mapping early; the raw
			// strings (not this result) are what gets persisted, so a
			// saved profile re-resolves against whatever $HOME/cwd is
			// active at `run` time rather than save time.
			for _, raw := range mappingRaws {
				if _, err := mapping.Parse(raw, home, "/"); err != nil {
					return NewExitError(1, usageError(cmd, err))
				}
			}

			p := profile.Profile{Target: targetRaw, Mappings: mappingRaws}
			if err := profile.Save(configDirForCLI(), name, p); err != nil {
				return NewExitError(127, err.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved profile %q\n", name)
			return nil
		},
	}
}

func newProfileLSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := profile.Load(configDirForCLI())
			if err != nil {
				return NewExitError(127, err.Error())
			}
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no profiles saved")
				return nil
			}

			names := make([]string, 0, len(profiles))
			for name := range profiles {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				p := profiles[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%s\ttarget=%s\tmappings=%v\n", name, p.Target, p.Mappings)
			}
			return nil
		},
	}
}
