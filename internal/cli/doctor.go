package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nclifford/remapper/internal/rmppath"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that this machine can run remapper",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ok := true

			switch runtime.GOOS {
			case "darwin":
				ok = checkDarwin(out) && ok
			case "linux":
				ok = checkLinux(out) && ok
			default:
				fmt.Fprintf(out, "FAIL  %s is not a supported platform (only linux and darwin are)\n", runtime.GOOS)
				ok = false
			}

			if !ok {
				return NewExitError(1, "one or more checks failed")
			}
			fmt.Fprintln(out, "all checks passed")
			return nil
		},
	}
}

func checkDarwin(out io.Writer) bool {
	if path, err := rmppath.LookPath("codesign"); err == nil {
		fmt.Fprintf(out, "ok    codesign found at %s\n", path)
	} else {
		fmt.Fprintln(out, "FAIL  codesign not found on PATH — re-signing hardened binaries will fail closed")
		return false
	}
	if _, err := rmppath.LookPath("cc"); err != nil {
		fmt.Fprintln(out, "FAIL  no C compiler (cc) found on PATH — the injected library cannot be built")
		return false
	}
	fmt.Fprintln(out, "ok    C compiler available")
	return true
}

func checkLinux(out io.Writer) bool {
	ok := true
	if b, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone"); err == nil {
		if string(b) == "0\n" || string(b) == "0" {
			fmt.Fprintln(out, "FAIL  kernel.unprivileged_userns_clone=0 — unprivileged user namespaces are disabled; remapper needs CAP_SYS_ADMIN or that sysctl enabled")
			ok = false
		} else {
			fmt.Fprintln(out, "ok    unprivileged user namespaces are enabled")
		}
	} else {
		fmt.Fprintln(out, "ok    unprivileged_userns_clone sysctl absent (no extra restriction on this kernel)")
	}
	return ok
}
