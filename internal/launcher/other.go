//go:build !linux && !darwin

package launcher

import (
	"fmt"
	"runtime"

	"github.com/nclifford/remapper/internal/mapping"
)

// launch reports an actionable error on any platform other than Linux and
// Darwin: both are declared non-goals of the redirection engine itself,
// but failing loudly beats silently launching the command unmodified.
func launch(req Request, set *mapping.Set) error {
	return fmt.Errorf("resolution-error: path redirection is not supported on %s", runtime.GOOS)
}
