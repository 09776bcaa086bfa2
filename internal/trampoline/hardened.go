package trampoline

import "strings"

// IsHardened decides whether path needs a trampoline: it must be a
// regular Mach-O (or fat Mach-O) binary, signed with the hardened
// runtime, and missing the allow-dyld-environment-variables entitlement.
// Absent a resolvable signer the caller already failed in NewContext, so
// by the time IsHardened runs we always have one; any other failure to
// determine hardening (the signer erroring on an odd binary, for
// instance) fails closed — a silently stripped injection is worse than
// an unnecessary re-sign attempt.
func (c *Context) IsHardened(path string) bool {
	if !regularMachO(path) {
		return false
	}

	info, code, err := runSigner(c.SignerPath, "-dvvv", path)
	if err != nil || code != 0 {
		return true
	}
	if !strings.Contains(info, "runtime") {
		return false
	}

	ent, code, err := runSigner(c.SignerPath, "-d", "--entitlements", "-", path)
	if err != nil || code != 0 {
		return true
	}
	if strings.Contains(ent, "allow-dyld-environment-variables") {
		return false
	}
	return true
}
