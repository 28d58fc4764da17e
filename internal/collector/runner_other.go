//go:build !unix

package collector

import "os/exec"

// setProcessGroup is a no-op where process groups are unavailable.
// Cancellation falls back to killing the direct child.
func setProcessGroup(_ *exec.Cmd) {}
