//go:build !(linux || freebsd || openbsd || dragonfly)

package demote

import (
	"fmt"
	"runtime"
)

// Apply fails for any real identity change as this platform lacks the
// setresuid(2) family. A nil Identity is still a valid no-op.
func (id *Identity) Apply() error {
	if id == nil {
		return nil
	}

	return fmt.Errorf("%w: changing the process identity is not supported on %s/%s",
		ErrPrivilegeDrop, runtime.GOOS, runtime.GOARCH)
}

func enterChroot(dir string) error {
	return fmt.Errorf("%w: chroot is not supported on %s/%s",
		ErrPrivilegeDrop, runtime.GOOS, runtime.GOARCH)
}
