//go:build linux || freebsd || openbsd || dragonfly

package demote

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"golang.org/x/sys/unix"
)

// Indirections for the identity syscalls, so tests can observe the call
// sequence without actually being root.
var (
	setgroups = unix.Setgroups
	setresgid = unix.Setresgid
	setresuid = unix.Setresuid

	chroot = unix.Chroot
	chdir  = unix.Chdir
)

// enterChroot confines the process to dir. It must run before the user id
// changes as chroot(2) requires privileges, and is followed by a chdir to
// the new root so no descriptor to the outside working directory remains.
func enterChroot(dir string) error {
	if err := chroot(dir); err != nil {
		return fmt.Errorf("%w: chroot %q: %v", ErrPrivilegeDrop, dir, err)
	}
	if err := chdir("/"); err != nil {
		return fmt.Errorf("%w: chdir after chroot: %v", ErrPrivilegeDrop, err)
	}

	log.WithField("chroot", dir).Debug("Entered chroot")
	return nil
}

// Apply drops the process to this identity. A nil Identity performs nothing.
//
// The order is fixed: supplemental groups, then the primary group, then the
// user ID. The user ID must come last as an unprivileged process cannot
// change its group memberships anymore. Any failure is fatal; the process
// identity might be half-applied then and must not be trusted.
func (id *Identity) Apply() error {
	if id == nil {
		log.Debug("No target identity configured, keeping the current one")
		return nil
	}

	logFields := log.Fields{
		"uid":    id.UID,
		"gid":    id.GID,
		"groups": id.Groups,
	}

	// The group access list is the primary group plus the supplemental
	// ones, mirroring what initgroups(3) would install.
	groups := append([]int{id.GID}, id.Groups...)
	if err := setgroups(groups); err != nil {
		return fmt.Errorf("%w: setgroups: %v", ErrPrivilegeDrop, err)
	}
	if err := setresgid(id.GID, id.GID, id.GID); err != nil {
		return fmt.Errorf("%w: setresgid: %v", ErrPrivilegeDrop, err)
	}
	if err := setresuid(id.UID, id.UID, id.UID); err != nil {
		return fmt.Errorf("%w: setresuid: %v", ErrPrivilegeDrop, err)
	}

	log.WithFields(logFields).Debug("Changed UID and GID")
	return nil
}
