package demote

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"golang.org/x/sys/unix"
)

// PidFile is a held pid file, locking out further instances of the same
// daemon through an exclusive advisory lock on the file.
//
// The lock lives on the open file descriptor. A crashed previous instance
// therefore leaves only a stale, unlocked file behind which the next
// acquisition silently takes over.
type PidFile struct {
	path string
	file *os.File
	held bool
}

// AcquirePidFile creates or opens the pid file at path, takes a non-blocking
// exclusive lock on it and writes the current process ID.
//
// If another live process holds the lock, ErrAlreadyRunning is returned
// right away instead of waiting, so a second instance can exit promptly.
// The path must be the dedicated pid file option; no other path setting is
// ever consulted here.
func AcquirePidFile(path string) (*PidFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrPidFileIO, path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %q is locked", ErrAlreadyRunning, path)
		}
		return nil, fmt.Errorf("%w: flock %q: %v", ErrPidFileIO, path, err)
	}

	// A stale file from a crashed instance might still carry the old pid.
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: truncate %q: %v", ErrPidFileIO, path, err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: write %q: %v", ErrPidFileIO, path, err)
	}

	log.WithFields(log.Fields{
		"path": path,
		"pid":  os.Getpid(),
	}).Debug("Acquired pid file")

	return &PidFile{
		path: path,
		file: f,
		held: true,
	}, nil
}

// Path returns the pid file's location.
func (p *PidFile) Path() string {
	return p.path
}

// Held reports whether the lock is still held.
func (p *PidFile) Held() bool {
	return p != nil && p.held
}

// Release removes the pid file and drops the lock. It is idempotent; a
// second call or a file that was already removed externally is not an error.
func (p *PidFile) Release() error {
	if p == nil || !p.held {
		return nil
	}
	p.held = false

	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("path", p.path).Warn("Cannot remove pid file")
	}

	// Closing the descriptor releases the flock.
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("%w: close %q: %v", ErrPidFileIO, p.path, err)
	}

	log.WithField("path", p.path).Debug("Released pid file")
	return nil
}
