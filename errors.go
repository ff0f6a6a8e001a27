package demote

import (
	"errors"
	"fmt"
)

// Errors returned from the single bootstrap stages. Each one describes a
// fatal condition; no stage retries internally. They are wrapped in a
// StageError by Bootstrap and can be matched with errors.Is.
var (
	// ErrUnknownUser is returned when the configured user does not exist
	// in the system's user database.
	ErrUnknownUser = errors.New("unknown user")

	// ErrUnknownGroup is returned when the configured group does not exist
	// in the system's group database.
	ErrUnknownGroup = errors.New("unknown group")

	// ErrPrivilegeDrop is returned when changing the process identity
	// failed. The process must not continue afterwards as its identity
	// might be half-applied.
	ErrPrivilegeDrop = errors.New("privilege drop failed")

	// ErrAlreadyRunning is returned when another live process holds the
	// pid file's lock. This is an expected operational condition, not a
	// corrupt environment.
	ErrAlreadyRunning = errors.New("another instance is already running")

	// ErrPidFileIO is returned for filesystem-level failures while
	// creating or writing the pid file.
	ErrPidFileIO = errors.New("pid file I/O failed")

	// ErrActivationMismatch is returned when the inherited socket
	// activation environment is inconsistent with the current process.
	ErrActivationMismatch = errors.New("socket activation mismatch")
)

// Stage names the bootstrap step an error originated from.
type Stage string

const (
	StageIdentity   Stage = "identity"
	StagePrivileges Stage = "privileges"
	StagePidFile    Stage = "pidfile"
	StageActivation Stage = "activation"
)

// StageError tags a bootstrap failure with the stage it happened in, so the
// caller can print a diagnostic naming both stage and kind before exiting.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("bootstrap stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
