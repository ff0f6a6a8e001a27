package demote

import (
	log "github.com/sirupsen/logrus"
)

// Config holds the bootstrap-relevant subset of a daemon's configuration.
// String options are empty when unset; level options are nil when unset,
// which keeps "not provided" apart from "provided with the default value".
type Config struct {
	// User and Group select the identity to drop to, each either a name
	// or a numeric ID. Leaving both empty keeps the current identity.
	User  string
	Group string

	// PidFile is the dedicated pid file path; empty disables the pid
	// file. This option must never be derived from a working directory
	// or any other path setting.
	PidFile string

	// PidFileBeforeDrop acquires the pid file while still privileged,
	// for pid file directories the dropped identity cannot write to. By
	// default the file is created after the drop so it is owned by the
	// final identity.
	PidFileBeforeDrop bool

	// Chroot confines the process to this directory right before the
	// privileges are dropped; empty disables it. Paths used afterwards,
	// including a pid file acquired after the drop, are interpreted
	// inside the new root.
	Chroot string

	// LogLevel is the config file's log level, LogLevelOverride the
	// command line's. The override wins.
	LogLevel         *Level
	LogLevelOverride *Level
}

// Process is the ready-to-run context of a bootstrapped daemon: privileges
// are dropped, the pid file is held and the inherited sockets are adopted.
// The resolved Identity is deliberately not part of it; it was consumed by
// the privilege drop and nothing afterwards should hold an elevated
// identity reference.
type Process struct {
	// PidFile is the held single-instance lock, nil if none was
	// configured. The caller must Release it on shutdown.
	PidFile *PidFile

	// Sockets are the activated descriptors, owned by the caller now.
	Sockets ActivatedSockets

	// LogLevel is the reconciled log level to configure the log backend
	// with.
	LogLevel LevelDecision
}

// Bootstrap runs the startup sequence: resolve the target identity, enter
// the chroot if one is configured, drop privileges, acquire the pid file,
// adopt activated sockets and reconcile the log level.
//
// The first failure aborts the sequence with a StageError. An already
// applied privilege drop is never rolled back, but a pid file acquired
// before a later failure is released on the abort path, so no exit path
// leaks the lock.
func Bootstrap(cfg Config) (proc *Process, err error) {
	var pidFile *PidFile
	defer func() {
		if err != nil && pidFile != nil {
			_ = pidFile.Release()
		}
	}()

	identity, err := ResolveIdentity(cfg.User, cfg.Group)
	if err != nil {
		return nil, &StageError{Stage: StageIdentity, Err: err}
	}

	if cfg.PidFile != "" && cfg.PidFileBeforeDrop {
		pidFile, err = AcquirePidFile(cfg.PidFile)
		if err != nil {
			return nil, &StageError{Stage: StagePidFile, Err: err}
		}
	}

	if cfg.Chroot != "" {
		if err = enterChroot(cfg.Chroot); err != nil {
			return nil, &StageError{Stage: StagePrivileges, Err: err}
		}
	}

	if err = identity.Apply(); err != nil {
		return nil, &StageError{Stage: StagePrivileges, Err: err}
	}

	if cfg.PidFile != "" && !cfg.PidFileBeforeDrop {
		pidFile, err = AcquirePidFile(cfg.PidFile)
		if err != nil {
			return nil, &StageError{Stage: StagePidFile, Err: err}
		}
	}

	sockets, err := ReadActivation()
	if err != nil {
		return nil, &StageError{Stage: StageActivation, Err: err}
	}

	decision := ReconcileLogLevel(cfg.LogLevel, cfg.LogLevelOverride)

	log.WithFields(log.Fields{
		"sockets":   len(sockets),
		"log-level": decision.Level.String(),
	}).Debug("Bootstrap complete")

	return &Process{
		PidFile:  pidFile,
		Sockets:  sockets,
		LogLevel: decision,
	}, nil
}
