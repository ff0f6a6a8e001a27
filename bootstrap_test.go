package demote

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// clearActivationEnv keeps inherited test runner state out of bootstrap.
func clearActivationEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envListenPID, "")
	t.Setenv(envListenFDs, "")
	t.Setenv(envListenFDNames, "")
}

func TestBootstrapMinimal(t *testing.T) {
	clearActivationEnv(t)

	proc, err := Bootstrap(Config{})
	if err != nil {
		t.Fatalf("bootstrap errored: %v", err)
	}

	if proc.PidFile != nil {
		t.Fatal("a pid file was acquired without being configured")
	}
	if len(proc.Sockets) != 0 {
		t.Fatalf("unexpected sockets: %d", len(proc.Sockets))
	}
	if proc.LogLevel.Source != SourceDefault || proc.LogLevel.Level != DefaultLevel {
		t.Fatalf("unexpected log level decision: %+v", proc.LogLevel)
	}
}

func TestBootstrapPidFile(t *testing.T) {
	clearActivationEnv(t)
	path := filepath.Join(t.TempDir(), "demoted.pid")

	proc, err := Bootstrap(Config{PidFile: path})
	if err != nil {
		t.Fatalf("bootstrap errored: %v", err)
	}

	if !proc.PidFile.Held() {
		t.Fatal("pid file is not held after bootstrap")
	}
	if err := proc.PidFile.Release(); err != nil {
		t.Fatalf("release errored: %v", err)
	}
}

func TestBootstrapPidFileBeforeDrop(t *testing.T) {
	clearActivationEnv(t)
	path := filepath.Join(t.TempDir(), "demoted.pid")

	proc, err := Bootstrap(Config{PidFile: path, PidFileBeforeDrop: true})
	if err != nil {
		t.Fatalf("bootstrap errored: %v", err)
	}
	defer proc.PidFile.Release()

	if !proc.PidFile.Held() {
		t.Fatal("pid file is not held after bootstrap")
	}
}

func TestBootstrapStageTagging(t *testing.T) {
	clearActivationEnv(t)

	_, err := Bootstrap(Config{User: "demote-no-such-user"})
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("error is no StageError: %v", err)
	}
	if stageErr.Stage != StageIdentity {
		t.Fatalf("failure tagged with stage %q, expected %q", stageErr.Stage, StageIdentity)
	}
}

// A pid file acquired before a later stage fails must be released on the
// abort path.
func TestBootstrapReleasesPidFileOnAbort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demoted.pid")

	// Let the activation stage fail after pid file acquisition.
	t.Setenv(envListenPID, "1")
	t.Setenv(envListenFDs, "1")
	t.Setenv(envListenFDNames, "")

	_, err := Bootstrap(Config{PidFile: path})
	if !errors.Is(err, ErrActivationMismatch) {
		t.Fatalf("expected ErrActivationMismatch, got %v", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageActivation {
		t.Fatalf("failure not tagged as activation stage: %v", err)
	}

	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("pid file was not cleaned up on abort: %v", statErr)
	}

	// The lock must be free again for the next attempt.
	clearActivationEnv(t)
	proc, err := Bootstrap(Config{PidFile: path})
	if err != nil {
		t.Fatalf("bootstrap after abort errored: %v", err)
	}
	_ = proc.PidFile.Release()
}

func TestBootstrapSecondInstance(t *testing.T) {
	clearActivationEnv(t)
	path := filepath.Join(t.TempDir(), "demoted.pid")

	first, err := Bootstrap(Config{PidFile: path})
	if err != nil {
		t.Fatalf("first bootstrap errored: %v", err)
	}
	defer first.PidFile.Release()

	_, err = Bootstrap(Config{PidFile: path})
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StagePidFile {
		t.Fatalf("failure not tagged as pidfile stage: %v", err)
	}
}
