package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxzi/demote"
)

func clearActivationEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LISTEN_PID", "")
	t.Setenv("LISTEN_FDS", "")
	t.Setenv("LISTEN_FDNAMES", "")
}

// A setup failure after bootstrap must not leave the pid file behind, even
// though exiting skips the deferred cleanup.
func TestFailReleasesPidFile(t *testing.T) {
	clearActivationEnv(t)
	path := filepath.Join(t.TempDir(), "demoted.pid")

	proc, err := demote.Bootstrap(demote.Config{PidFile: path})
	if err != nil {
		t.Fatalf("bootstrap errored: %v", err)
	}

	exitedWith := -1
	origExit := osExit
	osExit = func(code int) { exitedWith = code }
	t.Cleanup(func() { osExit = origExit })

	fail(proc, errors.New("forced setup failure"), "setup failed")

	if exitedWith != exitGeneric {
		t.Fatalf("exited with %d, expected %d", exitedWith, exitGeneric)
	}
	if proc.PidFile.Held() {
		t.Fatal("pid file is still held after the failure path")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("pid file was left behind: %v", statErr)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{demote.ErrAlreadyRunning, exitAlreadyRunning},
		{demote.ErrUnknownUser, exitBadIdentity},
		{demote.ErrUnknownGroup, exitBadIdentity},
		{demote.ErrPidFileIO, exitGeneric},
		{errors.New("anything else"), exitGeneric},
	}

	for _, test := range tests {
		if code := exitCode(test.err); code != test.code {
			t.Fatalf("exitCode(%v) = %d, expected %d", test.err, code, test.code)
		}
	}
}
