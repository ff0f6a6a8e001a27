//go:build linux

package demote

import (
	"fmt"
	"strings"

	"github.com/landlock-lsm/go-landlock/landlock"
	llsys "github.com/landlock-lsm/go-landlock/landlock/syscall"
	syscallset "github.com/oxzi/syscallset-go"
	log "github.com/sirupsen/logrus"
)

// landlockPaths restricts filesystem access to the given read-write
// directories with a best effort Landlock ruleset.
func landlockPaths(paths []string) error {
	if _, err := llsys.LandlockGetABIVersion(); err != nil {
		log.Warn("Landlock is not supported, skipping path restriction")
		return nil
	}

	return landlock.V2.BestEffort().RestrictPaths(landlock.RWDirs(paths...))
}

// seccompBpf restricts system calls by a seccomp(2) BPF in syscallset-go syntax.
func seccompBpf(filter string) error {
	if !syscallset.IsSupported() {
		return fmt.Errorf("seccomp-bpf support is unavailable")
	}

	return syscallset.LimitTo(filter)
}

func restrict(op restriction, args ...interface{}) error {
	switch op {
	case restrict_linux_landlock:
		return landlockPaths(args[0].([]string))
	case restrict_linux_seccomp:
		return seccompBpf(strings.Join(args[0].([]string), " "))
	default:
		return nil
	}
}
