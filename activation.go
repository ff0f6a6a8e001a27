package demote

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"golang.org/x/sys/unix"
)

// Environment variables of the sd_listen_fds(3) protocol.
const (
	envListenPID     = "LISTEN_PID"
	envListenFDs     = "LISTEN_FDS"
	envListenFDNames = "LISTEN_FDNAMES"
)

const (
	// listenFdsStart is the first inherited file descriptor, right after
	// stdin, stdout and stderr; defined in <systemd/sd-daemon.h>.
	listenFdsStart = 3

	// maxListenFds bounds LISTEN_FDS. The protocol itself has no limit,
	// but an accidental or malicious huge value must not make us claim
	// arbitrary descriptors.
	maxListenFds = 32
)

// ActivatedSocket is one pre-opened listening descriptor handed down by the
// service manager.
type ActivatedSocket struct {
	// Name carries the descriptor's FileDescriptorName= label, or is
	// empty if the service manager did not pass names.
	Name string

	File *os.File
}

// Listener adopts the descriptor as a net.Listener.
func (s ActivatedSocket) Listener() (net.Listener, error) {
	return net.FileListener(s.File)
}

// PacketConn adopts the descriptor as a net.PacketConn.
func (s ActivatedSocket) PacketConn() (net.PacketConn, error) {
	return net.FilePacketConn(s.File)
}

// ActivatedSockets is the ordered sequence of inherited descriptors, in the
// order the service manager passed them.
type ActivatedSockets []ActivatedSocket

// Named returns the first socket carrying the given name.
func (s ActivatedSockets) Named(name string) (ActivatedSocket, bool) {
	for _, sock := range s {
		if sock.Name == name {
			return sock, true
		}
	}
	return ActivatedSocket{}, false
}

// ReadActivation inspects the inherited socket activation environment and
// adopts the descriptors it declares.
//
// Without a LISTEN_PID entry socket activation is simply not in effect and
// an empty sequence is returned, no matter what the other variables say. A
// LISTEN_PID naming some other process, or a LISTEN_FDNAMES list whose
// length disagrees with LISTEN_FDS, fails with ErrActivationMismatch; such
// an environment must not be silently ignored.
//
// The variables are removed from the environment afterwards so a later
// fork/exec does not leak stale activation state into an unrelated child.
// Each adopted descriptor gets its close-on-exec flag set for the same
// reason. Ownership of the descriptors moves entirely to the caller.
func ReadActivation() (ActivatedSockets, error) {
	defer os.Unsetenv(envListenPID)
	defer os.Unsetenv(envListenFDs)
	defer os.Unsetenv(envListenFDNames)

	count, names, err := parseListenEnv(os.Getenv, os.Getpid())
	if err != nil || count == 0 {
		return nil, err
	}

	socks := make(ActivatedSockets, 0, count)
	for i := 0; i < count; i++ {
		fd := listenFdsStart + i
		unix.CloseOnExec(fd)

		var name string
		if names != nil {
			name = names[i]
		}
		socks = append(socks, ActivatedSocket{
			Name: name,
			File: os.NewFile(uintptr(fd), "listen-fd:"+strconv.Itoa(fd)),
		})
	}

	log.WithFields(log.Fields{
		"count": count,
		"names": names,
	}).Debug("Adopted socket activation descriptors")

	return socks, nil
}

// parseListenEnv validates the activation variables against the given pid.
// The environment is injected to keep this testable with fake values.
func parseListenEnv(getenv func(string) string, pid int) (count int, names []string, err error) {
	pidStr := getenv(envListenPID)
	if pidStr == "" {
		return 0, nil, nil
	}

	ownerPid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: invalid %s value %q",
			ErrActivationMismatch, envListenPID, pidStr)
	}
	if ownerPid != pid {
		return 0, nil, fmt.Errorf("%w: %s names process %d, but we are %d",
			ErrActivationMismatch, envListenPID, ownerPid, pid)
	}

	if countStr := getenv(envListenFDs); countStr != "" {
		count, err = strconv.Atoi(countStr)
		if err != nil || count < 0 {
			return 0, nil, fmt.Errorf("%w: invalid %s value %q",
				ErrActivationMismatch, envListenFDs, countStr)
		}
		if count > maxListenFds {
			return 0, nil, fmt.Errorf("%w: %s value %d exceeds the limit of %d descriptors",
				ErrActivationMismatch, envListenFDs, count, maxListenFds)
		}
	}

	if namesStr := getenv(envListenFDNames); namesStr != "" {
		names = strings.Split(namesStr, ":")
		if len(names) != count {
			return 0, nil, fmt.Errorf("%w: %d names in %s for %d descriptors",
				ErrActivationMismatch, len(names), envListenFDNames, count)
		}
	}

	return count, names, nil
}
