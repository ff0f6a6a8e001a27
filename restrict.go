package demote

// restriction defines what kind of specific restriction should be performed.
//
// Those are being passed as the first argument to the restrict function,
// which can make some operating system specific decision.
type restriction int

const (
	_ restriction = iota

	// restrict_linux_landlock: []string as read-write directories for a Landlock ruleset
	restrict_linux_landlock
	// restrict_linux_seccomp: []string as syscallset-go filter
	restrict_linux_seccomp
	// restrict_openbsd_pledge: (string, string) as promises and execpromises for pledge(2)
	restrict_openbsd_pledge
)

// Restrictions describes optional post-drop sandboxing of the process. They
// are best applied after Bootstrap succeeded, once every path the daemon
// still needs is known.
type Restrictions struct {
	// Paths are the directories the process keeps read-write access to;
	// everything else becomes inaccessible where the platform supports
	// path restriction. The directories must exist already.
	Paths []string

	// SyscallFilter is a syscallset-go expression limiting the available
	// system calls on Linux.
	SyscallFilter []string

	// Promises and ExecPromises are passed to pledge(2) on OpenBSD.
	Promises     string
	ExecPromises string
}

// Apply activates every restriction the platform supports. Restrictions the
// platform lacks are skipped; a supported one failing to apply is an error.
func (r Restrictions) Apply() error {
	if len(r.Paths) > 0 {
		if err := restrict(restrict_linux_landlock, r.Paths); err != nil {
			return err
		}
	}
	if len(r.SyscallFilter) > 0 {
		if err := restrict(restrict_linux_seccomp, r.SyscallFilter); err != nil {
			return err
		}
	}
	if r.Promises != "" || r.ExecPromises != "" {
		if err := restrict(restrict_openbsd_pledge, r.Promises, r.ExecPromises); err != nil {
			return err
		}
	}
	return nil
}
