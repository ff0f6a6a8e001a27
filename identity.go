package demote

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// Identity is a fully resolved numeric process identity. It is created once
// per bootstrap by ResolveIdentity and consumed exactly once by Apply; it
// must not be kept around after the privileges were dropped.
type Identity struct {
	UID int
	GID int

	// Groups holds the supplemental group IDs, with the primary GID
	// excluded. Empty when an explicit group was configured.
	Groups []int
}

// ResolveIdentity looks up the configured user and group in the system's
// identity database and returns the numeric identity the process should
// assume. Both identifiers may be names or numeric IDs.
//
// With an explicit group, that group becomes the primary GID and no
// supplemental groups are set. With only a user, the user's primary group
// and all further group memberships are used. With neither, resolution is a
// no-op and a nil Identity is returned, meaning the current identity is kept.
func ResolveIdentity(userSpec, groupSpec string) (*Identity, error) {
	if userSpec == "" && groupSpec == "" {
		return nil, nil
	}

	// Without a configured user the UID stays as it is.
	id := &Identity{
		UID: os.Getuid(),
		GID: os.Getgid(),
	}

	var usr *user.User
	if userSpec != "" {
		var err error
		usr, err = lookupUser(userSpec)
		if err != nil {
			return nil, err
		}

		id.UID, err = parseID(usr.Uid)
		if err != nil {
			return nil, fmt.Errorf("user %q has invalid uid %q: %w", userSpec, usr.Uid, err)
		}
		id.GID, err = parseID(usr.Gid)
		if err != nil {
			return nil, fmt.Errorf("user %q has invalid gid %q: %w", userSpec, usr.Gid, err)
		}
	}

	if groupSpec != "" {
		grp, err := lookupGroup(groupSpec)
		if err != nil {
			return nil, err
		}

		id.GID, err = parseID(grp.Gid)
		if err != nil {
			return nil, fmt.Errorf("group %q has invalid gid %q: %w", groupSpec, grp.Gid, err)
		}
		id.Groups = nil
	} else if usr != nil {
		gidStrs, err := usr.GroupIds()
		if err != nil {
			return nil, fmt.Errorf("listing groups of user %q: %w", userSpec, err)
		}

		for _, gidStr := range gidStrs {
			gid, err := parseID(gidStr)
			if err != nil {
				return nil, fmt.Errorf("user %q is member of group with invalid gid %q: %w",
					userSpec, gidStr, err)
			}
			if gid == id.GID {
				continue
			}
			id.Groups = append(id.Groups, gid)
		}
	}

	return id, nil
}

// lookupUser resolves a user by name first and by numeric ID second.
func lookupUser(spec string) (*user.User, error) {
	usr, err := user.Lookup(spec)
	if err == nil {
		return usr, nil
	}

	var unknownErr user.UnknownUserError
	if !errors.As(err, &unknownErr) {
		return nil, fmt.Errorf("looking up user %q: %w", spec, err)
	}

	if usr, idErr := user.LookupId(spec); idErr == nil {
		return usr, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownUser, spec)
}

// lookupGroup resolves a group by name first and by numeric ID second.
func lookupGroup(spec string) (*user.Group, error) {
	grp, err := user.LookupGroup(spec)
	if err == nil {
		return grp, nil
	}

	var unknownErr user.UnknownGroupError
	if !errors.As(err, &unknownErr) {
		return nil, fmt.Errorf("looking up group %q: %w", spec, err)
	}

	if grp, idErr := user.LookupGroupId(spec); idErr == nil {
		return grp, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, spec)
}

func parseID(s string) (int, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int(id), nil
}
