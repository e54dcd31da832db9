//go:build linux

package backend

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// openWithOptionalDirect opens path with O_DIRECT when wantDirect is true.
// If the filesystem rejects O_DIRECT (ENOTSUP/EINVAL) and the caller did
// not require it (requireDirect is false, i.e. Direct was set without
// RequireDirect), it retries without O_DIRECT and reports that direct
// mode was not actually obtained.
func openWithOptionalDirect(path string, osFlags int, wantDirect bool, requireDirect bool) (fd int, direct bool, err error) {
	flags := osFlags
	if wantDirect {
		flags |= unix.O_DIRECT
	}
	fd, err = unix.Open(path, flags, 0o644)
	if err == nil {
		return fd, wantDirect, nil
	}
	if !wantDirect || requireDirect {
		return -1, false, err
	}
	if err != syscall.ENOTSUP && err != syscall.EINVAL {
		return -1, false, err
	}
	fd, err = unix.Open(path, osFlags, 0o644)
	if err != nil {
		return -1, false, err
	}
	return fd, false, nil
}
