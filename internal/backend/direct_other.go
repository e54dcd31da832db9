//go:build !linux

package backend

import "golang.org/x/sys/unix"

// openWithOptionalDirect on non-Linux platforms has no O_DIRECT to offer;
// wantDirect is honored only insofar as requireDirect fails loudly, matching
// spec.md §6's contract that REQUIRE_DIRECT must error when direct I/O is
// unavailable rather than silently falling back.
func openWithOptionalDirect(path string, osFlags int, wantDirect bool, requireDirect bool) (fd int, direct bool, err error) {
	if wantDirect && requireDirect {
		return -1, false, unix.ENOTSUP
	}
	fd, err = unix.Open(path, osFlags, 0o644)
	if err != nil {
		return -1, false, err
	}
	return fd, false, nil
}
