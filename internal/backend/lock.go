package backend

import (
	"sync"

	"golang.org/x/sys/unix"
)

// lockFds tracks the descriptor opened for each dedicated lock file so
// unlockPath can close it; advisory flock locks release on close, so this
// also doubles as the unlock mechanism. Grounded on spec.md §4.7's
// dedicated-lock-file design, which original_source implements via a
// separate lock file per disk rather than locking the data file itself (a
// data file opened O_DIRECT and a lock file opened normally can otherwise
// interact badly on some filesystems).
var (
	lockFdsMu sync.Mutex
	lockFds   = make(map[string]int)
)

// lockPath takes an advisory, exclusive, non-blocking flock on the dedicated
// lock file at path, creating it if necessary and sizing it to one page.
// Returns an error if another
// process (or another File in this process targeting the same path) already
// holds it.
func lockPath(path string) error {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Ftruncate(fd, int64(unix.Getpagesize())); err != nil {
		unix.Close(fd)
		return err
	}

	lockFdsMu.Lock()
	lockFds[path] = fd
	lockFdsMu.Unlock()
	return nil
}

// unlockPath releases the lock taken by lockPath and closes its descriptor.
func unlockPath(path string) {
	lockFdsMu.Lock()
	fd, ok := lockFds[path]
	delete(lockFds, path)
	lockFdsMu.Unlock()
	if !ok {
		return
	}
	unix.Flock(fd, unix.LOCK_UN)
	unix.Close(fd)
}
