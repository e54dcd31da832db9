package backend

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/manpen/foxxll/internal/engine"
)

// SyscallFile is the "syscall" io_impl: a plain POSIX file accessed via
// pread/pwrite, optionally opened O_DIRECT. This is the default backend —
// grounded on original_source's syscall_file, which is the reference
// implementation every other POSIX backend is a variation of.
type SyscallFile struct {
	engine.FileBase

	path       string
	fd         int
	direct     bool
	blockAlign int64
	lockPath   string

	mu     sync.Mutex
	locked bool
}

// OpenSyscallFile opens path according to flags. blockAlign is the device's
// required alignment for direct I/O (ignored when flags has neither Direct
// nor RequireDirect set).
func OpenSyscallFile(queueID int, deviceID uint32, path string, flags engine.OpenFlags, blockAlign int64) (*SyscallFile, error) {
	osFlags := translateOpenFlags(flags)

	direct := flags&engine.Direct != 0 || flags&engine.RequireDirect != 0
	fd, directActual, err := openWithOptionalDirect(path, osFlags, direct, flags&engine.RequireDirect != 0)
	if err != nil {
		return nil, engine.WrapError("OpenSyscallFile", err)
	}

	return &SyscallFile{
		FileBase:   engine.NewFileBase(queueID, deviceID),
		path:       path,
		fd:         fd,
		direct:     directActual,
		blockAlign: blockAlign,
		lockPath:   path + ".lock",
	}, nil
}

func translateOpenFlags(flags engine.OpenFlags) int {
	osFlags := 0
	switch {
	case flags&engine.RDWR != 0:
		osFlags |= os.O_RDWR
	case flags&engine.WROnly != 0:
		osFlags |= os.O_WRONLY
	default:
		osFlags |= os.O_RDONLY
	}
	if flags&engine.Creat != 0 {
		osFlags |= os.O_CREATE
	}
	if flags&engine.Trunc != 0 {
		osFlags |= os.O_TRUNC
	}
	if flags&engine.Sync != 0 {
		osFlags |= os.O_SYNC
	}
	return osFlags
}

// Fd exposes the raw descriptor so internal/queue's native-async variant
// can submit io_uring operations against it directly.
func (f *SyscallFile) Fd() int { return f.fd }

func (f *SyscallFile) Serve(buf []byte, offset int64, length int64, dir engine.Direction) error {
	if err := engine.ValidateAlignment(f.direct, buf[:length], offset, length, f.blockAlign); err != nil {
		return err
	}
	if dir == engine.Read {
		n, err := unix.Pread(f.fd, buf[:length], offset)
		if err != nil {
			return engine.WrapError("SyscallFile.Serve", err)
		}
		if int64(n) != length {
			return engine.NewError("SyscallFile.Serve", engine.KindEOF, "short read")
		}
		return nil
	}
	n, err := unix.Pwrite(f.fd, buf[:length], offset)
	if err != nil {
		return engine.WrapError("SyscallFile.Serve", err)
	}
	if int64(n) != length {
		return engine.NewError("SyscallFile.Serve", engine.KindIO, "short write")
	}
	return nil
}

func (f *SyscallFile) ARead(buf []byte, offset int64, length int64, cb engine.CompletionHandler) *engine.Request {
	return submitViaQueue(f, buf, offset, length, engine.Read, cb)
}

func (f *SyscallFile) AWrite(buf []byte, offset int64, length int64, cb engine.CompletionHandler) *engine.Request {
	return submitViaQueue(f, buf, offset, length, engine.Write, cb)
}

func (f *SyscallFile) SetSize(bytes int64) error {
	if err := unix.Ftruncate(f.fd, bytes); err != nil {
		return engine.WrapError("SyscallFile.SetSize", err)
	}
	return nil
}

// Lock takes the advisory cross-process lock for this file's path, per
// spec.md §4.7. It does not look at NoLock; CreateFile skips calling Lock
// when NoLock is set.
func (f *SyscallFile) Lock() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return nil
	}
	if err := lockPath(f.lockPath); err != nil {
		return engine.WrapError("SyscallFile.Lock", err)
	}
	f.locked = true
	return nil
}

func (f *SyscallFile) CloseRemove() error {
	f.WaitOutstandingZero()
	f.mu.Lock()
	if f.locked {
		unlockPath(f.lockPath)
		f.locked = false
	}
	f.mu.Unlock()
	if err := unix.Close(f.fd); err != nil {
		return engine.WrapError("SyscallFile.CloseRemove", err)
	}
	return nil
}

func (f *SyscallFile) IOType() string { return "syscall" }
