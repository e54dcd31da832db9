package aio

import (
	"fmt"
	"sync/atomic"

	"github.com/manpen/foxxll/internal/backend"
	"github.com/manpen/foxxll/internal/constants"
	"github.com/manpen/foxxll/internal/engine"
	"github.com/manpen/foxxll/internal/queue"
)

// DirectMode controls how CreateFile treats the Direct/TryDirect/
// RequireDirect flags relative to what the underlying filesystem actually
// supports, per spec.md §4.4's open/direct-mode contract.
type DirectMode int

const (
	// DirectOff never requests O_DIRECT.
	DirectOff DirectMode = iota
	// DirectTry requests O_DIRECT but silently falls back if the
	// filesystem rejects it.
	DirectTry
	// DirectRequire requests O_DIRECT and fails CreateFile if it cannot be
	// obtained.
	DirectRequire
)

// DiskConfig describes one backing storage object for CreateFile.
type DiskConfig struct {
	// Path is the backing file path (or, for io_impl "memory", an
	// identifying label only — no file is touched).
	Path string
	// IOImpl selects the backend by name: syscall, fileperblock_syscall,
	// memory, mmap, fileperblock_mmap, wincall, fileperblock_wincall,
	// linuxaio, boostfd, fileperblock_boostfd, wbtl.
	IOImpl string
	// Size is the initial size in bytes (applied via SetSize after open).
	// Ignored for memory's zero value (grows on first SetSize call).
	Size int64
	// Flags are the open-mode bits (Creat, RDOnly, WROnly, RDWR, Trunc,
	// Sync, NoLock). Use Direct to select direct I/O: TryDirect is not
	// read from here, and Direct/RequireDirect bits set here are passed on
	// together with what Direct adds.
	Flags engine.OpenFlags
	// Direct selects the direct-I/O behavior; see DirectMode.
	Direct DirectMode
	// BlockAlign is the device's required alignment in bytes for direct
	// I/O. Defaults to 512 if zero and direct mode is not DirectOff.
	BlockAlign int64
	// QueueDepth is the io_uring submission queue depth used by the
	// "linuxaio" io_impl; ignored otherwise. Defaults to 128 if zero.
	QueueDepth uint32
	// PriorityPolicy selects the two-FIFO queue variant's read/write
	// ordering; used only when QueueVariant is PriorityQueueVariant.
	PriorityPolicy queue.PriorityPolicy
	// QueueVariant selects which Queue implementation serves this file's
	// requests (FIFO, priority, or native-async for linuxaio).
	QueueVariant QueueVariant
	// NoDeleteOnDiscard selects file-per-block's truncate-instead-of-
	// delete discard behavior (spec.md §4.4's "no-delete build flag").
	// Ignored for non-file-per-block io_impls.
	NoDeleteOnDiscard bool
}

// QueueVariant names which internal/queue implementation CreateFile wires
// up for a disk.
type QueueVariant int

const (
	FIFOQueueVariant QueueVariant = iota
	PriorityQueueVariant
	NativeAsyncQueueVariant
)

var nextQueueID int64

// CreateFile opens (or constructs) the backend named by cfg.IOImpl,
// registers a fresh queue for it in the process-wide registry, applies
// cfg.Size via SetSize, and — unless cfg.Flags has NoLock set — takes the
// advisory cross-process lock before returning.
func CreateFile(cfg DiskConfig) (File, error) {
	queueID := int(atomic.AddInt64(&nextQueueID, 1))
	deviceID := uint32(queueID)

	var q queue.Queue
	switch {
	case cfg.IOImpl == "linuxaio" || cfg.QueueVariant == NativeAsyncQueueVariant:
		depth := cfg.QueueDepth
		if depth == 0 {
			depth = constants.DefaultQueueDepth
		}
		aq, err := queue.NewAIOQueue(queueID, depth)
		if err != nil {
			return nil, engine.WrapError("CreateFile", err)
		}
		q = aq
	case cfg.QueueVariant == PriorityQueueVariant:
		q = queue.NewPriorityQueue(queueID, cfg.PriorityPolicy)
	default:
		q = queue.NewFIFOQueue(queueID)
	}
	queue.GetRegistry().Add(queueID, q)

	f, err := buildFile(queueID, deviceID, cfg)
	if err != nil {
		q.Close()
		queue.GetRegistry().Remove(queueID)
		return nil, err
	}

	if cfg.Size > 0 {
		if err := f.SetSize(cfg.Size); err != nil {
			f.CloseRemove()
			q.Close()
			queue.GetRegistry().Remove(queueID)
			return nil, err
		}
	}

	if cfg.Flags&engine.NoLock == 0 {
		if err := f.Lock(); err != nil {
			f.CloseRemove()
			q.Close()
			queue.GetRegistry().Remove(queueID)
			return nil, err
		}
	}

	return f, nil
}

// Shutdown closes every queue CreateFile registered, joining each worker,
// and empties the registry. Call it explicitly before process exit; see the
// package doc.
func Shutdown() {
	queue.GetRegistry().Shutdown()
}

func buildFile(queueID int, deviceID uint32, cfg DiskConfig) (engine.File, error) {
	blockAlign := cfg.BlockAlign
	if blockAlign == 0 {
		blockAlign = constants.DefaultBlockAlign
	}

	switch cfg.IOImpl {
	case "memory":
		return backend.NewMemory(queueID, deviceID, cfg.Size), nil

	case "syscall", "linuxaio", "boostfd":
		// boostfd and wbtl in original_source are alternate POSIX fd
		// wrappers (Boost.ASIO's descriptor, and a write-behind/
		// translation layer built atop another file); neither has a
		// distinct Go ecosystem equivalent worth introducing a dependency
		// for, so both map onto the same pread/pwrite implementation
		// syscall already provides (DESIGN.md).
		return openSyscall(queueID, deviceID, cfg, blockAlign)

	case "wbtl":
		return openSyscall(queueID, deviceID, cfg, blockAlign)

	case "mmap":
		return backend.OpenMmapFile(queueID, deviceID, cfg.Path, cfg.Flags)

	case "wincall":
		return openWincall(queueID, deviceID, cfg)

	case "fileperblock_syscall":
		return newFilePerBlock(queueID, deviceID, cfg, blockAlign, openSyscallInner)

	case "fileperblock_mmap":
		return newFilePerBlock(queueID, deviceID, cfg, blockAlign, openMmapInner)

	case "fileperblock_wincall":
		return newFilePerBlock(queueID, deviceID, cfg, blockAlign, openWincallInner)

	case "fileperblock_boostfd":
		return newFilePerBlock(queueID, deviceID, cfg, blockAlign, openSyscallInner)

	default:
		return nil, engine.NewError("CreateFile", engine.KindConfiguration,
			fmt.Sprintf("unknown io_impl %q", cfg.IOImpl))
	}
}

func directFlags(cfg DiskConfig) engine.OpenFlags {
	switch cfg.Direct {
	case DirectTry:
		return cfg.Flags | engine.Direct
	case DirectRequire:
		return cfg.Flags | engine.Direct | engine.RequireDirect
	default:
		return cfg.Flags
	}
}

func openSyscall(queueID int, deviceID uint32, cfg DiskConfig, blockAlign int64) (engine.File, error) {
	return backend.OpenSyscallFile(queueID, deviceID, cfg.Path, directFlags(cfg), blockAlign)
}

func openWincall(queueID int, deviceID uint32, cfg DiskConfig) (engine.File, error) {
	return backend.OpenWincallFile(queueID, deviceID, cfg.Path, cfg.Flags)
}

func newFilePerBlock(queueID int, deviceID uint32, cfg DiskConfig, blockAlign int64, inner func(int, uint32, string, engine.OpenFlags, int64) (engine.File, error)) (engine.File, error) {
	deleteOnDiscard := !cfg.NoDeleteOnDiscard
	opener := func(path string, flags engine.OpenFlags) (engine.File, error) {
		return inner(queueID, deviceID, path, flags, blockAlign)
	}
	return backend.NewFilePerBlock(queueID, deviceID, cfg.Path, opener, cfg.Flags, deleteOnDiscard), nil
}

func openSyscallInner(queueID int, deviceID uint32, path string, flags engine.OpenFlags, blockAlign int64) (engine.File, error) {
	return backend.OpenSyscallFile(queueID, deviceID, path, flags, blockAlign)
}

func openMmapInner(queueID int, deviceID uint32, path string, flags engine.OpenFlags, blockAlign int64) (engine.File, error) {
	return backend.OpenMmapFile(queueID, deviceID, path, flags)
}

func openWincallInner(queueID int, deviceID uint32, path string, flags engine.OpenFlags, blockAlign int64) (engine.File, error) {
	return backend.OpenWincallFile(queueID, deviceID, path, flags)
}
