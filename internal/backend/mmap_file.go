package backend

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/manpen/foxxll/internal/engine"
)

// MmapFile is the "mmap" io_impl: the backing file is memory-mapped once
// and transfers are plain copies into/out of the mapping, letting the
// kernel's page cache do the I/O scheduling. Direct I/O and mmap are
// mutually exclusive (an mmap'd region can't honor O_DIRECT's alignment
// contract the same way pread/pwrite can), so MmapFile never opens with
// O_DIRECT regardless of the flags passed.
type MmapFile struct {
	engine.FileBase

	fd       int
	lockPath string

	mu       sync.RWMutex
	mapping  []byte
	size     int64
	locked   bool
}

// OpenMmapFile opens path and maps its current contents.
func OpenMmapFile(queueID int, deviceID uint32, path string, flags engine.OpenFlags) (*MmapFile, error) {
	osFlags := translateOpenFlags(flags &^ (engine.Direct | engine.RequireDirect))
	fd, err := unix.Open(path, osFlags, 0o644)
	if err != nil {
		return nil, engine.WrapError("OpenMmapFile", err)
	}

	st, err := unix.Fstat(fd)
	if err != nil {
		unix.Close(fd)
		return nil, engine.WrapError("OpenMmapFile", err)
	}

	m := &MmapFile{
		FileBase: engine.NewFileBase(queueID, deviceID),
		fd:       fd,
		lockPath: path + ".lock",
		size:     st.Size,
	}
	if st.Size > 0 {
		if err := m.remap(st.Size); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}
	return m, nil
}

func (m *MmapFile) remap(size int64) error {
	if m.mapping != nil {
		if err := unix.Munmap(m.mapping); err != nil {
			return engine.WrapError("MmapFile.remap", err)
		}
		m.mapping = nil
	}
	if size == 0 {
		return nil
	}
	data, err := unix.Mmap(m.fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return engine.WrapError("MmapFile.remap", err)
	}
	m.mapping = data
	return nil
}

func (m *MmapFile) Serve(buf []byte, offset int64, length int64, dir engine.Direction) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset < 0 || offset+length > m.size {
		return engine.NewError("MmapFile.Serve", engine.KindInvalidArgument, "transfer out of bounds")
	}
	if dir == engine.Read {
		copy(buf[:length], m.mapping[offset:offset+length])
	} else {
		copy(m.mapping[offset:offset+length], buf[:length])
	}
	return nil
}

func (m *MmapFile) ARead(buf []byte, offset int64, length int64, cb engine.CompletionHandler) *engine.Request {
	return submitViaQueue(m, buf, offset, length, engine.Read, cb)
}

func (m *MmapFile) AWrite(buf []byte, offset int64, length int64, cb engine.CompletionHandler) *engine.Request {
	return submitViaQueue(m, buf, offset, length, engine.Write, cb)
}

func (m *MmapFile) SetSize(bytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := unix.Ftruncate(m.fd, bytes); err != nil {
		return engine.WrapError("MmapFile.SetSize", err)
	}
	if err := m.remap(bytes); err != nil {
		return err
	}
	m.size = bytes
	return nil
}

func (m *MmapFile) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return nil
	}
	if err := lockPath(m.lockPath); err != nil {
		return engine.WrapError("MmapFile.Lock", err)
	}
	m.locked = true
	return nil
}

func (m *MmapFile) CloseRemove() error {
	m.WaitOutstandingZero()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		unlockPath(m.lockPath)
		m.locked = false
	}
	if m.mapping != nil {
		unix.Munmap(m.mapping)
		m.mapping = nil
	}
	if err := unix.Close(m.fd); err != nil {
		return engine.WrapError("MmapFile.CloseRemove", err)
	}
	return nil
}

func (m *MmapFile) IOType() string { return "mmap" }
