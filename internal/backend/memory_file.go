// Package backend implements the pluggable File backends the factory
// dispatches to by io_impl name: memory, syscall (optionally direct I/O),
// mmap, wincall, and file-per-block (wrapping syscall, mmap or wincall).
// Native-async (io_uring) is not a backend here: "linuxaio" opens a syscall
// file and serves it through internal/queue's AIOQueue.
// Every concrete type embeds engine.FileBase so it satisfies engine.File's
// unexported outstanding-request bookkeeping methods.
package backend

import (
	"sync"

	"github.com/manpen/foxxll/internal/engine"
)

// memoryShardSize is the granularity of the RWMutex striping Memory uses to
// let concurrent requests touching disjoint regions proceed in parallel.
// Grounded on the teacher's backend/mem.go, whose sharded-locking scheme is
// adapted here from a RAM-disk backend to a plain arena-backed File.
const memoryShardSize = 64 * 1024

// Memory is the "memory" io_impl: a byte arena standing in for a backing
// file, useful for tests and for workloads that fit comfortably in RAM.
type Memory struct {
	engine.FileBase

	mu     sync.RWMutex // guards size/data identity (grow via SetSize)
	data   []byte
	shards []sync.RWMutex
}

// NewMemory constructs a Memory file of the given initial size.
func NewMemory(queueID int, deviceID uint32, size int64) *Memory {
	m := &Memory{
		FileBase: engine.NewFileBase(queueID, deviceID),
		data:     make([]byte, size),
	}
	m.shards = make([]sync.RWMutex, shardCount(size))
	return m
}

func shardCount(size int64) int64 {
	if size <= 0 {
		return 1
	}
	return (size + memoryShardSize - 1) / memoryShardSize
}

func (m *Memory) shardRange(off, length int64) (start, end int64) {
	start = off / memoryShardSize
	end = (off + length - 1) / memoryShardSize
	if n := int64(len(m.shards)); end >= n {
		end = n - 1
	}
	return start, end
}

// Serve performs the synchronous transfer; ARead/AWrite (via the queue
// they submit to) call this from the worker goroutine.
func (m *Memory) Serve(buf []byte, offset int64, length int64, dir engine.Direction) error {
	m.mu.RLock()
	data := m.data
	m.mu.RUnlock()

	if offset < 0 || offset+length > int64(len(data)) {
		return engine.NewError("Memory.Serve", engine.KindInvalidArgument, "transfer out of bounds")
	}

	start, end := m.shardRange(offset, length)
	if dir == engine.Read {
		for i := start; i <= end; i++ {
			m.shards[i].RLock()
		}
		copy(buf[:length], data[offset:offset+length])
		for i := start; i <= end; i++ {
			m.shards[i].RUnlock()
		}
	} else {
		for i := start; i <= end; i++ {
			m.shards[i].Lock()
		}
		copy(data[offset:offset+length], buf[:length])
		for i := start; i <= end; i++ {
			m.shards[i].Unlock()
		}
	}
	return nil
}

func (m *Memory) ARead(buf []byte, offset int64, length int64, cb engine.CompletionHandler) *engine.Request {
	return submitViaQueue(m, buf, offset, length, engine.Read, cb)
}

func (m *Memory) AWrite(buf []byte, offset int64, length int64, cb engine.CompletionHandler) *engine.Request {
	return submitViaQueue(m, buf, offset, length, engine.Write, cb)
}

// SetSize grows or shrinks the arena. Shrinking discards the tail;
// growing zero-fills it. Existing in-flight requests racing a resize are
// the caller's responsibility to avoid, same as any other backend.
func (m *Memory) SetSize(bytes int64) error {
	if bytes < 0 {
		return engine.NewError("Memory.SetSize", engine.KindInvalidArgument, "negative size")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	nd := make([]byte, bytes)
	copy(nd, m.data)
	m.data = nd
	m.shards = make([]sync.RWMutex, shardCount(bytes))
	return nil
}

// Lock is a no-op for the in-memory backend: there is no shared path for a
// second process to contend on.
func (m *Memory) Lock() error { return nil }

// CloseRemove waits for outstanding requests to drain and releases the
// arena.
func (m *Memory) CloseRemove() error {
	m.WaitOutstandingZero()
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

func (m *Memory) IOType() string { return "memory" }
