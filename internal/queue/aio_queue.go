//go:build linux

package queue

import (
	"context"
	"sync"
	"syscall"
	"unsafe"

	"github.com/pawelgaczynski/giouring"

	"github.com/manpen/foxxll/internal/engine"
	"github.com/manpen/foxxll/internal/logging"
	"github.com/manpen/foxxll/internal/stats"
)

// AIOQueue is the native-async queue variant: instead of a worker goroutine
// calling File.Serve synchronously, it posts read/write operations directly
// to an io_uring instance and reaps completions from a single goroutine.
// Grounded on the giouring usage shown in the retrieved io_uring event-loop
// reference and the teacher's ctx-driven ioLoop shape (internal/queue's own
// runner.go, adapted from ublk's tag state machine to a plain
// userdata -> *engine.Request map).
type AIOQueue struct {
	id int

	ring *giouring.Ring

	mu      sync.Mutex
	nextUD  uint64
	pending map[uint64]*engine.Request

	submitMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAIOQueue creates an io_uring instance with the given submission queue
// depth and starts its completion-reaping goroutine.
func NewAIOQueue(id int, entries uint32) (*AIOQueue, error) {
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, engine.WrapError("NewAIOQueue", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &AIOQueue{
		id:      id,
		ring:    ring,
		pending: make(map[uint64]*engine.Request),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go q.completionLoop()
	return q, nil
}

// AddRequest submits r's transfer to the ring directly; there is no pending
// list to search for duplicates since the kernel, not a worker goroutine,
// drains it.
func (q *AIOQueue) AddRequest(r *engine.Request) error {
	if r == nil {
		return engine.NewError("AIOQueue.AddRequest", engine.KindInvalidArgument, "nil request")
	}

	fd, ok := fdOf(r.File())
	if !ok {
		return engine.NewError("AIOQueue.AddRequest", engine.KindConfiguration, "file does not support native-async submission")
	}

	q.mu.Lock()
	q.nextUD++
	ud := q.nextUD
	q.pending[ud] = r
	q.mu.Unlock()

	st := stats.GetInstance()
	if r.Direction() == engine.Read {
		st.ReadStarted()
	} else {
		st.WriteStarted()
	}

	q.submitMu.Lock()
	sqe := q.ring.GetSQE()
	if sqe == nil {
		q.ring.Submit()
		sqe = q.ring.GetSQE()
	}
	if sqe == nil {
		q.submitMu.Unlock()
		q.mu.Lock()
		delete(q.pending, ud)
		q.mu.Unlock()
		return engine.NewError("AIOQueue.AddRequest", engine.KindIO, "submission queue full")
	}

	buf := r.Buffer()
	var addr uintptr
	if len(buf) > 0 {
		addr = uintptr(unsafe.Pointer(&buf[0]))
	}
	if r.Direction() == engine.Read {
		sqe.PrepareRead(fd, addr, uint32(r.Bytes()), uint64(r.Offset()))
	} else {
		sqe.PrepareWrite(fd, addr, uint32(r.Bytes()), uint64(r.Offset()))
	}
	sqe.UserData = ud
	_, err := q.ring.Submit()
	q.submitMu.Unlock()
	if err != nil {
		return engine.WrapError("AIOQueue.AddRequest", err)
	}
	return nil
}

// CancelRequest has no kernel-side cancellation path in this variant
// (spec.md §4.5 permits native-async queues to differ from the serve-based
// contract); once submitted to the ring, a request always runs to
// completion.
func (q *AIOQueue) CancelRequest(r *engine.Request) bool {
	return false
}

// Close stops the completion loop and tears down the ring. Any requests
// still in flight at the kernel are abandoned — callers are expected to
// Wait on them before calling Close, per spec.md's shutdown-ordering
// guidance.
func (q *AIOQueue) Close() {
	q.cancel()
	<-q.done
	q.ring.QueueExit()
}

func (q *AIOQueue) completionLoop() {
	defer close(q.done)

	var cqes [128]*giouring.CompletionQueueEvent
	for {
		select {
		case <-q.ctx.Done():
			return
		default:
		}

		q.submitMu.Lock()
		_, err := q.ring.SubmitAndWait(1)
		q.submitMu.Unlock()
		if err != nil {
			if err == syscall.EINTR || err == syscall.EAGAIN {
				continue
			}
			select {
			case <-q.ctx.Done():
				return
			default:
				logging.Error("aio queue submit/wait failed", "queue", q.id, "err", err)
				continue
			}
		}

		peeked := q.ring.PeekBatchCQE(cqes[:])
		for _, cqe := range cqes[:peeked] {
			q.handleCompletion(cqe)
		}
		q.ring.CQAdvance(peeked)
	}
}

func (q *AIOQueue) handleCompletion(cqe *giouring.CompletionQueueEvent) {
	q.mu.Lock()
	r, ok := q.pending[cqe.UserData]
	if ok {
		delete(q.pending, cqe.UserData)
	}
	q.mu.Unlock()
	if !ok {
		return
	}

	st := stats.GetInstance()
	if r.Direction() == engine.Read {
		st.ReadFinished()
	} else {
		st.WriteFinished()
	}

	success := cqe.Res >= 0
	if success {
		if r.Direction() == engine.Read {
			st.AddBytesRead(int64(cqe.Res))
		} else {
			st.AddBytesWritten(int64(cqe.Res))
		}
	} else {
		errno := syscall.Errno(-cqe.Res)
		logging.Warn("native-async transfer failed", "queue", q.id, "offset", r.Offset(), "errno", errno)
		r.SetError(engine.WrapError("AIOQueue.handleCompletion", errno))
	}
	r.Complete(success)
}

// fdSource is implemented by backend files that can hand a raw fd to the
// io_uring submission path (the syscall backend); backends without a raw
// fd (mmap, memory, file-per-block) are not usable with the native-async
// queue variant.
type fdSource interface {
	Fd() int
}

func fdOf(f engine.File) (int, bool) {
	if fs, ok := f.(fdSource); ok {
		return fs.Fd(), true
	}
	return 0, false
}
