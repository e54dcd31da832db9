package queue

import (
	"container/list"
	"sync"

	"github.com/manpen/foxxll/internal/engine"
	"github.com/manpen/foxxll/internal/logging"
	"github.com/manpen/foxxll/internal/primitives"
	"github.com/manpen/foxxll/internal/stats"
)

// ThreadState is the ordered state a queue's worker goroutine moves
// through. Transitions are monotonic and drive queue shutdown.
type ThreadState int

const (
	NotRunning ThreadState = iota
	Running
	Terminating
	Terminated
)

// FIFOQueue is the single-FIFO request queue: one pending list, one worker
// goroutine, requests served strictly in submission order. Grounded on
// original_source/foxxll/io/request_queue_impl_1q.cpp.
type FIFOQueue struct {
	id int

	mu      sync.Mutex
	pending *list.List // of *engine.Request

	sem   *primitives.Semaphore
	state *primitives.SharedState[ThreadState]
	done  chan struct{}
}

// NewFIFOQueue constructs and starts a FIFO queue with the given queue id
// (the identifier its files report via File.QueueID, used to route
// Request.Cancel back to this queue through the registry).
func NewFIFOQueue(id int) *FIFOQueue {
	q := &FIFOQueue{
		id:      id,
		pending: list.New(),
		sem:     primitives.NewSemaphore(0),
		state:   primitives.NewSharedState(NotRunning),
		done:    make(chan struct{}),
	}
	q.state.SetTo(Running)
	go q.worker()
	return q
}

// AddRequest appends r to the pending list and wakes the worker. A request
// already pending for the same file and offset is not refused, only logged
// — STXXL's request_queue_impl_1q warns on this as a likely-accidental
// duplicate submission, it does not forbid it.
func (q *FIFOQueue) AddRequest(r *engine.Request) error {
	if r == nil {
		return engine.NewError("FIFOQueue.AddRequest", engine.KindInvalidArgument, "nil request")
	}
	if q.state.Current() != Running {
		return engine.NewError("FIFOQueue.AddRequest", engine.KindInvalidArgument, "queue is not running")
	}

	q.mu.Lock()
	for e := q.pending.Front(); e != nil; e = e.Next() {
		pr := e.Value.(*engine.Request)
		if pr.File() == r.File() && pr.Offset() == r.Offset() {
			logging.Warn("duplicate pending request for same file and offset",
				"offset", r.Offset(), "queue", q.id)
			break
		}
	}
	q.pending.PushBack(r)
	q.mu.Unlock()

	q.sem.Signal()
	return nil
}

// CancelRequest removes r from the pending list if it is still there,
// consuming exactly one semaphore count — the same count AddRequest added
// for it — so the worker's wait/pop accounting stays exact. Returns
// whether r was found (and thus successfully canceled before being
// served).
func (q *FIFOQueue) CancelRequest(r *engine.Request) bool {
	if q.state.Current() != Running {
		return false
	}

	q.mu.Lock()
	var found *list.Element
	for e := q.pending.Front(); e != nil; e = e.Next() {
		if e.Value.(*engine.Request) == r {
			found = e
			break
		}
	}
	if found != nil {
		q.pending.Remove(found)
	}
	q.mu.Unlock()

	if found == nil {
		return false
	}
	q.sem.TryDecrement()
	return true
}

// Close transitions the queue to Terminating, wakes the worker so it
// notices, and blocks until it has drained the pending list and exited.
func (q *FIFOQueue) Close() {
	if q.state.Current() >= Terminating {
		<-q.done
		return
	}
	q.state.SetTo(Terminating)
	q.sem.Signal()
	<-q.done
}

// worker is the queue's dedicated goroutine: it waits for work, pops and
// serves requests strictly in FIFO order, and exits once the queue has
// been told to terminate and the pending list is empty.
func (q *FIFOQueue) worker() {
	defer close(q.done)
	defer q.state.SetTo(Terminated)

	for {
		q.sem.Wait()

		q.mu.Lock()
		front := q.pending.Front()
		var r *engine.Request
		if front != nil {
			r = front.Value.(*engine.Request)
			q.pending.Remove(front)
		}
		q.mu.Unlock()

		if r == nil {
			// Spurious wake from Close's signal with nothing pending.
			if q.state.Current() == Terminating {
				return
			}
			continue
		}

		q.serve(r)

		if q.state.Current() == Terminating {
			q.mu.Lock()
			empty := q.pending.Len() == 0
			q.mu.Unlock()
			if empty {
				return
			}
		}
	}
}

// serve runs one request's synchronous transfer and completion protocol.
func (q *FIFOQueue) serve(r *engine.Request) {
	st := stats.GetInstance()
	dir := r.Direction()
	if dir == engine.Read {
		st.ReadStarted()
	} else {
		st.WriteStarted()
	}

	err := r.File().Serve(r.Buffer(), r.Offset(), r.Bytes(), dir)

	if dir == engine.Read {
		st.ReadFinished()
	} else {
		st.WriteFinished()
	}

	success := err == nil
	if success {
		if dir == engine.Read {
			st.AddBytesRead(r.Bytes())
		} else {
			st.AddBytesWritten(r.Bytes())
		}
	} else {
		r.SetError(engine.WrapError("FIFOQueue.serve", err))
	}

	r.Complete(success)
}
