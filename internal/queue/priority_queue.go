package queue

import (
	"container/list"
	"sync"

	"github.com/manpen/foxxll/internal/engine"
	"github.com/manpen/foxxll/internal/logging"
	"github.com/manpen/foxxll/internal/primitives"
	"github.com/manpen/foxxll/internal/stats"
)

// PriorityPolicy controls which of the two per-direction FIFOs PriorityQueue
// drains from when both have pending requests.
type PriorityPolicy int

const (
	ReadsFirst PriorityPolicy = iota
	WritesFirst
	Alternate
	None
)

// PriorityQueue is the two-FIFO request queue variant of spec.md §4.5: reads
// and writes are queued separately, and a PriorityPolicy decides which FIFO
// the worker drains from when both are non-empty. With policy None the two
// FIFOs are drained in the order requests were signaled, behaving like a
// single FIFO but without reads and writes intermixed within their own
// queues.
type PriorityQueue struct {
	id     int
	policy PriorityPolicy

	mu     sync.Mutex
	reads  *list.List
	writes *list.List
	// turn alternates between serving reads and writes under Alternate.
	// seq numbers every enqueue so None can serve whichever FIFO front was
	// enqueued first (see AddRequest and popNext).
	turn engine.Direction
	seq  uint64

	sem   *primitives.Semaphore
	state *primitives.SharedState[ThreadState]
	done  chan struct{}
}

type pqEntry struct {
	r   *engine.Request
	seq uint64
}

// NewPriorityQueue constructs and starts a two-FIFO queue under policy.
func NewPriorityQueue(id int, policy PriorityPolicy) *PriorityQueue {
	q := &PriorityQueue{
		id:     id,
		policy: policy,
		reads:  list.New(),
		writes: list.New(),
		turn:   engine.Read,
		sem:    primitives.NewSemaphore(0),
		state:  primitives.NewSharedState(NotRunning),
		done:   make(chan struct{}),
	}
	q.state.SetTo(Running)
	go q.worker()
	return q
}

func (q *PriorityQueue) AddRequest(r *engine.Request) error {
	if r == nil {
		return engine.NewError("PriorityQueue.AddRequest", engine.KindInvalidArgument, "nil request")
	}
	if q.state.Current() != Running {
		return engine.NewError("PriorityQueue.AddRequest", engine.KindInvalidArgument, "queue is not running")
	}

	q.mq(r.Direction(), func(l *list.List) {
		for e := l.Front(); e != nil; e = e.Next() {
			pe := e.Value.(pqEntry)
			if pe.r.File() == r.File() && pe.r.Offset() == r.Offset() {
				logging.Warn("duplicate pending request for same file and offset",
					"offset", r.Offset(), "queue", q.id, "direction", r.Direction())
				break
			}
		}
		q.seq++
		l.PushBack(pqEntry{r: r, seq: q.seq})
	})

	q.sem.Signal()
	return nil
}

// mq runs fn against the list for dir under the queue mutex.
func (q *PriorityQueue) mq(dir engine.Direction, fn func(*list.List)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if dir == engine.Read {
		fn(q.reads)
	} else {
		fn(q.writes)
	}
}

func (q *PriorityQueue) CancelRequest(r *engine.Request) bool {
	if q.state.Current() != Running {
		return false
	}

	var found *list.Element
	q.mu.Lock()
	l := q.reads
	if r.Direction() == engine.Write {
		l = q.writes
	}
	for e := l.Front(); e != nil; e = e.Next() {
		if e.Value.(pqEntry).r == r {
			found = e
			break
		}
	}
	if found != nil {
		l.Remove(found)
	}
	q.mu.Unlock()

	if found == nil {
		return false
	}
	q.sem.TryDecrement()
	return true
}

func (q *PriorityQueue) Close() {
	if q.state.Current() >= Terminating {
		<-q.done
		return
	}
	q.state.SetTo(Terminating)
	q.sem.Signal()
	<-q.done
}

// popNext selects and removes the next request to serve according to
// policy, preferring the direction named by the policy when both FIFOs are
// non-empty and falling back to whichever is non-empty otherwise.
func (q *PriorityQueue) popNext() *engine.Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	readFront := q.reads.Front()
	writeFront := q.writes.Front()

	var takeReads bool
	switch {
	case readFront == nil && writeFront == nil:
		return nil
	case readFront == nil:
		takeReads = false
	case writeFront == nil:
		takeReads = true
	default:
		switch q.policy {
		case ReadsFirst:
			takeReads = true
		case WritesFirst:
			takeReads = false
		case Alternate:
			takeReads = q.turn == engine.Read
			if takeReads {
				q.turn = engine.Write
			} else {
				q.turn = engine.Read
			}
		case None:
			rSeq := readFront.Value.(pqEntry).seq
			wSeq := writeFront.Value.(pqEntry).seq
			takeReads = rSeq < wSeq
		}
	}

	if takeReads {
		q.reads.Remove(readFront)
		return readFront.Value.(pqEntry).r
	}
	q.writes.Remove(writeFront)
	return writeFront.Value.(pqEntry).r
}

func (q *PriorityQueue) pendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.reads.Len() + q.writes.Len()
}

func (q *PriorityQueue) worker() {
	defer close(q.done)
	defer q.state.SetTo(Terminated)

	for {
		q.sem.Wait()

		r := q.popNext()
		if r == nil {
			if q.state.Current() == Terminating {
				return
			}
			continue
		}

		q.serve(r)

		if q.state.Current() == Terminating && q.pendingLen() == 0 {
			return
		}
	}
}

func (q *PriorityQueue) serve(r *engine.Request) {
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
		r.SetError(engine.WrapError("PriorityQueue.serve", err))
	}

	r.Complete(success)
}
