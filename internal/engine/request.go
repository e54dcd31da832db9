package engine

import (
	"sync"
	"sync/atomic"

	"github.com/manpen/foxxll/internal/logging"
	"github.com/manpen/foxxll/internal/primitives"
	"github.com/manpen/foxxll/internal/stats"
)

// RequestState is the ordered enum the request's state cell moves through.
// Transitions are monotonic: OP < Done < ReadyToDie, enforced by
// primitives.SharedState.
type RequestState int

const (
	StateOP RequestState = iota
	StateDone
	StateReadyToDie
)

// CompletionHandler is invoked exactly once per request, when it reaches
// StateDone, with success=false iff the request was canceled or failed.
type CompletionHandler func(r *Request, success bool)

// Request is a caller-owned-buffer descriptor for one block I/O transfer.
// It is reference-counted; the last Unref destroys it. A Request may only
// be destroyed while in StateDone or StateReadyToDie — destruction earlier
// than that is a bug (mirrors request_with_state's destructor assertion in
// original_source).
type Request struct {
	file       File
	buffer     []byte
	offset     int64
	bytes      int64
	direction  Direction
	onComplete CompletionHandler

	state *primitives.SharedState[RequestState]

	waitersMu sync.Mutex
	waiters   map[*primitives.OnOffLatch]struct{}

	refs atomic.Int32

	errMu sync.Mutex
	err   *Error
}

// NewRequest constructs a Request in StateOP, taking a back-reference on
// file. Callers are internal/backend's concrete ARead/AWrite
// implementations, never application code directly (application code goes
// through File.ARead/AWrite).
func NewRequest(file File, buf []byte, offset, bytes int64, dir Direction, cb CompletionHandler) *Request {
	file.addOutstanding()
	r := &Request{
		file:       file,
		buffer:     buf,
		offset:     offset,
		bytes:      bytes,
		direction:  dir,
		onComplete: cb,
		state:      primitives.NewSharedState(StateOP),
		waiters:    make(map[*primitives.OnOffLatch]struct{}),
	}
	r.refs.Store(1)
	return r
}

// File, Buffer, Offset, Bytes, and Direction expose the fields a queue
// worker needs to call File.Serve and subsequently Complete. They are
// read-only: only the request's own constructor and completion protocol
// may mutate state.
func (r *Request) File() File          { return r.file }
func (r *Request) Buffer() []byte      { return r.buffer }
func (r *Request) Offset() int64       { return r.offset }
func (r *Request) Bytes() int64        { return r.bytes }
func (r *Request) Direction() Direction { return r.direction }

// State returns the request's current state, mainly for diagnostics and
// tests; application code should use Poll/Wait instead.
func (r *Request) State() RequestState { return r.state.Current() }

// SetError attaches err to the request if no error has been recorded yet.
// Called by a queue worker after a failed Serve, before Complete.
func (r *Request) SetError(err *Error) {
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.errMu.Unlock()
}

// Ref increments the reference count.
func (r *Request) Ref() {
	r.refs.Add(1)
}

// Unref decrements the reference count. The request carries no finalizer
// in Go — the garbage collector reclaims it once unreferenced — but Unref
// still enforces the destruction invariant so a caller that drops the last
// reference too early is told why.
func (r *Request) Unref() {
	if r.refs.Add(-1) == 0 {
		if s := r.state.Current(); s != StateDone && s != StateReadyToDie {
			logging.Error("request destroyed in non-terminal state", "state", s)
			bug("Request.Unref", "request destroyed outside {DONE, READY-TO-DIE}")
		}
	}
}

// Wait blocks until the request reaches StateReadyToDie, optionally
// measuring the wait under the stats singleton's wait-time timer, then
// raises any stored error via checkErrors.
func (r *Request) Wait(measureTime bool) error {
	if measureTime {
		kind := stats.WaitRead
		if r.direction == Write {
			kind = stats.WaitWrite
		}
		stop := stats.GetInstance().ScopedWaitTimer(kind)
		defer stop()
	}
	r.state.WaitFor(StateReadyToDie)
	return r.checkErrors()
}

// Poll reports whether the request has at least reached StateDone.
func (r *Request) Poll() bool {
	s := r.state.Current()
	return s == StateDone || s == StateReadyToDie
}

// checkErrors returns the stored error, if any. Calling it repeatedly is
// idempotent: the error value itself never changes once set, so raising it
// twice is harmless and matches spec.md §7's "subsequent wait calls are
// idempotent".
func (r *Request) checkErrors() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err == nil {
		return nil
	}
	return r.err
}

// AddWaiter registers l to be turned on when the request completes. Under
// the waiters lock it first re-checks Poll() to close the
// register-vs-notify race described in original_source's
// request_with_waiters::add_waiter: if the request has already completed,
// AddWaiter returns true immediately without registering (the caller
// treats that as "already fired" and fires the latch itself if it needs
// to observe it that way); otherwise it registers and returns false.
func (r *Request) AddWaiter(l *primitives.OnOffLatch) bool {
	r.waitersMu.Lock()
	defer r.waitersMu.Unlock()
	if r.Poll() {
		return true
	}
	r.waiters[l] = struct{}{}
	return false
}

// notifyWaiters turns on every registered latch and clears the set.
func (r *Request) notifyWaiters() {
	r.waitersMu.Lock()
	ws := r.waiters
	r.waiters = make(map[*primitives.OnOffLatch]struct{})
	r.waitersMu.Unlock()

	for l := range ws {
		l.On()
	}
}

// Complete runs the completion protocol exactly once: StateDone, invoke
// the callback, notify waiters, release the file back-reference, then
// StateReadyToDie. Called from exactly one of {the queue worker, a
// successful Cancel} — the monotonic state cell is what prevents a second
// caller from repeating the side effects (§4.8).
func (r *Request) Complete(success bool) {
	prior := r.state.Current()
	if prior != StateOP {
		// Already completed by the other path in the cancel/complete
		// race; nothing to do.
		return
	}
	r.state.SetTo(StateDone)
	if r.state.Current() != StateDone {
		bug("Request.Complete", "state advanced past DONE before callback ran")
	}

	if r.onComplete != nil {
		r.onComplete(r, success)
	}
	r.notifyWaiters()
	r.file.releaseOutstanding()
	r.state.SetTo(StateReadyToDie)
}

// Cancel attempts to remove the request from its serving queue before the
// worker takes it. Success means no bytes were transferred for this
// submission: the request is marked DONE with success=false, waiters are
// notified, the file back-reference is released, and the request reaches
// READY-TO-DIE — all before Cancel returns. If the request has already
// been taken by the worker (or has already completed), Cancel returns
// false and the normal completion path wins the race.
func (r *Request) Cancel() bool {
	if requestQueueLookup == nil {
		return false
	}
	q, ok := requestQueueLookup(r.file.QueueID())
	if !ok {
		return false
	}
	if !q.CancelRequest(r) {
		return false
	}
	r.Complete(false)
	return true
}

// RequestQueue is the minimal surface Request needs from a queue to
// support Cancel, avoiding an import cycle with internal/queue (which
// imports this package for *Request itself). internal/queue's registry
// registers the concrete lookup function via SetRequestQueueLookup the
// first time GetRegistry is called; until then Cancel returns false.
type RequestQueue interface {
	CancelRequest(r *Request) bool
}

var requestQueueLookup func(queueID int) (RequestQueue, bool)

// SetRequestQueueLookup wires Request.Cancel up to the real queue registry.
// Called once, by internal/queue's GetRegistry on its first use; not part
// of the public API surface application code should call.
func SetRequestQueueLookup(f func(queueID int) (RequestQueue, bool)) {
	requestQueueLookup = f
}
