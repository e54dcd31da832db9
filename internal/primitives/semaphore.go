package primitives

import "sync"

// Semaphore is a non-negative counting semaphore. Signal increments the
// count and wakes one waiter; Wait blocks while the count is zero, then
// decrements it and returns the count observed just before the decrement.
// Grounded on foxxll::semaphore, which request_queue_impl_1q posts once per
// enqueue and waits on once per worker iteration.
type Semaphore struct {
	mu    sync.Mutex
	cnd   *sync.Cond
	count int
}

// NewSemaphore returns a semaphore initialized to count (0 if negative).
func NewSemaphore(count int) *Semaphore {
	if count < 0 {
		count = 0
	}
	s := &Semaphore{count: count}
	s.cnd = sync.NewCond(&s.mu)
	return s
}

// Signal increments the count and wakes one blocked waiter, if any.
func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cnd.Signal()
}

// Wait blocks until the count is positive, then decrements it and returns
// the prior (pre-decrement) value.
func (s *Semaphore) Wait() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.count == 0 {
		s.cnd.Wait()
	}
	prior := s.count
	s.count--
	return prior
}

// TryDecrement consumes one count if available without blocking. Used by
// cancellation to keep the semaphore count equal to the queue length when a
// pending request is pulled out from under it.
func (s *Semaphore) TryDecrement() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false
	}
	s.count--
	return true
}

// Count returns the current count. For tests and diagnostics only — never
// rely on it for correctness since it is stale the instant it's read.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
