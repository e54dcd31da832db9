package primitives

import (
	"cmp"
	"sync"
)

// SharedState is a generic ordered-enum cell: SetTo moves the cell forward
// to v (a no-op, not an error, if the cell has already reached v or later),
// Current reads the value, and WaitFor blocks until the cell reaches v or a
// later value. Grounded on foxxll::shared_state<T>, which backs both the
// request queue's thread-state cell and the request's state cell.
type SharedState[T cmp.Ordered] struct {
	mu    sync.Mutex
	cnd   *sync.Cond
	value T
}

// NewSharedState returns a cell initialized to v.
func NewSharedState[T cmp.Ordered](v T) *SharedState[T] {
	s := &SharedState[T]{value: v}
	s.cnd = sync.NewCond(&s.mu)
	return s
}

// SetTo advances the cell to v. If the cell is already at v or a later
// value, SetTo is a no-op — state transitions in this engine are always
// monotonic, so this is what prevents a double-completion from moving the
// state backward.
func (s *SharedState[T]) SetTo(v T) {
	s.mu.Lock()
	if v > s.value {
		s.value = v
		s.mu.Unlock()
		s.cnd.Broadcast()
		return
	}
	s.mu.Unlock()
}

// Current returns the current value.
func (s *SharedState[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// WaitFor blocks until the cell's value is >= v.
func (s *SharedState[T]) WaitFor(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.value < v {
		s.cnd.Wait()
	}
}
