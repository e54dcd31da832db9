package queue

import (
	"sync"

	"github.com/manpen/foxxll/internal/engine"
)

// Registry is the process-wide map from queue id to the Queue instance
// serving it. Requests reach their queue for cancellation through it (see
// engine.Request.Cancel), and it owns the ordering invariant on shutdown:
// every queue must be drained and its worker joined before a caller touches
// the stats singleton, since a worker's last served request still updates
// stats as it completes (SPEC_FULL.md §3.5).
type Registry struct {
	mu     sync.Mutex
	queues map[int]Queue
}

var (
	instance     *Registry
	instanceOnce sync.Once
)

// GetRegistry returns the process-wide registry, constructing it and
// wiring engine.Request.Cancel to it on first use.
func GetRegistry() *Registry {
	instanceOnce.Do(func() {
		instance = &Registry{queues: make(map[int]Queue)}
		engine.SetRequestQueueLookup(func(id int) (engine.RequestQueue, bool) {
			q, ok := instance.Get(id)
			return q, ok
		})
	})
	return instance
}

// Add registers q under id. Every CreateFile call allocates a fresh queue
// id for its backing file and registers the queue here before handing the
// file to the caller.
func (reg *Registry) Add(id int, q Queue) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.queues[id] = q
}

// Get looks up the queue for id.
func (reg *Registry) Get(id int) (Queue, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	q, ok := reg.queues[id]
	return q, ok
}

// Remove drops id from the registry without closing its queue; callers
// that already called Close on the queue use this to stop it being found
// by future cancellations.
func (reg *Registry) Remove(id int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.queues, id)
}

// Shutdown closes every registered queue (joining each worker) and empties
// the registry. It must be called before anything touches the stats
// singleton's Reset, and is the Go substitute for the destruction-order
// guarantee C++ gets from static initialization order / atexit.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	qs := make([]Queue, 0, len(reg.queues))
	for id, q := range reg.queues {
		qs = append(qs, q)
		delete(reg.queues, id)
	}
	reg.mu.Unlock()

	for _, q := range qs {
		q.Close()
	}
}
