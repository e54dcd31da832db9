// Package queue implements the per-disk request queues: a single-FIFO
// variant, a two-FIFO read/write-priority variant, a native-async variant
// backed by io_uring, and the process-wide registry that maps queue-id to
// queue and owns ordered teardown. Grounded on
// original_source/foxxll/io/request_queue_impl_1q.cpp and the teacher's
// internal/queue/runner.go goroutine-with-context worker idiom.
package queue

import "github.com/manpen/foxxll/internal/engine"

// Queue is the contract every request-queue variant exposes. AddRequest
// submits a request; CancelRequest attempts to remove a pending request
// before it is served; Close drains the queue and joins its worker(s).
type Queue interface {
	AddRequest(r *engine.Request) error
	CancelRequest(r *engine.Request) bool
	Close()
}
