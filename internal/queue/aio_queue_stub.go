//go:build !linux

package queue

import "github.com/manpen/foxxll/internal/engine"

// AIOQueue is unavailable outside Linux: io_uring is a Linux-only kernel
// interface. NewAIOQueue always fails on other platforms; callers
// requesting "linuxaio" elsewhere should fall back to a FIFO or priority
// queue over the syscall backend instead.
type AIOQueue struct{}

func NewAIOQueue(id int, entries uint32) (*AIOQueue, error) {
	return nil, engine.NewError("NewAIOQueue", engine.KindConfiguration, "native-async queue requires linux")
}

func (q *AIOQueue) AddRequest(r *engine.Request) error { return nil }
func (q *AIOQueue) CancelRequest(r *engine.Request) bool { return false }
func (q *AIOQueue) Close() {}
