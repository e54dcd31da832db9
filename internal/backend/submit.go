package backend

import (
	"github.com/manpen/foxxll/internal/engine"
	"github.com/manpen/foxxll/internal/queue"
)

// submitViaQueue constructs a Request for f and hands it to the queue
// registered under f.QueueID(), falling back to completing the request
// immediately with a configuration error if no queue is registered — which
// would itself be a factory bug, since CreateFile always registers a queue
// before returning a File.
func submitViaQueue(f engine.File, buf []byte, offset, length int64, dir engine.Direction, cb engine.CompletionHandler) *engine.Request {
	r := engine.NewRequest(f, buf, offset, length, dir, cb)

	q, ok := queue.GetRegistry().Get(f.QueueID())
	if !ok {
		r.SetError(engine.NewError("submitViaQueue", engine.KindConfiguration, "no queue registered for file"))
		r.Complete(false)
		return r
	}
	if err := q.AddRequest(r); err != nil {
		r.SetError(engine.WrapError("submitViaQueue", err))
		r.Complete(false)
	}
	return r
}
