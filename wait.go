package aio

import "github.com/manpen/foxxll/internal/primitives"

// WaitAll blocks until every request in reqs has reached READY-TO-DIE,
// then returns the first error encountered (if any) in submission order.
func WaitAll(reqs []*Request) error {
	var firstErr error
	for _, r := range reqs {
		if r == nil {
			continue
		}
		if err := r.Wait(false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CancelAll attempts to cancel every request in reqs and returns the
// number successfully canceled.
func CancelAll(reqs []*Request) int {
	n := 0
	for _, r := range reqs {
		if r == nil {
			continue
		}
		if r.Cancel() {
			n++
		}
	}
	return n
}

// WaitAny blocks until at least one request in reqs reaches READY-TO-DIE
// and returns it. Implemented by registering one OnOffLatch with every
// request and blocking on that single latch — AddWaiter's race-closed
// check means a request that completed before WaitAny was called is
// reported immediately (see original_source's design note on waiter sets).
func WaitAny(reqs []*Request) (*Request, error) {
	latch := primitives.NewOnOffLatch()
	for _, r := range reqs {
		if r == nil {
			continue
		}
		if r.AddWaiter(latch) {
			// Already complete: this request self-fires.
			return r, r.Wait(false)
		}
	}

	latch.WaitForOn()

	for _, r := range reqs {
		if r == nil {
			continue
		}
		if r.Poll() {
			return r, r.Wait(false)
		}
	}
	// Should be unreachable: the latch only turns on from a completion.
	return nil, nil
}
