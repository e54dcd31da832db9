package primitives

import "sync"

// OnOffLatch is a two-state latch: On releases every goroutine currently
// blocked in WaitForOn (and any future caller until Off rearms it); Off
// rearms the latch so a subsequent WaitForOn blocks again. Both On and Off
// are idempotent. Grounded on foxxll::onoff_switch, which request waiter
// sets attach to a request and flip exactly once per completion.
type OnOffLatch struct {
	mu  sync.Mutex
	cnd *sync.Cond
	on  bool
}

// NewOnOffLatch returns a latch in the off state.
func NewOnOffLatch() *OnOffLatch {
	l := &OnOffLatch{}
	l.cnd = sync.NewCond(&l.mu)
	return l
}

// On flips the latch on and wakes every waiter.
func (l *OnOffLatch) On() {
	l.mu.Lock()
	l.on = true
	l.mu.Unlock()
	l.cnd.Broadcast()
}

// Off rearms the latch.
func (l *OnOffLatch) Off() {
	l.mu.Lock()
	l.on = false
	l.mu.Unlock()
}

// WaitForOn blocks until the latch is on.
func (l *OnOffLatch) WaitForOn() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for !l.on {
		l.cnd.Wait()
	}
}

// IsOn reports the current state without blocking.
func (l *OnOffLatch) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
