package aio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpen/foxxll/internal/engine"
)

// waitFakeFile is a minimal File double for exercising WaitAll/CancelAll/
// WaitAny without a real queue: Serve just records and optionally sleeps.
type waitFakeFile struct {
	engine.FileBase
	mu     sync.Mutex
	served []int64
	delay  time.Duration
}

func newWaitFakeFile() *waitFakeFile {
	return &waitFakeFile{FileBase: engine.NewFileBase(1, 1)}
}

func (f *waitFakeFile) Serve(buf []byte, offset, length int64, dir engine.Direction) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.served = append(f.served, offset)
	f.mu.Unlock()
	return nil
}
func (f *waitFakeFile) ARead(buf []byte, offset, length int64, cb engine.CompletionHandler) *Request {
	return nil
}
func (f *waitFakeFile) AWrite(buf []byte, offset, length int64, cb engine.CompletionHandler) *Request {
	return nil
}
func (f *waitFakeFile) SetSize(bytes int64) error { return nil }
func (f *waitFakeFile) Lock() error               { return nil }
func (f *waitFakeFile) CloseRemove() error        { return nil }
func (f *waitFakeFile) IOType() string            { return "wait-fake" }

// complete drives a request through the full completion protocol directly,
// bypassing any queue — these tests exercise WaitAll/CancelAll/WaitAny's
// own logic, not a queue's scheduling.
func complete(r *Request, success bool) {
	r.Complete(success)
}

func TestWaitAllReturnsFirstError(t *testing.T) {
	f := newWaitFakeFile()

	ok := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	bad := engine.NewRequest(f, make([]byte, 1), 1, 1, engine.Read, nil)
	bad.SetError(engine.NewError("test", engine.KindIO, "boom"))

	complete(ok, true)
	complete(bad, false)

	err := WaitAll([]*Request{ok, bad})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindIO))
}

func TestWaitAllSkipsNilAndSucceeds(t *testing.T) {
	f := newWaitFakeFile()
	r := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	complete(r, true)

	assert.NoError(t, WaitAll([]*Request{nil, r, nil}))
}

func TestCancelAllCountsSuccesses(t *testing.T) {
	f := newWaitFakeFile()
	f.delay = 30 * time.Millisecond

	// These requests are never submitted to a queue, so no queue holds
	// them pending and Cancel always fails, whether or not a queue is
	// registered under their queue id -- CancelAll should simply report 0
	// successes without blocking or panicking.
	a := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	b := engine.NewRequest(f, make([]byte, 1), 1, 1, engine.Read, nil)
	complete(a, true)
	complete(b, true)

	n := CancelAll([]*Request{nil, a, b})
	assert.Equal(t, 0, n)
}

func TestWaitAnyReturnsAlreadyCompleteImmediately(t *testing.T) {
	f := newWaitFakeFile()
	r1 := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	r2 := engine.NewRequest(f, make([]byte, 1), 1, 1, engine.Read, nil)
	complete(r1, true)

	won, err := WaitAny([]*Request{r1, r2})
	require.NoError(t, err)
	assert.Same(t, r1, won)
}

func TestWaitAnyBlocksUntilOneCompletes(t *testing.T) {
	f := newWaitFakeFile()
	r1 := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	r2 := engine.NewRequest(f, make([]byte, 1), 1, 1, engine.Read, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		complete(r2, true)
	}()

	won, err := WaitAny([]*Request{r1, r2})
	require.NoError(t, err)
	assert.Same(t, r2, won)

	complete(r1, true)
}
