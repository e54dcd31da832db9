package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpen/foxxll/internal/engine"
)

// fakeFile is a minimal engine.File for queue tests: Serve just records the
// offset in served and optionally sleeps, with no real backing storage.
type fakeFile struct {
	engine.FileBase
	mu      sync.Mutex
	served  []int64
	failAll bool
	delay   time.Duration
}

func newFakeFile(queueID int) *fakeFile {
	return &fakeFile{FileBase: engine.NewFileBase(queueID, 1)}
}

func (f *fakeFile) Serve(buf []byte, offset int64, length int64, dir engine.Direction) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.served = append(f.served, offset)
	f.mu.Unlock()
	if f.failAll {
		return engine.NewError("fakeFile.Serve", engine.KindIO, "injected failure")
	}
	return nil
}
func (f *fakeFile) ARead(buf []byte, offset, length int64, cb engine.CompletionHandler) *engine.Request {
	return nil
}
func (f *fakeFile) AWrite(buf []byte, offset, length int64, cb engine.CompletionHandler) *engine.Request {
	return nil
}
func (f *fakeFile) SetSize(bytes int64) error { return nil }
func (f *fakeFile) Lock() error                { return nil }
func (f *fakeFile) CloseRemove() error         { return nil }
func (f *fakeFile) IOType() string             { return "fake" }

func (f *fakeFile) servedOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.served))
	copy(out, f.served)
	return out
}

func TestFIFOQueueServesInOrder(t *testing.T) {
	q := NewFIFOQueue(1)
	defer q.Close()

	f := newFakeFile(1)
	var done []*engine.Request
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		r := engine.NewRequest(f, make([]byte, 4), int64(i), 4, engine.Read, func(r *engine.Request, success bool) {
			mu.Lock()
			done = append(done, r)
			mu.Unlock()
			wg.Done()
		})
		require.NoError(t, q.AddRequest(r))
	}
	wg.Wait()

	assert.Equal(t, []int64{0, 1, 2, 3, 4}, f.servedOffsets())
}

func TestFIFOQueueCancelBeforeServe(t *testing.T) {
	q := NewFIFOQueue(1)
	defer q.Close()

	f := newFakeFile(1)
	f.delay = 50 * time.Millisecond

	blocker := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	require.NoError(t, q.AddRequest(blocker))

	canceled := engine.NewRequest(f, make([]byte, 1), 100, 1, engine.Read, nil)
	require.NoError(t, q.AddRequest(canceled))

	assert.True(t, q.CancelRequest(canceled))
	assert.NoError(t, blocker.Wait(false))
	assert.NotContains(t, f.servedOffsets(), int64(100))
}

func TestFIFOQueueCancelAfterServeFails(t *testing.T) {
	q := NewFIFOQueue(1)
	defer q.Close()

	f := newFakeFile(1)
	r := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	require.NoError(t, q.AddRequest(r))
	require.NoError(t, r.Wait(false))

	assert.False(t, q.CancelRequest(r))
}

func TestFIFOQueueCloseDrainsPending(t *testing.T) {
	q := NewFIFOQueue(1)
	f := newFakeFile(1)

	var reqs []*engine.Request
	for i := 0; i < 10; i++ {
		reqs = append(reqs, engine.NewRequest(f, make([]byte, 1), int64(i), 1, engine.Read, nil))
	}
	for _, r := range reqs {
		require.NoError(t, q.AddRequest(r))
	}
	q.Close()

	for _, r := range reqs {
		assert.True(t, r.Poll())
	}
}

func TestFIFOQueueServeFailureSetsError(t *testing.T) {
	q := NewFIFOQueue(1)
	defer q.Close()

	f := newFakeFile(1)
	f.failAll = true
	r := engine.NewRequest(f, make([]byte, 1), 0, 1, engine.Read, nil)
	require.NoError(t, q.AddRequest(r))
	err := r.Wait(false)
	assert.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindIO))
}
