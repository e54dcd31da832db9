package backend

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpen/foxxll/internal/engine"
)

func TestMemorySizeAndRoundTrip(t *testing.T) {
	m := NewMemory(1, 1, 1024)

	data := []byte("hello, foxxll")
	require.NoError(t, m.Serve(data, 0, int64(len(data)), engine.Write))

	out := make([]byte, len(data))
	require.NoError(t, m.Serve(out, 0, int64(len(data)), engine.Read))
	assert.Equal(t, data, out)
}

func TestMemoryOutOfBounds(t *testing.T) {
	m := NewMemory(1, 1, 16)
	buf := make([]byte, 32)
	err := m.Serve(buf, 0, 32, engine.Read)
	assert.Error(t, err)
	assert.True(t, engine.IsKind(err, engine.KindInvalidArgument))
}

func TestMemorySetSizeGrowsAndPreservesPrefix(t *testing.T) {
	m := NewMemory(1, 1, 16)
	data := []byte("0123456789012345")
	require.NoError(t, m.Serve(data, 0, 16, engine.Write))

	require.NoError(t, m.SetSize(32))
	out := make([]byte, 16)
	require.NoError(t, m.Serve(out, 0, 16, engine.Read))
	assert.Equal(t, data, out)
}

func TestMemoryConcurrentShardedAccess(t *testing.T) {
	const size = 4 * memoryShardSize
	m := NewMemory(1, 1, size)

	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			buf := make([]byte, 128)
			for j := 0; j < 50; j++ {
				off := int64((i*50 + j) % (size - 128))
				_ = m.Serve(buf, off, 128, engine.Write)
				_ = m.Serve(buf, off, 128, engine.Read)
			}
		}(i)
	}
	for i := 0; i < 16; i++ {
		<-done
	}
}

func TestMemoryIOTypeAndLock(t *testing.T) {
	m := NewMemory(1, 1, 16)
	assert.Equal(t, "memory", m.IOType())
	assert.NoError(t, m.Lock())
}

func BenchmarkMemorySequentialReadWrite(b *testing.B) {
	const size = 64 << 20
	m := NewMemory(1, 1, size)
	data := make([]byte, 4096)
	rand.Read(data)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	var off int64
	for i := 0; i < b.N; i++ {
		_ = m.Serve(data, off, int64(len(data)), engine.Write)
		off = (off + int64(len(data))) % (size - int64(len(data)))
	}
}
