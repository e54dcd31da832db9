package aio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFileMemory(t *testing.T) {
	f, err := CreateFile(DiskConfig{
		IOImpl: "memory",
		Size:   4096,
	})
	require.NoError(t, err)
	defer f.CloseRemove()

	assert.Equal(t, "memory", f.IOType())

	data := []byte("hello")
	require.NoError(t, f.Serve(data, 0, int64(len(data)), Write))
	out := make([]byte, len(data))
	require.NoError(t, f.Serve(out, 0, int64(len(data)), Read))
	assert.Equal(t, data, out)
}

func TestCreateFileSyscallAppliesSizeAndLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")

	f, err := CreateFile(DiskConfig{
		IOImpl: "syscall",
		Path:   path,
		Flags:  Creat | RDWR,
		Size:   8192,
	})
	require.NoError(t, err)
	defer f.CloseRemove()

	assert.Equal(t, "syscall", f.IOType())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8192), info.Size())
}

func TestCreateFileSyscallNoLockSkipsLocking(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")

	f1, err := CreateFile(DiskConfig{
		IOImpl: "syscall",
		Path:   path,
		Flags:  Creat | RDWR | NoLock,
		Size:   4096,
	})
	require.NoError(t, err)
	defer f1.CloseRemove()

	// A second handle with NoLock set must be able to open the same path
	// without contending on the advisory lock.
	f2, err := CreateFile(DiskConfig{
		IOImpl: "syscall",
		Path:   path,
		Flags:  RDWR | NoLock,
	})
	require.NoError(t, err)
	defer f2.CloseRemove()
}

func TestCreateFileUnknownIOImpl(t *testing.T) {
	_, err := CreateFile(DiskConfig{IOImpl: "nonsense"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfiguration))
}

// fileperblockOps mirrors the Discard/Export surface backend.FilePerBlock
// exposes beyond the plain File interface, so this test can drive it
// through CreateFile's returned engine.File without importing
// internal/backend directly.
type fileperblockOps interface {
	Discard(offset, length int64) error
	Export(offset int64, name string) error
}

func TestCreateFileFilePerBlockDiscardAndExport(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "vol")

	f, err := CreateFile(DiskConfig{
		IOImpl: "fileperblock_syscall",
		Path:   prefix,
		Flags:  Creat | RDWR,
	})
	require.NoError(t, err)
	defer f.CloseRemove()

	data := []byte("block-data")
	require.NoError(t, f.Serve(data, 0, int64(len(data)), Write))

	out := make([]byte, len(data))
	require.NoError(t, f.Serve(out, 0, int64(len(data)), Read))
	assert.Equal(t, data, out)

	ops, ok := f.(fileperblockOps)
	require.True(t, ok, "fileperblock_syscall must implement Discard/Export")

	exported := filepath.Join(dir, "exported.blk")
	require.NoError(t, ops.Export(0, exported))
	exportedData, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, data, exportedData)

	// The block was renamed away by Export, so a second block at a fresh
	// offset can still be discarded cleanly.
	require.NoError(t, f.Serve(data, 4096, int64(len(data)), Write))
	require.NoError(t, ops.Discard(4096, int64(len(data))))
}

func TestCreateFileFilePerBlockNoDeleteOnDiscardTruncates(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "vol")

	f, err := CreateFile(DiskConfig{
		IOImpl:            "fileperblock_syscall",
		Path:              prefix,
		Flags:             Creat | RDWR,
		NoDeleteOnDiscard: true,
	})
	require.NoError(t, err)
	defer f.CloseRemove()

	data := []byte("keep-the-file")
	require.NoError(t, f.Serve(data, 0, int64(len(data)), Write))

	ops := f.(fileperblockOps)
	require.NoError(t, ops.Discard(0, int64(len(data))))

	blockPath := prefix + "_fpb_00000000000000000000"
	info, err := os.Stat(blockPath)
	require.NoError(t, err, "truncate-on-discard must keep the file, not delete it")
	assert.Equal(t, int64(0), info.Size())
}

func TestCreateFileMmap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")

	f, err := CreateFile(DiskConfig{
		IOImpl: "mmap",
		Path:   path,
		Flags:  Creat | RDWR,
		Size:   4096,
	})
	require.NoError(t, err)
	defer f.CloseRemove()

	assert.Equal(t, "mmap", f.IOType())
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, f.Serve(data, 0, int64(len(data)), Write))
	out := make([]byte, len(data))
	require.NoError(t, f.Serve(out, 0, int64(len(data)), Read))
	assert.Equal(t, data, out)
}
