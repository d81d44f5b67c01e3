package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestLocalBackend_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, backend.Write(ctx, "abc.enc", bytes.NewReader([]byte("container"))))

	exists, err := backend.Exists(ctx, "abc.enc")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := backend.Read(ctx, "abc.enc")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "container", string(data))

	locators, err := backend.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc.enc"}, locators)

	require.NoError(t, backend.Delete(ctx, "abc.enc"))
	_, err = backend.Read(ctx, "abc.enc")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, backend.Delete(ctx, "abc.enc"), ErrObjectNotFound)
}

func TestLocalBackend_FailedWriteLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	backend, err := NewLocalBackend(root)
	require.NoError(t, err)

	boom := errors.New("client went away")
	err = backend.Write(ctx, "partial.enc", &failingReader{data: []byte("half a container"), err: boom})
	require.ErrorIs(t, err, boom)

	exists, err := backend.Exists(ctx, "partial.enc")
	require.NoError(t, err)
	assert.False(t, exists)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed")
}

func TestLocalBackend_CancelledWriteIsNotPublished(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	err = backend.Write(ctx, "cancelled.enc", bytes.NewReader([]byte("data")))
	require.ErrorIs(t, err, context.Canceled)

	exists, err := backend.Exists(context.Background(), "cancelled.enc")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalBackend_RejectsTraversal(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	for _, locator := range []string{"", "../escape", "a/b", ".hidden"} {
		err := backend.Write(context.Background(), locator, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrInvalidLocator, locator)
	}
}

func TestMemoryBackend_NotFound(t *testing.T) {
	backend := NewMemoryBackend()
	_, err := backend.Read(context.Background(), "missing.enc")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	exists, err := backend.Exists(context.Background(), "missing.enc")
	require.NoError(t, err)
	assert.False(t, exists)
}
