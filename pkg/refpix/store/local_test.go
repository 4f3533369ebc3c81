package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePut(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "remote"))
	require.NoError(t, err)

	body := []byte{0xFF, 0xD8, 0x0D, 0x0A, 0x00, 0x1A, '\n'}
	require.NoError(t, s.Put(context.Background(), Object{Key: "images/products/A1.jpg", Body: body}))

	got, err := os.ReadFile(filepath.Join(s.Root(), "images", "products", "A1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestLocalStorePutOverwrites(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Object{Key: "A1.png", Body: []byte("first version, longer")}))
	require.NoError(t, s.Put(ctx, Object{Key: "A1.png", Body: []byte("second")}))

	got, err := os.ReadFile(filepath.Join(s.Root(), "A1.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLocalStoreRejectsEscapingKey(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = s.Put(context.Background(), Object{Key: "../outside.png", Body: []byte("x")})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestLocalStoreCanceledContext(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, Object{Key: "A1.png"}), context.Canceled)
}
