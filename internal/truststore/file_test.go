package truststore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStoreCreatesWithSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	store, err := NewFileStore(path, "Owner@Example.COM", zap.NewNop())
	require.NoError(t, err)

	ok, err := store.Contains(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())

	// Seed must land on disk, normalized.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com\n", string(data))
}

func TestFileStoreLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	content := "alice@example.com\n\n  Bob@Example.com  \n\ncarol@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store, err := NewFileStore(path, "owner@example.com", zap.NewNop())
	require.NoError(t, err)

	// The file already existed, so the seed is not applied.
	assert.Equal(t, 3, store.Len())

	for _, addr := range []string{"alice@example.com", "bob@example.com", "carol@example.com"} {
		ok, err := store.Contains(context.Background(), addr)
		require.NoError(t, err)
		assert.True(t, ok, addr)
	}

	ok, err := store.Contains(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	store, err := NewFileStore(path, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	ctx := context.Background()
	require.NoError(t, store.Add(ctx, "  Dave@Example.com "))

	ok, err := store.Contains(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	// Adding again is a no-op, on disk too.
	require.NoError(t, store.Add(ctx, "dave@example.com"))
	assert.Equal(t, 1, store.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com\n", string(data))
}

func TestFileStoreAddEmptyAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	store, err := NewFileStore(path, "", zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, store.Add(context.Background(), "   "))
}

func TestFileStoreAddSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	store, err := NewFileStore(path, "owner@example.com", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), "eve@example.com"))

	reloaded, err := NewFileStore(path, "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	ok, err := reloaded.Contains(context.Background(), "eve@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDryRunStoreOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitelist.txt")
	inner, err := NewFileStore(path, "owner@example.com", zap.NewNop())
	require.NoError(t, err)

	dry := NewDryRunStore(inner, zap.NewNop())
	ctx := context.Background()

	// Inner entries are visible through the overlay.
	ok, err := dry.Contains(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	// Adds are visible within the run but never reach the inner store.
	require.NoError(t, dry.Add(ctx, "Frank@Example.com"))
	ok, err = dry.Contains(ctx, "frank@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = inner.Contains(ctx, "frank@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, inner.Len())
}
