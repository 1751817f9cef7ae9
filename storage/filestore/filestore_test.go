package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/c360/drugscout/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	return store, dir
}

func TestStore_PutGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "abc123", []byte(`{"payload":"value"}`)))

	data, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, `{"payload":"value"}`, string(data))
}

func TestStore_GetMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestStore_Overwrite(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", []byte("first")))
	require.NoError(t, store.Put(ctx, "key", []byte("second")))

	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestStore_List(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"bb", "aa", "ab", "zz"} {
		require.NoError(t, store.Put(ctx, key, []byte("x")))
	}

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "ab", "bb", "zz"}, keys, "keys should come back in lexicographic order")

	keys, err = store.List(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "ab"}, keys)

	keys, err = store.List(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_ListIgnoresForeignFiles(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "real", []byte("x")))
	// A stray file without the entry suffix is not a cache entry.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("notes"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "subdir"), 0755))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, keys)
}

func TestStore_DeleteIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "key", []byte("x")))
	require.NoError(t, store.Delete(ctx, "key"))

	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)

	// Deleting again is not an error.
	require.NoError(t, store.Delete(ctx, "key"))
}

func TestStore_RejectsUnsafeKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "a/b", `a\b`, "../escape", "a..b"} {
		t.Run(fmt.Sprintf("key=%q", key), func(t *testing.T) {
			assert.ErrorIs(t, store.Put(ctx, key, []byte("x")), errors.ErrInvalidKey)

			_, err := store.Get(ctx, key)
			assert.ErrorIs(t, err, errors.ErrInvalidKey)

			assert.ErrorIs(t, store.Delete(ctx, key), errors.ErrInvalidKey)
		})
	}
}

func TestStore_SharedDirectory(t *testing.T) {
	// Two stores over the same directory model two processes sharing the
	// durable tier.
	dir := t.TempDir()
	ctx := context.Background()

	writer, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	reader, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	require.NoError(t, writer.Put(ctx, "shared", []byte("payload")))

	data, err := reader.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestStore_ConcurrentPuts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n)
			assert.NoError(t, store.Put(ctx, key, []byte(key)))
		}(i)
	}
	wg.Wait()

	keys, err := store.List(ctx, "key")
	require.NoError(t, err)
	assert.Len(t, keys, 10)
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.NoError(t, Config{BaseDir: "/tmp/anywhere"}.Validate())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotEmpty(t, cfg.BaseDir)
	assert.NoError(t, cfg.Validate())
}
