package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/objgraph/pkg/errors"
)

// backends returns every store that can run in this environment. Redis is
// included only when OBJGRAPH_REDIS_ADDR is set.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	out := make(map[string]Store)

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	out[BackendFile] = fs

	sq, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	out[BackendSQLite] = sq

	if addr := os.Getenv("OBJGRAPH_REDIS_ADDR"); addr != "" {
		rs, err := NewRedisStore(ctx, RedisConfig{
			Addr:   addr,
			Prefix: "objgraph-test:" + uuid.NewString() + ":",
		})
		require.NoError(t, err)
		out[BackendRedis] = rs
	}

	for _, s := range out {
		t.Cleanup(func() {
			_ = s.Clear(context.Background())
			_ = s.Close()
		})
	}
	return out
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.Set(ctx, "a", []byte("alpha"), 0))
			data, ok, err := s.Get(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, []byte("alpha"), data)

			require.NoError(t, s.Set(ctx, "a", []byte("again"), 0))
			data, _, err = s.Get(ctx, "a")
			require.NoError(t, err)
			require.Equal(t, []byte("again"), data)

			require.NoError(t, s.Delete(ctx, "a"))
			require.NoError(t, s.Delete(ctx, "a"), "deleting a missing key")
			_, ok, err = s.Get(ctx, "a")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "short", []byte("x"), time.Millisecond))
			require.NoError(t, s.Set(ctx, "long", []byte("y"), time.Hour))
			time.Sleep(20 * time.Millisecond)

			_, ok, err := s.Get(ctx, "short")
			require.NoError(t, err)
			require.False(t, ok, "expired entry should miss")

			_, ok, err = s.Get(ctx, "long")
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestStoreClear(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, k := range []string{"one", "two", "three"} {
				require.NoError(t, s.Set(ctx, k, []byte(k), 0))
			}
			require.NoError(t, s.Clear(ctx))
			for _, k := range []string{"one", "two", "three"} {
				_, ok, err := s.Get(ctx, k)
				require.NoError(t, err)
				require.False(t, ok, "key %s survived Clear", k)
			}
		})
	}
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, os.WriteFile(s.path("k"), []byte("{broken"), 0o644))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoFileExists(t, s.path("k"))
}

func TestFileStoreClearKeepsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("keep"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keepme"), 0o755))
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	require.NoError(t, s.Clear(ctx))
	require.FileExists(t, notes)
	require.DirExists(t, filepath.Join(dir, "keepme"))
	require.NoFileExists(t, s.path("k"))
}

func TestSQLiteStoreMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(ctx, "k", nil, 0))
	data, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, data)
}

func TestSQLiteStoreClock(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "clock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	var rows int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&rows))
	require.Zero(t, rows, "expired row should be removed on read")
}

func TestRedisClearNeedsPrefix(t *testing.T) {
	s := &RedisStore{}
	err := s.Clear(context.Background())
	require.True(t, errs.Is(err, errs.ErrCodeInvalidInput), "got %v", err)
}
