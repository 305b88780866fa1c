package store

import (
	"context"
	"time"
)

// Store is a byte store with optional per-entry expiry.
type Store interface {
	// Get returns the stored bytes. A missing or expired key yields
	// ok=false and a nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A ttl of zero keeps the entry until it is
	// deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by the store.
	Clear(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Backend names reported to observability hooks.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendNull   = "null"
)

// BackendOf returns the backend name of s, or "custom" for stores defined
// outside this package.
func BackendOf(s Store) string {
	switch s.(type) {
	case *FileStore:
		return BackendFile
	case *RedisStore:
		return BackendRedis
	case *SQLiteStore:
		return BackendSQLite
	case *NullStore:
		return BackendNull
	default:
		return "custom"
	}
}
