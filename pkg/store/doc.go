// Package store keeps encoded trees in a key/value backend.
//
// # Backends
//
// Every backend implements [Store], a byte-level interface with optional
// expiry:
//
//   - [FileStore] writes one file per key under a directory, sharded by
//     the key hash
//   - [RedisStore] keeps entries in Redis with native TTLs
//   - [SQLiteStore] keeps entries in a single SQLite table
//   - [NullStore] stores nothing, for tests and disabled storage
//
// Get reports a miss with ok=false and a nil error. Backend failures are
// returned as errors.
//
// # Keys
//
// A [Keyer] turns snapshot names and tree contents into backend keys.
// [NewScopedKeyer] prefixes every key, which keeps several users or
// projects apart in one shared backend:
//
//	keyer := store.NewScopedKeyer(store.NewDefaultKeyer(), "project:rig:")
//
// # Snapshots
//
// [Snapshots] combines a Store with a marshaller and a codec. Put exports a
// value, encodes the tree and stores it as a [Payload] that remembers its
// format; Get loads, decodes and imports it again:
//
//	snaps := store.NewSnapshots(fs, m, codec.CBOR)
//	if err := snaps.Put(ctx, "scene", scene); err != nil {
//	    return err
//	}
//	v, err := snaps.Get(ctx, "scene")
package store
