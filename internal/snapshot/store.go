package snapshot

import "context"

// Store is the key-value interface the engine persists roster and
// pending snapshots through. Keys are organization identifiers; values
// are opaque serialized session state. No schema beyond that is required
// of an implementation.
type Store interface {
	// Get returns the stored value for key; ok is false when no snapshot
	// exists.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous snapshot.
	Set(ctx context.Context, key string, value []byte) error

	// Clear removes the snapshot for key. Clearing an absent key is not
	// an error.
	Clear(ctx context.Context, key string) error
}
