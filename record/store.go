package record

import "context"

// Store abstracts a persistence back-end for readings. The primary
// implementation is the append-only text FileStore; SQLite provides an
// optional queryable mirror beside it.
type Store interface {
	// Append persists one reading. The implementation must guarantee
	// the reading is durable before returning, and must never leave a
	// partially written record visible to later readers.
	Append(ctx context.Context, r Reading) error

	// Close releases any resources (file handles, DB connections).
	Close() error
}
