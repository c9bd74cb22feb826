package ledger

import "context"

// Store is the persistence contract the engine appends through. The storage
// format is opaque to the engine, but implementations must return the exact
// byte values that went into hash computation — any re-encoding that changes
// the payload bytes would break verification.
type Store interface {
	// LoadAll returns the full record sequence ordered by Seq.
	// Empty on first use.
	LoadAll(ctx context.Context) ([]Record, error)

	// Append durably writes one record. A write that cannot be confirmed
	// must be reported as an error; the engine treats it as a failure and
	// does not advance its head.
	Append(ctx context.Context, rec Record) error

	// Reset discards all records. Administrative use only.
	Reset(ctx context.Context) error
}
