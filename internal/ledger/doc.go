// Package ledger implements the hash-chained amendment ledger at the core of
// lexledger.
//
// Every appended record carries the SHA-256 of its predecessor, anchored at a
// well-known genesis constant (64 hex zeros), so any retroactive edit or
// deletion of a committed record is detectable by Verify. The chain is linear
// and single-writer; there is no replication, consensus, or Merkle
// compaction.
//
// Two implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, for production use.
package ledger
