package ledger

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record exists at the requested sequence number.
var ErrNotFound = errors.New("record not found")

// Defect classifies what Verify found wrong with a chain.
type Defect string

const (
	// DefectHashMismatch — a record's stored hash disagrees with recomputation.
	DefectHashMismatch Defect = "hash_mismatch"
	// DefectLinkBroken — a record's prev_hash disagrees with its predecessor's hash.
	DefectLinkBroken Defect = "link_broken"
	// DefectSequenceGap — sequence numbers are not contiguous from zero.
	DefectSequenceGap Defect = "sequence_gap"
	// DefectTimeRegression — a timestamp decreased along the chain.
	DefectTimeRegression Defect = "time_regression"
)

// AppendError wraps a persistence failure during Append. The append did not
// commit and the in-memory head did not advance, so the caller may retry with
// the same payload.
type AppendError struct {
	Seq uint64
	Err error
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("append record %d: %v", e.Seq, e.Err)
}

func (e *AppendError) Unwrap() error { return e.Err }

// OrderingError is returned when a caller-supplied timestamp is earlier than
// the previous record's. A rolled-back clock is itself suspicious, so the
// regression is rejected rather than silently accepted.
type OrderingError struct {
	Seq      uint64
	Supplied time.Time
	Previous time.Time
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("record %d: timestamp %s is earlier than previous record's %s",
		e.Seq, e.Supplied.Format(time.RFC3339Nano), e.Previous.Format(time.RFC3339Nano))
}

// CorruptionError is raised only by VerifyOrFail when the chain is invalid.
// Verify itself reports corruption, it never errors on it, and nothing is
// ever auto-repaired.
type CorruptionError struct {
	Result *VerificationResult
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("ledger corrupted at record %d: %s", e.Result.FirstBadSeq, e.Result.Defect)
}
