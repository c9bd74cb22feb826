package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChainHead identifies the most recently appended record. It is derived
// state, never persisted separately.
type ChainHead struct {
	Seq  uint64 `json:"seq"`
	Hash string `json:"hash"`
}

// VerificationResult is the report produced by Verify.
type VerificationResult struct {
	Valid bool `json:"valid"`
	// FirstBadSeq is the sequence number of the first offending record,
	// or -1 when the chain is valid.
	FirstBadSeq int64  `json:"first_bad_seq"`
	Defect      Defect `json:"defect,omitempty"`
	// Checked is the number of records validated by this run.
	Checked int `json:"checked"`
}

// ChainStats summarises the chain without walking hashes.
type ChainStats struct {
	Count          int           `json:"count"`
	FirstTimestamp time.Time     `json:"first_timestamp,omitzero"`
	LastTimestamp  time.Time     `json:"last_timestamp,omitzero"`
	Span           time.Duration `json:"span_ns"`
	// LastVerifiedSeq is the highest sequence number covered by the most
	// recent fully successful verification, or -1 if none has run.
	LastVerifiedSeq int64 `json:"last_verified_seq"`
}

// Ledger is the append/verify engine. It owns the chain head explicitly;
// there is no process-wide singleton. Append is serialised by an exclusive
// lock so two concurrent appends can never observe the same head.
type Ledger struct {
	store  Store
	logger *zap.Logger

	mu           sync.RWMutex
	count        uint64
	head         ChainHead // meaningful only when count > 0
	lastTS       time.Time
	lastVerified int64
}

// Open loads the stored record sequence to establish the chain head and
// returns a ready engine. An empty store yields an empty, valid ledger.
func Open(ctx context.Context, store Store, logger *zap.Logger) (*Ledger, error) {
	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	l := &Ledger{store: store, logger: logger, lastVerified: -1}
	if n := len(records); n > 0 {
		last := records[n-1]
		l.count = uint64(n)
		l.head = ChainHead{Seq: last.Seq, Hash: last.Hash}
		l.lastTS = last.Timestamp
	}
	return l, nil
}

// Append creates the next record chained to the current head and persists it.
// The payload is treated as opaque canonical bytes supplied by the caller.
//
// A zero ts asks the engine to assign the time itself; the assigned value is
// clamped so the chain's timestamps never regress even if the local clock
// does. A caller-supplied ts earlier than the previous record's fails with
// *OrderingError. Persistence failure fails with *AppendError and leaves the
// ledger exactly as if the append had never been attempted.
func (l *Ledger) Append(ctx context.Context, payload []byte, ts time.Time) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var seq uint64
	prevHash := GenesisHash
	if l.count > 0 {
		seq = l.head.Seq + 1
		prevHash = l.head.Hash
	}

	if ts.IsZero() {
		ts = time.Now().UTC()
		if l.count > 0 && ts.Before(l.lastTS) {
			ts = l.lastTS
		}
	} else {
		ts = ts.UTC()
		if l.count > 0 && ts.Before(l.lastTS) {
			return nil, &OrderingError{Seq: seq, Supplied: ts, Previous: l.lastTS}
		}
	}

	rec := Record{
		Seq:       seq,
		Timestamp: ts,
		Payload:   append([]byte(nil), payload...),
		PrevHash:  prevHash,
	}
	rec.Hash = computeHash(rec.Seq, rec.Timestamp, rec.Payload, rec.PrevHash)

	if err := l.store.Append(ctx, rec); err != nil {
		return nil, &AppendError{Seq: seq, Err: err}
	}

	// Committed: advance the head under the same critical section.
	l.head = ChainHead{Seq: rec.Seq, Hash: rec.Hash}
	l.count++
	l.lastTS = rec.Timestamp

	out := rec.clone()
	return &out, nil
}

// Verify walks the full sequence from record 0, recomputing every hash and
// checking links, sequence continuity, and timestamp monotonicity. It is a
// pure read: stored records are never mutated, even when corruption is found.
// On full success the incremental-verification marker advances.
func (l *Ledger) Verify(ctx context.Context) (*VerificationResult, error) {
	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	res := verifyRange(records, 0, GenesisHash, time.Time{})
	if res.Valid && len(records) > 0 {
		l.mu.Lock()
		l.lastVerified = int64(records[len(records)-1].Seq)
		l.mu.Unlock()
	}
	return res, nil
}

// VerifyNew re-validates only the records appended since the last fully
// successful Verify. It is a fast path for long chains, not a substitute for
// full verification when tampering is suspected: the already-verified prefix
// is trusted as-is.
func (l *Ledger) VerifyNew(ctx context.Context) (*VerificationResult, error) {
	l.mu.RLock()
	from := l.lastVerified
	l.mu.RUnlock()

	if from < 0 {
		return l.Verify(ctx)
	}

	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	// Gapless numbering puts seq N at index N. If the prefix shrank or
	// shifted, fall back to a full walk.
	idx := int(from)
	if idx >= len(records) || records[idx].Seq != uint64(from) {
		return l.Verify(ctx)
	}

	pred := records[idx]
	res := verifyRange(records[idx+1:], pred.Seq+1, pred.Hash, pred.Timestamp)
	if res.Valid && len(records) > 0 {
		l.mu.Lock()
		if tip := int64(records[len(records)-1].Seq); tip > l.lastVerified {
			l.lastVerified = tip
		}
		l.mu.Unlock()
	}
	return res, nil
}

// verifyRange validates records expecting the first to carry wantSeq and
// wantPrev. A zero minTS disables the regression check for the first record.
func verifyRange(records []Record, wantSeq uint64, wantPrev string, minTS time.Time) *VerificationResult {
	for i := range records {
		r := &records[i]
		switch {
		case r.Seq != wantSeq:
			return invalid(r.Seq, DefectSequenceGap, i)
		case r.PrevHash != wantPrev:
			return invalid(r.Seq, DefectLinkBroken, i)
		case r.Recompute() != r.Hash:
			return invalid(r.Seq, DefectHashMismatch, i)
		case !minTS.IsZero() && r.Timestamp.Before(minTS):
			return invalid(r.Seq, DefectTimeRegression, i)
		}
		wantSeq = r.Seq + 1
		wantPrev = r.Hash
		minTS = r.Timestamp
	}
	return &VerificationResult{Valid: true, FirstBadSeq: -1, Checked: len(records)}
}

func invalid(seq uint64, d Defect, checked int) *VerificationResult {
	return &VerificationResult{Valid: false, FirstBadSeq: int64(seq), Defect: d, Checked: checked}
}

// VerifyOrFail is a convenience wrapper that turns an invalid chain into a
// *CorruptionError. Remediation stays an administrative concern; nothing is
// repaired here.
func (l *Ledger) VerifyOrFail(ctx context.Context) error {
	res, err := l.Verify(ctx)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &CorruptionError{Result: res}
	}
	return nil
}

// Stats reports the record count and the time span between the first and
// last records. An empty ledger reports zero count and zero span.
func (l *Ledger) Stats(ctx context.Context) (ChainStats, error) {
	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return ChainStats{}, fmt.Errorf("load ledger: %w", err)
	}

	l.mu.RLock()
	s := ChainStats{Count: len(records), LastVerifiedSeq: l.lastVerified}
	l.mu.RUnlock()

	if len(records) > 0 {
		s.FirstTimestamp = records[0].Timestamp
		s.LastTimestamp = records[len(records)-1].Timestamp
		s.Span = s.LastTimestamp.Sub(s.FirstTimestamp)
	}
	return s, nil
}

// Head returns the chain head. The second return is false when the ledger is
// empty.
func (l *Ledger) Head() (ChainHead, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.count == 0 {
		return ChainHead{}, false
	}
	return l.head, true
}

// Records returns a snapshot of the full record sequence.
func (l *Ledger) Records(ctx context.Context) ([]Record, error) {
	return l.store.LoadAll(ctx)
}

// Get returns the record at the given sequence number, or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, seq uint64) (*Record, error) {
	records, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	// Compare in uint64 space: converting an out-of-range seq to int first
	// would wrap negative and index out of bounds.
	if seq >= uint64(len(records)) || records[seq].Seq != seq {
		return nil, ErrNotFound
	}
	rec := records[seq].clone()
	return &rec, nil
}

// Reset discards the entire chain. This is a deliberate administrative
// operation outside normal flow; it is logged with a unique event id so the
// wipe is distinguishable in the audit trail rather than silent.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}

	l.logger.Warn("ledger reset — all records discarded",
		zap.String("event_id", uuid.NewString()),
		zap.Uint64("discarded_records", l.count),
		zap.String("previous_head", l.head.Hash),
	)

	l.count = 0
	l.head = ChainHead{}
	l.lastTS = time.Time{}
	l.lastVerified = -1
	return nil
}
