package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// GenesisHash is the canonical well-known previous-hash of the first record.
// It anchors the chain: record 0 always references this constant rather than
// a computed value or an absent marker.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Record is a single amendment entry in the ledger. Records are immutable
// once appended; only the engine constructs them.
type Record struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"payload"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// computeHash returns the hex-encoded SHA-256 digest of a record's fields.
//
// The digest input frames every field unambiguously: seq and the nanosecond
// timestamp are fixed-width big-endian, the variable-length payload is
// length-prefixed, and the previous hash is fixed-length hex. Two distinct
// field tuples therefore can never produce the same preimage.
func computeHash(seq uint64, ts time.Time, payload []byte, prevHash string) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(ts.UTC().UnixNano()))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(len(payload)))
	h.Write(buf[:])
	h.Write(payload)
	h.Write([]byte(prevHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Recompute derives the record hash from the stored fields. A result that
// differs from r.Hash is tamper evidence.
func (r *Record) Recompute() string {
	return computeHash(r.Seq, r.Timestamp, r.Payload, r.PrevHash)
}

// Equal reports whether two records agree on every field, including the
// derived hash.
func (r *Record) Equal(o *Record) bool {
	return r.Seq == o.Seq &&
		r.Timestamp.Equal(o.Timestamp) &&
		bytes.Equal(r.Payload, o.Payload) &&
		r.PrevHash == o.PrevHash &&
		r.Hash == o.Hash
}

// clone returns a deep copy so callers can never mutate stored state through
// a returned record.
func (r *Record) clone() Record {
	c := *r
	c.Payload = append([]byte(nil), r.Payload...)
	return c
}
