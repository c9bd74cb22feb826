// Package service orchestrates amendment submission and ledger reads for the
// HTTP and ingestion layers.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lexledger/lexledger/internal/ledger"
	"github.com/lexledger/lexledger/internal/simplify"
	"github.com/lexledger/lexledger/internal/tracker/model"
	"go.uber.org/zap"
)

// SubmitRequest carries one candidate amendment. A zero Timestamp lets the
// engine assign the time.
type SubmitRequest struct {
	Amendment model.Amendment
	Timestamp time.Time
}

// HistoryEntry is one ledger record with its payload decoded for callers.
type HistoryEntry struct {
	Seq       uint64           `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	Hash      string           `json:"hash"`
	PrevHash  string           `json:"prev_hash"`
	Amendment *model.Amendment `json:"amendment"`
}

// AmendmentService validates and summarizes candidate amendments, encodes
// them canonically, and appends them to the ledger.
type AmendmentService struct {
	ledger     *ledger.Ledger
	summarizer simplify.Summarizer
	logger     *zap.Logger
}

// NewAmendmentService creates the service. summarizer may be nil, in which
// case amendments without a supplied summary are stored without one.
func NewAmendmentService(l *ledger.Ledger, summarizer simplify.Summarizer, logger *zap.Logger) *AmendmentService {
	return &AmendmentService{ledger: l, summarizer: summarizer, logger: logger}
}

// Submit validates the amendment, fills a missing summary from the
// summarizer, and appends the canonical payload to the ledger. Ledger errors
// (*ledger.OrderingError, *ledger.AppendError) pass through untouched so
// callers can map them.
func (s *AmendmentService) Submit(ctx context.Context, req SubmitRequest) (*ledger.Record, error) {
	a := req.Amendment
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.Summary == "" && s.summarizer != nil {
		a.Summary = s.summarizer.Simplify(a.Content)
	}

	payload, err := a.EncodePayload()
	if err != nil {
		return nil, err
	}

	rec, err := s.ledger.Append(ctx, payload, req.Timestamp)
	if err != nil {
		return nil, err
	}

	s.logger.Info("amendment appended",
		zap.Uint64("seq", rec.Seq),
		zap.String("act_id", a.ActID),
		zap.String("change_type", string(a.ChangeType)),
		zap.String("hash", rec.Hash),
	)
	return rec, nil
}

// History returns decoded records ordered by sequence number, plus the total
// count for pagination.
func (s *AmendmentService) History(ctx context.Context, offset, limit int) ([]HistoryEntry, int, error) {
	records, err := s.ledger.Records(ctx)
	if err != nil {
		return nil, 0, err
	}

	total := len(records)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	entries := make([]HistoryEntry, 0, end-offset)
	for i := offset; i < end; i++ {
		entry, err := toEntry(&records[i])
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}
	return entries, total, nil
}

// Get returns the decoded record at the given sequence number, or
// ledger.ErrNotFound.
func (s *AmendmentService) Get(ctx context.Context, seq uint64) (*HistoryEntry, error) {
	rec, err := s.ledger.Get(ctx, seq)
	if err != nil {
		return nil, err
	}
	return toEntry(rec)
}

func toEntry(rec *ledger.Record) (*HistoryEntry, error) {
	a, err := model.DecodePayload(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.Seq, err)
	}
	return &HistoryEntry{
		Seq:       rec.Seq,
		Timestamp: rec.Timestamp,
		Hash:      rec.Hash,
		PrevHash:  rec.PrevHash,
		Amendment: a,
	}, nil
}

// Verify runs a full chain verification, or the incremental fast path when
// incremental is true.
func (s *AmendmentService) Verify(ctx context.Context, incremental bool) (*ledger.VerificationResult, error) {
	if incremental {
		return s.ledger.VerifyNew(ctx)
	}
	return s.ledger.Verify(ctx)
}

// Stats reports chain statistics.
func (s *AmendmentService) Stats(ctx context.Context) (ledger.ChainStats, error) {
	return s.ledger.Stats(ctx)
}

// Head exposes the current chain head.
func (s *AmendmentService) Head() (ledger.ChainHead, bool) {
	return s.ledger.Head()
}

// Reset wipes the chain. Administrative operation; the ledger logs the event.
func (s *AmendmentService) Reset(ctx context.Context) error {
	return s.ledger.Reset(ctx)
}
