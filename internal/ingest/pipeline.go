package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/lexledger/lexledger/internal/ledger"
	"github.com/lexledger/lexledger/internal/tracker/service"
	"go.uber.org/zap"
)

// Report summarises one ingestion run.
type Report struct {
	RunID    uuid.UUID `json:"run_id"`
	ActID    string    `json:"act_id"`
	Parsed   int       `json:"parsed"`
	Appended int       `json:"appended"`
	Errors   []string  `json:"errors,omitempty"`
}

// Pipeline drives XML documents through parsing, summarization, and ledger
// appends.
type Pipeline struct {
	svc    *service.AmendmentService
	logger *zap.Logger
}

// NewPipeline creates an ingestion pipeline on top of the amendment service.
func NewPipeline(svc *service.AmendmentService, logger *zap.Logger) *Pipeline {
	return &Pipeline{svc: svc, logger: logger}
}

// IngestReader parses one document and appends each amendment as its own
// ledger record. A rejected amendment (validation or timestamp ordering) is
// reported and skipped; the rest of the document still lands. A persistence
// failure aborts the run, since later appends would chain onto an
// unconfirmed head.
func (p *Pipeline) IngestReader(ctx context.Context, r io.Reader) (*Report, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:  uuid.New(),
		ActID:  doc.ActID,
		Parsed: len(doc.Amendments),
	}

	for i, entry := range doc.Amendments {
		_, err := p.svc.Submit(ctx, service.SubmitRequest{
			Amendment: entry.Amendment,
			Timestamp: entry.Timestamp,
		})
		if err != nil {
			var appErr *ledger.AppendError
			if errors.As(err, &appErr) {
				return report, fmt.Errorf("amendment %d: %w", i, err)
			}
			report.Errors = append(report.Errors, fmt.Sprintf("amendment %d: %v", i, err))
			continue
		}
		report.Appended++
	}

	p.logger.Info("ingestion run finished",
		zap.String("run_id", report.RunID.String()),
		zap.String("act_id", report.ActID),
		zap.Int("parsed", report.Parsed),
		zap.Int("appended", report.Appended),
		zap.Int("rejected", len(report.Errors)),
	)
	return report, nil
}

// IngestFile ingests a document from disk.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return p.IngestReader(ctx, f)
}
