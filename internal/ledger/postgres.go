package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent record inserts. The value is arbitrary but must be consistent
// across all processes writing to the same database.
const advisoryLockKey = int64(7_214_360_112)

// PostgresStore persists the record sequence to PostgreSQL. It implements
// the Store interface.
//
// The payload is stored as BYTEA and the timestamp as nanoseconds in a
// BIGINT: both round-trip the exact bytes and precision that went into the
// record hash. Re-encoding either (JSON columns, timestamptz's microsecond
// truncation) would make recomputed hashes diverge from stored ones.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// LoadAll implements Store.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, ts_unix_nano, payload, prev_hash, hash
		 FROM amendments ORDER BY seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query amendments: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var nanos int64
		if err := rows.Scan(&rec.Seq, &nanos, &rec.Payload, &rec.PrevHash, &rec.Hash); err != nil {
			return nil, fmt.Errorf("scan amendment row: %w", err)
		}
		rec.Timestamp = time.Unix(0, nanos).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Append implements Store. The insert runs inside a transaction guarded by a
// transaction-scoped advisory lock; the seq primary key rejects any write
// that lost a race for the same slot. An error from Commit means the write
// is unconfirmed, which the engine treats as a failure.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO amendments (seq, ts_unix_nano, payload, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.Seq, rec.Timestamp.UnixNano(), rec.Payload, rec.PrevHash, rec.Hash,
	); err != nil {
		return fmt.Errorf("insert amendment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit amendment: %w", err)
	}

	s.logger.Debug("amendment record persisted",
		zap.Uint64("seq", rec.Seq),
		zap.String("hash", rec.Hash),
	)
	return nil
}

// Reset implements Store.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE amendments"); err != nil {
		return fmt.Errorf("truncate amendments: %w", err)
	}
	return nil
}
