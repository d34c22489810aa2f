package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importbatch"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectBatchColumns = `
	id, user_id, filename, content_hash, status, total_rows,
	matched_count, created_count, skipped_count, error_count,
	metadata, completed_at, created_at
`

func scanBatch(s scanner) (*importbatch.Batch, error) {
	var b importbatch.Batch

	var (
		statusStr    string
		contentHash  sql.NullString
		metadataJSON []byte
	)

	if err := s.Scan(
		&b.ID, &b.UserID, &b.Filename, &contentHash, &statusStr, &b.TotalRows,
		&b.MatchedCount, &b.CreatedCount, &b.SkippedCount, &b.ErrorCount,
		&metadataJSON, &b.CompletedAt, &b.CreatedAt,
	); err != nil {
		return nil, err
	}

	b.Status = importbatch.BatchStatus(statusStr)
	b.ContentHash = contentHash.String

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &b.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}

	return &b, nil
}

func (s *Store) CreateBatch(ctx context.Context, b *importbatch.Batch) error {
	metadataJSON, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	query := `
		INSERT INTO import_batches (
			user_id, filename, content_hash, status, total_rows, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		b.UserID, b.Filename, nullable(b.ContentHash), b.Status, b.TotalRows, metadataJSON,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating batch: %w", err)
	}

	return nil
}

func (s *Store) GetBatch(ctx context.Context, userID, id uuid.UUID) (*importbatch.Batch, error) {
	query := `SELECT ` + selectBatchColumns + `
		FROM import_batches
		WHERE id = $1 AND user_id = $2`

	b, err := scanBatch(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, importbatch.ErrBatchNotFound
		}

		return nil, fmt.Errorf("getting batch: %w", err)
	}

	return b, nil
}

func (s *Store) FindBatchByContentHash(ctx context.Context, userID uuid.UUID, hash string) (*importbatch.Batch, error) {
	query := `SELECT ` + selectBatchColumns + `
		FROM import_batches
		WHERE user_id = $1 AND content_hash = $2
		ORDER BY created_at DESC
		LIMIT 1`

	b, err := scanBatch(s.db.QueryRowContext(ctx, query, userID, hash))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, importbatch.ErrBatchNotFound
		}

		return nil, fmt.Errorf("finding batch by hash: %w", err)
	}

	return b, nil
}

func (s *Store) FinalizeBatch(ctx context.Context, batchID uuid.UUID, status importbatch.BatchStatus, completedAt time.Time) error {
	query := `
		UPDATE import_batches
		SET status = $2, completed_at = $3
		WHERE id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, batchID, status, completedAt); err != nil {
		return fmt.Errorf("finalizing batch: %w", err)
	}

	return nil
}

// counterColumns whitelists the counter column names; Counter values come
// from within the package but the query is assembled by string
// concatenation, so keep the check anyway.
var counterColumns = map[importbatch.Counter]bool{
	importbatch.CounterMatched: true,
	importbatch.CounterCreated: true,
	importbatch.CounterSkipped: true,
	importbatch.CounterError:   true,
}

func (s *Store) IncrementCounter(ctx context.Context, batchID uuid.UUID, counter importbatch.Counter) error {
	if !counterColumns[counter] {
		return fmt.Errorf("unknown counter %q", counter)
	}

	// Single-statement increment keeps counters atomic under concurrency.
	query := fmt.Sprintf(`UPDATE import_batches SET %s = %s + 1 WHERE id = $1`, counter, counter)

	if _, err := s.db.ExecContext(ctx, query, batchID); err != nil {
		return fmt.Errorf("incrementing %s: %w", counter, err)
	}

	return nil
}

func (s *Store) CreateRow(ctx context.Context, r *importbatch.Row) error {
	rawJSON, err := json.Marshal(r.RawData)
	if err != nil {
		return fmt.Errorf("encoding raw data: %w", err)
	}

	var parsedJSON []byte
	if r.ParsedData != nil {
		parsedJSON, err = json.Marshal(r.ParsedData)
		if err != nil {
			return fmt.Errorf("encoding parsed data: %w", err)
		}
	}

	query := `
		INSERT INTO import_rows (
			batch_id, row_number, raw_data, parsed_data, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		r.BatchID, r.RowNumber, rawJSON, parsedJSON, r.Status,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating row: %w", err)
	}

	return nil
}

func (s *Store) UpdateRowOutcome(ctx context.Context, rowID uuid.UUID, status importbatch.RowStatus, transactionID *uuid.UUID, errorMessage string) error {
	// Terminal statuses are never revisited: only a pending row can settle.
	query := `
		UPDATE import_rows
		SET status = $2, transaction_id = $3, error_message = $4
		WHERE id = $1 AND status = $5
	`

	res, err := s.db.ExecContext(ctx, query, rowID, status, transactionID, nullable(errorMessage), importbatch.RowPending)
	if err != nil {
		return fmt.Errorf("updating row outcome: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating row outcome: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("row %s is not pending", rowID)
	}

	return nil
}

func (s *Store) ListRows(ctx context.Context, batchID uuid.UUID) ([]*importbatch.Row, error) {
	query := `
		SELECT id, batch_id, row_number, raw_data, parsed_data, status,
			error_message, transaction_id, created_at
		FROM import_rows
		WHERE batch_id = $1
		ORDER BY row_number ASC
	`

	rows, err := s.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("listing rows: %w", err)
	}
	defer rows.Close()

	var out []*importbatch.Row

	for rows.Next() {
		var r importbatch.Row

		var (
			rawJSON    []byte
			parsedJSON []byte
			statusStr  string
			errMsg     sql.NullString
		)

		if err := rows.Scan(
			&r.ID, &r.BatchID, &r.RowNumber, &rawJSON, &parsedJSON,
			&statusStr, &errMsg, &r.TransactionID, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Status = importbatch.RowStatus(statusStr)
		r.ErrorMessage = errMsg.String

		if len(rawJSON) > 0 {
			if err := json.Unmarshal(rawJSON, &r.RawData); err != nil {
				return nil, fmt.Errorf("decoding raw data: %w", err)
			}
		}

		if len(parsedJSON) > 0 {
			r.ParsedData = &importer.Candidate{}
			if err := json.Unmarshal(parsedJSON, r.ParsedData); err != nil {
				return nil, fmt.Errorf("decoding parsed data: %w", err)
			}
		}

		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return out, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
