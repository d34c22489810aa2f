package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectMatchColumns = `
	id, user_id, batch_id, row_id, transaction_id, confidence, matched_amount,
	matched_date, existing_date, days_difference, status, csv_data,
	merged_fields, reviewed_by, reviewed_at, created_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(s scanner) (*matching.Match, error) {
	var m matching.Match

	var (
		statusStr  string
		csvJSON    []byte
		mergedJSON []byte
	)

	if err := s.Scan(
		&m.ID, &m.UserID, &m.BatchID, &m.RowID, &m.TransactionID,
		&m.Confidence, &m.MatchedAmount, &m.MatchedDate, &m.ExistingDate,
		&m.DaysDifference, &statusStr, &csvJSON, &mergedJSON,
		&m.ReviewedBy, &m.ReviewedAt, &m.CreatedAt,
	); err != nil {
		return nil, err
	}

	m.Status = matching.Status(statusStr)

	if len(csvJSON) > 0 {
		if err := json.Unmarshal(csvJSON, &m.CSVData); err != nil {
			return nil, fmt.Errorf("decoding csv data: %w", err)
		}
	}

	if len(mergedJSON) > 0 {
		if err := json.Unmarshal(mergedJSON, &m.MergedFields); err != nil {
			return nil, fmt.Errorf("decoding merged fields: %w", err)
		}
	}

	return &m, nil
}

func (s *Store) CreateMatch(ctx context.Context, m *matching.Match) error {
	csvJSON, err := json.Marshal(m.CSVData)
	if err != nil {
		return fmt.Errorf("encoding csv data: %w", err)
	}

	var mergedJSON []byte
	if m.MergedFields != nil {
		mergedJSON, err = json.Marshal(m.MergedFields)
		if err != nil {
			return fmt.Errorf("encoding merged fields: %w", err)
		}
	}

	// The unique index on (transaction_id, batch_id) backs the
	// already-matched-in-batch invariant at the store level.
	query := `
		INSERT INTO transaction_matches (
			user_id, batch_id, row_id, transaction_id, confidence,
			matched_amount, matched_date, existing_date, days_difference,
			status, csv_data, merged_fields, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		m.UserID, m.BatchID, m.RowID, m.TransactionID, m.Confidence,
		m.MatchedAmount, m.MatchedDate, m.ExistingDate, m.DaysDifference,
		m.Status, csvJSON, mergedJSON,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating match: %w", err)
	}

	return nil
}

func (s *Store) GetMatch(ctx context.Context, userID, id uuid.UUID) (*matching.Match, error) {
	query := `SELECT ` + selectMatchColumns + `
		FROM transaction_matches
		WHERE id = $1 AND user_id = $2`

	m, err := scanMatch(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, matching.ErrMatchNotFound
		}

		return nil, fmt.Errorf("getting match: %w", err)
	}

	return m, nil
}

func (s *Store) UpdateReview(ctx context.Context, m *matching.Match) error {
	var mergedJSON []byte

	if m.MergedFields != nil {
		var err error

		mergedJSON, err = json.Marshal(m.MergedFields)
		if err != nil {
			return fmt.Errorf("encoding merged fields: %w", err)
		}
	}

	query := `
		UPDATE transaction_matches
		SET status = $3, merged_fields = $4, reviewed_by = $5, reviewed_at = $6
		WHERE id = $1 AND user_id = $2
	`

	res, err := s.db.ExecContext(ctx, query,
		m.ID, m.UserID, m.Status, mergedJSON, m.ReviewedBy, m.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("updating match review: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating match review: %w", err)
	}

	if affected == 0 {
		return matching.ErrMatchNotFound
	}

	return nil
}

func (s *Store) ExistsForTransactionInBatch(ctx context.Context, transactionID, batchID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transaction_matches
			WHERE transaction_id = $1 AND batch_id = $2
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, transactionID, batchID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking batch match: %w", err)
	}

	return exists, nil
}

func (s *Store) ListFlagged(ctx context.Context, userID uuid.UUID, batchID *uuid.UUID) ([]*matching.Match, error) {
	query := `SELECT ` + selectMatchColumns + `
		FROM transaction_matches
		WHERE user_id = $1 AND status = $2`

	args := []any{userID, matching.StatusFlagged}

	if batchID != nil {
		query += ` AND batch_id = $3`

		args = append(args, *batchID)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing flagged matches: %w", err)
	}
	defer rows.Close()

	var matches []*matching.Match

	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	return matches, nil
}
