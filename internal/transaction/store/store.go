package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	id, user_id, amount, currency_code, type, name, merchant, description, note,
	category_code, project_code, import_reference, files, extra, issued_at,
	last_matched_at, created_at, updated_at
`

// scanTransaction reads a transaction row from the scanner.
// Column order must match selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var (
		typeStr        string
		name, merchant sql.NullString
		desc, note     sql.NullString
		category       sql.NullString
		project        sql.NullString
		importRef      sql.NullString
		filesJSON      []byte
		extraJSON      []byte
	)

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.CurrencyCode, &typeStr,
		&name, &merchant, &desc, &note,
		&category, &project, &importRef,
		&filesJSON, &extraJSON,
		&tx.IssuedAt, &tx.LastMatchedAt, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Name = name.String
	tx.Merchant = merchant.String
	tx.Description = desc.String
	tx.Note = note.String
	tx.CategoryCode = category.String
	tx.ProjectCode = project.String
	tx.ImportReference = importRef.String

	if len(filesJSON) > 0 {
		if err := json.Unmarshal(filesJSON, &tx.Files); err != nil {
			return nil, fmt.Errorf("decoding files: %w", err)
		}
	}

	if len(extraJSON) > 0 {
		if err := json.Unmarshal(extraJSON, &tx.Extra); err != nil {
			return nil, fmt.Errorf("decoding extra: %w", err)
		}
	}

	return &tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	filesJSON, extraJSON, err := encodeJSONFields(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			user_id, amount, currency_code, type, name, merchant, description, note,
			category_code, project_code, import_reference, files, extra, issued_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		tx.UserID, tx.Amount, tx.CurrencyCode, tx.Type,
		nullable(tx.Name), nullable(tx.Merchant), nullable(tx.Description), nullable(tx.Note),
		nullable(tx.CategoryCode), nullable(tx.ProjectCode), nullable(tx.ImportReference),
		filesJSON, extraJSON, tx.IssuedAt,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE id = $1 AND user_id = $2`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	filesJSON, extraJSON, err := encodeJSONFields(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE transactions
		SET amount = $3, currency_code = $4, type = $5, name = $6, merchant = $7,
			description = $8, note = $9, category_code = $10, project_code = $11,
			import_reference = $12, files = $13, extra = $14, issued_at = $15,
			last_matched_at = $16, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`

	res, err := s.db.ExecContext(ctx, query,
		tx.ID, tx.UserID,
		tx.Amount, tx.CurrencyCode, tx.Type,
		nullable(tx.Name), nullable(tx.Merchant), nullable(tx.Description), nullable(tx.Note),
		nullable(tx.CategoryCode), nullable(tx.ProjectCode), nullable(tx.ImportReference),
		filesJSON, extraJSON, tx.IssuedAt, tx.LastMatchedAt,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	if affected == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func (s *Store) FindByImportReference(ctx context.Context, userID uuid.UUID, ref string) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND import_reference = $2
		ORDER BY created_at DESC
		LIMIT 1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, userID, ref))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("finding by import reference: %w", err)
	}

	return tx, nil
}

func (s *Store) FindByAmountAndDateRange(ctx context.Context, userID uuid.UUID, amount int64, from, to time.Time) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND amount = $2 AND issued_at >= $3 AND issued_at <= $4
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, amount, from, to)
	if err != nil {
		return nil, fmt.Errorf("finding by amount and date range: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func encodeJSONFields(tx *transaction.Transaction) (files, extra []byte, err error) {
	if tx.Files != nil {
		files, err = json.Marshal(tx.Files)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding files: %w", err)
		}
	}

	if tx.Extra != nil {
		extra, err = json.Marshal(tx.Extra)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding extra: %w", err)
		}
	}

	return files, extra, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
