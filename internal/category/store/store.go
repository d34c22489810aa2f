package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/category"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindByName(ctx context.Context, userID uuid.UUID, name string) (*category.Category, error) {
	query := `
		SELECT id, user_id, code, name, created_at
		FROM categories
		WHERE user_id = $1 AND LOWER(name) = LOWER($2)
		LIMIT 1
	`

	var c category.Category

	err := s.db.QueryRowContext(ctx, query, userID, name).
		Scan(&c.ID, &c.UserID, &c.Code, &c.Name, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, category.ErrNotFound
		}

		return nil, fmt.Errorf("finding category: %w", err)
	}

	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *category.Category) error {
	query := `
		INSERT INTO categories (user_id, code, name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, code) DO UPDATE SET name = categories.name
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, c.UserID, c.Code, c.Name).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}
