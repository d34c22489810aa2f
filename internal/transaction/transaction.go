package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("transaction not found")

// Type represents the direction of a transaction.
type Type string

const (
	TypeExpense Type = "expense"
	TypeIncome  Type = "income"
	TypeOther   Type = "other"
)

// FileRef points at an attachment held by the external file store.
type FileRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Transaction is a stored financial transaction, always scoped to a user.
// Amount is in minor currency units (cents); matching compares amounts with
// integer equality, never floats.
type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Amount          int64
	CurrencyCode    string
	Type            Type
	Name            string
	Merchant        string
	Description     string
	Note            string
	CategoryCode    string
	ProjectCode     string
	ImportReference string
	Files           []FileRef
	Extra           map[string]string
	IssuedAt        time.Time
	LastMatchedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}
