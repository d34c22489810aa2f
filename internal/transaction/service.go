package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error

	// FindByImportReference returns the transaction carrying the exact
	// import reference, or ErrNotFound.
	FindByImportReference(ctx context.Context, userID uuid.UUID, ref string) (*Transaction, error)

	// FindByAmountAndDateRange returns all transactions with the exact
	// amount whose issue date falls within [from, to], newest first.
	FindByAmountAndDateRange(ctx context.Context, userID uuid.UUID, amount int64, from, to time.Time) ([]*Transaction, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Amount          int64
	CurrencyCode    string
	Type            Type
	Name            string
	Merchant        string
	Description     string
	CategoryCode    string
	ProjectCode     string
	ImportReference string
	IssuedAt        time.Time
	Extra           map[string]string
	Files           []FileRef
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, params CreateParams) (*Transaction, error) {
	tx := &Transaction{
		UserID:          userID,
		Amount:          params.Amount,
		CurrencyCode:    params.CurrencyCode,
		Type:            params.Type,
		Name:            params.Name,
		Merchant:        params.Merchant,
		Description:     params.Description,
		CategoryCode:    params.CategoryCode,
		ProjectCode:     params.ProjectCode,
		ImportReference: params.ImportReference,
		IssuedAt:        params.IssuedAt,
		Extra:           params.Extra,
		Files:           params.Files,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *Service) Update(ctx context.Context, tx *Transaction) error {
	return s.repo.UpdateTransaction(ctx, tx)
}

func (s *Service) FindByImportReference(ctx context.Context, userID uuid.UUID, ref string) (*Transaction, error) {
	return s.repo.FindByImportReference(ctx, userID, ref)
}

func (s *Service) FindByAmountAndDateRange(ctx context.Context, userID uuid.UUID, amount int64, from, to time.Time) ([]*Transaction, error) {
	return s.repo.FindByAmountAndDateRange(ctx, userID, amount, from, to)
}
