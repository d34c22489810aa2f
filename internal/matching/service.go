package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/audit"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

// Repository persists match decisions.
type Repository interface {
	CreateMatch(ctx context.Context, m *Match) error
	GetMatch(ctx context.Context, userID, id uuid.UUID) (*Match, error)
	UpdateReview(ctx context.Context, m *Match) error

	// ExistsForTransactionInBatch reports whether the transaction already
	// has a match recorded within the batch.
	ExistsForTransactionInBatch(ctx context.Context, transactionID, batchID uuid.UUID) (bool, error)

	// ListFlagged returns matches awaiting review, optionally scoped to one
	// batch, newest first.
	ListFlagged(ctx context.Context, userID uuid.UUID, batchID *uuid.UUID) ([]*Match, error)
}

// TransactionStore is the slice of the transaction service the matcher needs.
type TransactionStore interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*transaction.Transaction, error)
	Update(ctx context.Context, tx *transaction.Transaction) error
	FindByImportReference(ctx context.Context, userID uuid.UUID, ref string) (*transaction.Transaction, error)
	FindByAmountAndDateRange(ctx context.Context, userID uuid.UUID, amount int64, from, to time.Time) ([]*transaction.Transaction, error)
}

type Service struct {
	repo    Repository
	txStore TransactionStore
	audit   audit.Emitter
}

func NewService(repo Repository, txStore TransactionStore, auditor audit.Emitter) *Service {
	return &Service{repo: repo, txStore: txStore, audit: auditor}
}

// RankedMatch is one finder result, best first.
type RankedMatch struct {
	Transaction *transaction.Transaction
	Confidence  int
}

// FindMatches returns stored transactions that could be the candidate,
// ranked by confidence. An exact import-reference hit is definitive: it is
// returned alone at confidence 100 and amount/date scoring is skipped
// entirely. Without a reference the store is queried for the exact amount
// within a ±3 day window; ties on confidence go to the most recently created
// transaction.
func (s *Service) FindMatches(ctx context.Context, userID uuid.UUID, c *importer.Candidate) ([]RankedMatch, error) {
	if c.ImportReference != "" {
		tx, err := s.txStore.FindByImportReference(ctx, userID, c.ImportReference)
		if err != nil && !errors.Is(err, transaction.ErrNotFound) {
			return nil, fmt.Errorf("finding by reference: %w", err)
		}

		if tx != nil {
			return []RankedMatch{{Transaction: tx, Confidence: 100}}, nil
		}
	}

	if !c.HasAmountAndDate() {
		return nil, nil
	}

	from := c.IssuedAt.AddDate(0, 0, -matchWindowDays)
	to := c.IssuedAt.AddDate(0, 0, matchWindowDays)

	txs, err := s.txStore.FindByAmountAndDateRange(ctx, userID, c.Total, from, to)
	if err != nil {
		return nil, fmt.Errorf("finding by amount and date: %w", err)
	}

	ranked := make([]RankedMatch, 0, len(txs))

	for _, tx := range txs {
		confidence := Score(c.Total, c.IssuedAt, tx.Amount, tx.IssuedAt)
		if confidence == 0 {
			continue
		}

		ranked = append(ranked, RankedMatch{Transaction: tx, Confidence: confidence})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}

		return ranked[i].Transaction.CreatedAt.After(ranked[j].Transaction.CreatedAt)
	})

	return ranked, nil
}

// FindBestMatch returns the top-ranked match, or nil when nothing matches.
func (s *Service) FindBestMatch(ctx context.Context, userID uuid.UUID, c *importer.Candidate) (*RankedMatch, error) {
	ranked, err := s.FindMatches(ctx, userID, c)
	if err != nil {
		return nil, err
	}

	if len(ranked) == 0 {
		return nil, nil
	}

	return &ranked[0], nil
}

// IsAlreadyMatchedInBatch reports whether a transaction has already been
// claimed by another row of the same batch. Duplicate rows in one file must
// not fan out into multiple merges against the same record.
func (s *Service) IsAlreadyMatchedInBatch(ctx context.Context, transactionID, batchID uuid.UUID) (bool, error) {
	return s.repo.ExistsForTransactionInBatch(ctx, transactionID, batchID)
}

// AutoMerge validates and applies the merge, records the auto_merged match
// and emits a csv_merge audit event when any field actually changed. The
// validator error is returned untouched so callers can fall back to creating
// a fresh transaction.
func (s *Service) AutoMerge(ctx context.Context, userID uuid.UUID, batchID, rowID uuid.UUID, tx *transaction.Transaction, c *importer.Candidate, confidence int) (*Match, error) {
	if err := ValidateMerge(tx, c); err != nil {
		return nil, err
	}

	now := time.Now()
	mergedFields := Merge(tx, c, now)

	if err := s.txStore.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("updating merged transaction: %w", err)
	}

	m := s.newMatch(userID, batchID, rowID, tx, c, confidence)
	m.Status = StatusAutoMerged
	m.MergedFields = mergedFields

	if err := s.repo.CreateMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("recording match: %w", err)
	}

	if len(mergedFields) > 0 {
		s.audit.Emit(ctx, audit.Event{
			TransactionID: tx.ID,
			UserID:        userID,
			Action:        audit.ActionCSVMerge,
			Fields:        mergedFields,
			At:            now,
		})
	}

	return m, nil
}

// Flag records a below-threshold match for human review. The stored
// transaction is not touched.
func (s *Service) Flag(ctx context.Context, userID uuid.UUID, batchID, rowID uuid.UUID, tx *transaction.Transaction, c *importer.Candidate, confidence int) (*Match, error) {
	m := s.newMatch(userID, batchID, rowID, tx, c, confidence)
	m.Status = StatusFlagged

	if err := s.repo.CreateMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("recording flagged match: %w", err)
	}

	return m, nil
}

func (s *Service) newMatch(userID, batchID, rowID uuid.UUID, tx *transaction.Transaction, c *importer.Candidate, confidence int) *Match {
	return &Match{
		UserID:         userID,
		BatchID:        batchID,
		RowID:          rowID,
		TransactionID:  tx.ID,
		Confidence:     confidence,
		MatchedAmount:  c.Total,
		MatchedDate:    c.IssuedAt,
		ExistingDate:   tx.IssuedAt,
		DaysDifference: DaysBetween(c.IssuedAt, tx.IssuedAt),
		CSVData:        *c,
	}
}

// ListFlagged feeds the review queue.
func (s *Service) ListFlagged(ctx context.Context, userID uuid.UUID, batchID *uuid.UUID) ([]*Match, error) {
	return s.repo.ListFlagged(ctx, userID, batchID)
}

// Approve applies a flagged match the way AutoMerge would have, transitions
// it to reviewed_merged and returns the fields that changed.
func (s *Service) Approve(ctx context.Context, userID, matchID uuid.UUID) ([]string, error) {
	m, err := s.repo.GetMatch(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}

	if m.Status != StatusFlagged {
		return nil, ErrAlreadyReviewed
	}

	tx, err := s.txStore.Get(ctx, userID, m.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("loading matched transaction: %w", err)
	}

	if err := ValidateMerge(tx, &m.CSVData); err != nil {
		return nil, err
	}

	now := time.Now()
	mergedFields := Merge(tx, &m.CSVData, now)

	if err := s.txStore.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("updating merged transaction: %w", err)
	}

	m.Status = StatusReviewedMerged
	m.MergedFields = mergedFields
	m.ReviewedBy = &userID
	m.ReviewedAt = &now

	if err := s.repo.UpdateReview(ctx, m); err != nil {
		return nil, fmt.Errorf("updating match: %w", err)
	}

	s.audit.Emit(ctx, audit.Event{
		TransactionID: tx.ID,
		UserID:        userID,
		Action:        audit.ActionMatchReviewed,
		Fields:        mergedFields,
		At:            now,
	})

	return mergedFields, nil
}

// Reject marks a flagged match as not-a-match. Nothing else changes: the
// import row stays in its terminal state and the stored transaction is left
// alone.
func (s *Service) Reject(ctx context.Context, userID, matchID uuid.UUID) error {
	m, err := s.repo.GetMatch(ctx, userID, matchID)
	if err != nil {
		return err
	}

	if m.Status != StatusFlagged {
		return ErrAlreadyReviewed
	}

	now := time.Now()
	m.Status = StatusReviewedRejected
	m.ReviewedBy = &userID
	m.ReviewedAt = &now

	if err := s.repo.UpdateReview(ctx, m); err != nil {
		return fmt.Errorf("updating match: %w", err)
	}

	s.audit.Emit(ctx, audit.Event{
		TransactionID: m.TransactionID,
		UserID:        userID,
		Action:        audit.ActionMatchReviewed,
		At:            now,
	})

	return nil
}
