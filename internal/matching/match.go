// Package matching pairs transaction candidates from statement imports with
// transactions already in the store, scores the pairing, and applies or
// queues the resulting merge.
package matching

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
)

var (
	ErrMatchNotFound = errors.New("match not found")

	// ErrAlreadyReviewed is returned when approving or rejecting a match
	// that already left the flagged state.
	ErrAlreadyReviewed = errors.New("match already reviewed")

	// Merge validator errors. These guard the store against a Finder bug
	// pairing incompatible records; callers fall back to creating a new
	// transaction instead of merging.
	ErrAmountMismatch   = errors.New("merge rejected: amounts differ")
	ErrCurrencyMismatch = errors.New("merge rejected: currency codes differ")
)

// Status is the lifecycle state of a match decision.
type Status string

const (
	// StatusAutoMerged: confidence reached the auto-merge threshold and the
	// merge was applied without review.
	StatusAutoMerged Status = "auto_merged"
	// StatusFlagged: a plausible match below the threshold, queued for a
	// human decision.
	StatusFlagged Status = "flagged"
	// StatusReviewedMerged / StatusReviewedRejected: terminal states set by
	// the review flow.
	StatusReviewedMerged   Status = "reviewed_merged"
	StatusReviewedRejected Status = "reviewed_rejected"
)

// Match records one candidate-to-transaction pairing decision within a batch.
// CSVData snapshots the candidate so reviewers see what the file claimed even
// after the batch rows are gone.
type Match struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	BatchID       uuid.UUID
	RowID         uuid.UUID
	TransactionID uuid.UUID

	Confidence     int
	MatchedAmount  int64
	MatchedDate    time.Time
	ExistingDate   time.Time
	DaysDifference int

	Status       Status
	CSVData      importer.Candidate
	MergedFields []string

	ReviewedBy *uuid.UUID
	ReviewedAt *time.Time
	CreatedAt  time.Time
}
