// Package importbatch drives the end-to-end import pipeline: it persists one
// batch per uploaded file, one row per candidate, decides per row between
// merging into an existing transaction, flagging for review, or creating a
// new record, and keeps the batch counters consistent throughout.
package importbatch

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
)

var (
	ErrBatchNotFound = errors.New("import batch not found")

	// ErrNoRows rejects an import before any batch is created.
	ErrNoRows = errors.New("no rows to import")
)

// BatchStatus is the batch lifecycle. Per-row errors never fail a batch;
// failed is reserved for orchestrator-level breakdowns mid-run.
type BatchStatus string

const (
	BatchProcessing          BatchStatus = "processing"
	BatchCompleted           BatchStatus = "completed"
	BatchCompletedWithErrors BatchStatus = "completed_with_errors"
	BatchFailed              BatchStatus = "failed"
)

// RowStatus transitions one-way out of pending; terminal statuses are never
// revisited, not even by the later review flow.
type RowStatus string

const (
	RowPending RowStatus = "pending"
	RowCreated RowStatus = "created"
	RowMatched RowStatus = "matched"
	RowError   RowStatus = "error"
	RowSkipped RowStatus = "skipped"
)

// Counter names a batch counter; every terminal row status maps to exactly
// one.
type Counter string

const (
	CounterMatched Counter = "matched_count"
	CounterCreated Counter = "created_count"
	CounterSkipped Counter = "skipped_count"
	CounterError   Counter = "error_count"
)

// Batch is one run of the pipeline over one uploaded file.
type Batch struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Filename    string
	ContentHash string
	Status      BatchStatus

	TotalRows    int
	MatchedCount int
	CreatedCount int
	SkippedCount int
	ErrorCount   int

	Metadata    map[string]string
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Row is one input row of a batch, capturing both what the file said and
// what the parser made of it.
type Row struct {
	ID        uuid.UUID
	BatchID   uuid.UUID
	RowNumber int

	RawData    []string
	ParsedData *importer.Candidate

	Status        RowStatus
	ErrorMessage  string
	TransactionID *uuid.UUID

	CreatedAt time.Time
}
