package importbatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgermatch/internal/audit"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
	"github.com/MrJamesThe3rd/ledgermatch/internal/progress"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

// Repository persists batches and rows. Counter increments must be atomic
// relative to row status updates so no row ever counts in two buckets.
type Repository interface {
	CreateBatch(ctx context.Context, b *Batch) error
	GetBatch(ctx context.Context, userID, id uuid.UUID) (*Batch, error)
	FindBatchByContentHash(ctx context.Context, userID uuid.UUID, hash string) (*Batch, error)
	FinalizeBatch(ctx context.Context, batchID uuid.UUID, status BatchStatus, completedAt time.Time) error
	IncrementCounter(ctx context.Context, batchID uuid.UUID, counter Counter) error

	CreateRow(ctx context.Context, r *Row) error
	UpdateRowOutcome(ctx context.Context, rowID uuid.UUID, status RowStatus, transactionID *uuid.UUID, errorMessage string) error
	ListRows(ctx context.Context, batchID uuid.UUID) ([]*Row, error)
}

// TransactionCreator is the slice of the transaction service the
// orchestrator needs for the create path.
type TransactionCreator interface {
	Create(ctx context.Context, userID uuid.UUID, params transaction.CreateParams) (*transaction.Transaction, error)
}

// Matcher is implemented by matching.Service.
type Matcher interface {
	FindBestMatch(ctx context.Context, userID uuid.UUID, c *importer.Candidate) (*matching.RankedMatch, error)
	IsAlreadyMatchedInBatch(ctx context.Context, transactionID, batchID uuid.UUID) (bool, error)
	AutoMerge(ctx context.Context, userID uuid.UUID, batchID, rowID uuid.UUID, tx *transaction.Transaction, c *importer.Candidate, confidence int) (*matching.Match, error)
	Flag(ctx context.Context, userID uuid.UUID, batchID, rowID uuid.UUID, tx *transaction.Transaction, c *importer.Candidate, confidence int) (*matching.Match, error)
}

// CategoryResolver turns free-text category hints into codes.
type CategoryResolver interface {
	ResolveOrCreate(ctx context.Context, userID uuid.UUID, name string) (string, error)
}

// Options configures one batch run. Matching/threshold/chunking are explicit
// here rather than read from the environment so callers and tests control
// them per run.
type Options struct {
	MatchingEnabled    bool
	AutoMergeThreshold int
	ChunkSize          int

	Filename   string
	Format     importer.Format
	ProgressID string

	// FileContent, when provided, is hashed to make re-uploading the same
	// file return the existing batch instead of double-importing.
	FileContent []byte
}

func DefaultOptions() Options {
	return Options{
		MatchingEnabled:    true,
		AutoMergeThreshold: matching.DefaultAutoMergeThreshold,
		ChunkSize:          100,
	}
}

type Service struct {
	repo         Repository
	transactions TransactionCreator
	matcher      Matcher
	categories   CategoryResolver
	audit        audit.Emitter
	progress     progress.Sink
}

func NewService(
	repo Repository,
	transactions TransactionCreator,
	matcher Matcher,
	categories CategoryResolver,
	auditor audit.Emitter,
	sink progress.Sink,
) *Service {
	return &Service{
		repo:         repo,
		transactions: transactions,
		matcher:      matcher,
		categories:   categories,
		audit:        auditor,
		progress:     sink,
	}
}

// Run processes parsed rows as one batch. Row failures are isolated: one bad
// row marks itself errored and processing moves on. The batch finalizes as
// completed regardless of row-level errors; failed is reserved for the run
// itself breaking down (context cancellation mid-batch).
func (s *Service) Run(ctx context.Context, userID uuid.UUID, rows []importer.Row, opts Options) (*Batch, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}

	if opts.AutoMergeThreshold <= 0 {
		opts.AutoMergeThreshold = matching.DefaultAutoMergeThreshold
	}

	contentHash := ""
	if len(opts.FileContent) > 0 {
		sum := sha256.Sum256(opts.FileContent)
		contentHash = hex.EncodeToString(sum[:])

		existing, err := s.repo.FindBatchByContentHash(ctx, userID, contentHash)
		if err != nil && !errors.Is(err, ErrBatchNotFound) {
			return nil, fmt.Errorf("checking content hash: %w", err)
		}

		if existing != nil {
			slog.Info("duplicate file upload, returning existing batch",
				"batch_id", existing.ID, "filename", opts.Filename)

			return existing, nil
		}
	}

	batch := &Batch{
		UserID:      userID,
		Filename:    opts.Filename,
		ContentHash: contentHash,
		Status:      BatchProcessing,
		TotalRows:   len(rows),
		Metadata: map[string]string{
			"format":    string(opts.Format),
			"row_count": strconv.Itoa(len(rows)),
		},
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	counters := &batchCounters{}

	for start := 0; start < len(rows); start += opts.ChunkSize {
		end := min(start+opts.ChunkSize, len(rows))

		if err := ctx.Err(); err != nil {
			// Writes so far are durable; mark the batch failed and stop.
			now := time.Now()
			_ = s.repo.FinalizeBatch(context.WithoutCancel(ctx), batch.ID, BatchFailed, now)

			return nil, fmt.Errorf("batch interrupted: %w", err)
		}

		for _, row := range rows[start:end] {
			s.processRow(ctx, userID, batch, row, opts, counters)
		}

		s.progress.Report(ctx, userID, opts.ProgressID, progress.Snapshot{
			Current: end,
			Total:   len(rows),
			Matched: counters.matched,
			Created: counters.created,
			Skipped: counters.skipped,
			Errored: counters.errored,
		})
	}

	now := time.Now()
	if err := s.repo.FinalizeBatch(ctx, batch.ID, BatchCompleted, now); err != nil {
		return nil, fmt.Errorf("finalizing batch: %w", err)
	}

	batch.Status = BatchCompleted
	batch.CompletedAt = &now
	batch.MatchedCount = counters.matched
	batch.CreatedCount = counters.created
	batch.SkippedCount = counters.skipped
	batch.ErrorCount = counters.errored

	return batch, nil
}

// batchCounters mirrors the store-side counters for progress snapshots and
// the returned summary. The store increments remain the source of truth.
type batchCounters struct {
	matched, created, skipped, errored int
}

// processRow runs the per-row decision procedure. Every exit path settles
// the row in exactly one terminal status and bumps exactly one counter;
// failures never propagate to the batch.
func (s *Service) processRow(ctx context.Context, userID uuid.UUID, batch *Batch, in importer.Row, opts Options, counters *batchCounters) {
	row := &Row{
		BatchID:    batch.ID,
		RowNumber:  in.Number,
		RawData:    in.Raw,
		ParsedData: in.Candidate,
		Status:     RowPending,
	}

	if err := s.repo.CreateRow(ctx, row); err != nil {
		slog.Error("failed to persist import row",
			"batch_id", batch.ID, "row", in.Number, "error", err)
		s.count(ctx, batch.ID, CounterError, &counters.errored)

		return
	}

	if in.Err != nil {
		s.settleRow(ctx, batch.ID, row.ID, RowError, nil, in.Err.Error(), CounterError, &counters.errored)
		return
	}

	c := in.Candidate

	if !opts.MatchingEnabled || !c.HasAmountAndDate() {
		s.createTransaction(ctx, userID, batch.ID, row.ID, c, counters)
		return
	}

	best, err := s.matcher.FindBestMatch(ctx, userID, c)
	if err != nil {
		s.settleRow(ctx, batch.ID, row.ID, RowError, nil, err.Error(), CounterError, &counters.errored)
		return
	}

	if best == nil {
		s.createTransaction(ctx, userID, batch.ID, row.ID, c, counters)
		return
	}

	claimed, err := s.matcher.IsAlreadyMatchedInBatch(ctx, best.Transaction.ID, batch.ID)
	if err != nil {
		s.settleRow(ctx, batch.ID, row.ID, RowError, nil, err.Error(), CounterError, &counters.errored)
		return
	}

	if claimed {
		s.settleRow(ctx, batch.ID, row.ID, RowSkipped, nil,
			"transaction already matched in this batch", CounterSkipped, &counters.skipped)

		return
	}

	if best.Confidence >= opts.AutoMergeThreshold {
		s.autoMerge(ctx, userID, batch.ID, row.ID, best, c, counters)
		return
	}

	if _, err := s.matcher.Flag(ctx, userID, batch.ID, row.ID, best.Transaction, c, best.Confidence); err != nil {
		s.settleRow(ctx, batch.ID, row.ID, RowError, nil, err.Error(), CounterError, &counters.errored)
		return
	}

	s.settleRow(ctx, batch.ID, row.ID, RowSkipped, nil,
		fmt.Sprintf("flagged for review (%d%% confidence)", best.Confidence),
		CounterSkipped, &counters.skipped)
}

func (s *Service) autoMerge(ctx context.Context, userID, batchID, rowID uuid.UUID, best *matching.RankedMatch, c *importer.Candidate, counters *batchCounters) {
	_, err := s.matcher.AutoMerge(ctx, userID, batchID, rowID, best.Transaction, c, best.Confidence)
	if err == nil {
		txID := best.Transaction.ID
		s.settleRow(ctx, batchID, rowID, RowMatched, &txID, "", CounterMatched, &counters.matched)

		return
	}

	if errors.Is(err, matching.ErrAmountMismatch) || errors.Is(err, matching.ErrCurrencyMismatch) {
		// Incompatible despite the confidence score: creating a duplicate is
		// preferable to corrupting the existing record. The row still counts
		// as an error so the mismatch surfaces in the summary.
		if _, createErr := s.createFromCandidate(ctx, userID, c); createErr != nil {
			slog.Error("fallback create after merge rejection failed",
				"batch_id", batchID, "error", createErr)
		}

		s.settleRow(ctx, batchID, rowID, RowError, nil, err.Error(), CounterError, &counters.errored)

		return
	}

	s.settleRow(ctx, batchID, rowID, RowError, nil, err.Error(), CounterError, &counters.errored)
}

func (s *Service) createTransaction(ctx context.Context, userID, batchID, rowID uuid.UUID, c *importer.Candidate, counters *batchCounters) {
	tx, err := s.createFromCandidate(ctx, userID, c)
	if err != nil {
		s.settleRow(ctx, batchID, rowID, RowError, nil, err.Error(), CounterError, &counters.errored)
		return
	}

	s.settleRow(ctx, batchID, rowID, RowCreated, &tx.ID, "", CounterCreated, &counters.created)
}

// createFromCandidate resolves the candidate's category hint, creates the
// transaction and emits the created audit event. Shared by the regular
// create path and the fallback after a rejected merge.
func (s *Service) createFromCandidate(ctx context.Context, userID uuid.UUID, c *importer.Candidate) (*transaction.Transaction, error) {
	categoryCode := ""

	if c.CategoryName != "" {
		code, err := s.categories.ResolveOrCreate(ctx, userID, c.CategoryName)
		if err != nil {
			// A category hint is not worth failing the row over.
			slog.Warn("failed to resolve category", "name", c.CategoryName, "error", err)
		} else {
			categoryCode = code
		}
	}

	tx, err := s.transactions.Create(ctx, userID, createParams(c, categoryCode, c.ProjectCode))
	if err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, audit.Event{
		TransactionID: tx.ID,
		UserID:        userID,
		Action:        audit.ActionCreated,
		At:            time.Now(),
	})

	return tx, nil
}

func createParams(c *importer.Candidate, categoryCode, projectCode string) transaction.CreateParams {
	txType := c.Type
	if txType == "" {
		txType = transaction.TypeOther
	}

	return transaction.CreateParams{
		Amount:          c.Total,
		CurrencyCode:    c.CurrencyCode,
		Type:            txType,
		Name:            c.Name,
		Merchant:        c.Merchant,
		Description:     c.Description,
		CategoryCode:    categoryCode,
		ProjectCode:     projectCode,
		ImportReference: c.ImportReference,
		IssuedAt:        c.IssuedAt,
		Extra:           c.Extra,
		Files:           c.Files,
	}
}

// settleRow moves a row into its terminal status and bumps the matching
// counter. Store failures here are logged, not propagated: the row outcome
// has already been decided.
func (s *Service) settleRow(ctx context.Context, batchID, rowID uuid.UUID, status RowStatus, txID *uuid.UUID, message string, counter Counter, local *int) {
	if err := s.repo.UpdateRowOutcome(ctx, rowID, status, txID, message); err != nil {
		slog.Error("failed to update row outcome",
			"batch_id", batchID, "row_id", rowID, "status", string(status), "error", err)
	}

	s.count(ctx, batchID, counter, local)
}

func (s *Service) count(ctx context.Context, batchID uuid.UUID, counter Counter, local *int) {
	if err := s.repo.IncrementCounter(ctx, batchID, counter); err != nil {
		slog.Error("failed to increment batch counter",
			"batch_id", batchID, "counter", string(counter), "error", err)
	}

	*local++
}

// Get returns a batch with its current counters.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Batch, error) {
	return s.repo.GetBatch(ctx, userID, id)
}

// Rows returns the rows of a batch in row-number order.
func (s *Service) Rows(ctx context.Context, userID, batchID uuid.UUID) ([]*Row, error) {
	if _, err := s.repo.GetBatch(ctx, userID, batchID); err != nil {
		return nil, err
	}

	return s.repo.ListRows(ctx, batchID)
}
