package matching_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgermatch/internal/audit"
	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

type fakeTxStore struct {
	byID    map[uuid.UUID]*transaction.Transaction
	byRef   map[string]*transaction.Transaction
	inRange []*transaction.Transaction
	updated []*transaction.Transaction
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{
		byID:  make(map[uuid.UUID]*transaction.Transaction),
		byRef: make(map[string]*transaction.Transaction),
	}
}

func (f *fakeTxStore) add(tx *transaction.Transaction) *transaction.Transaction {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	f.byID[tx.ID] = tx
	if tx.ImportReference != "" {
		f.byRef[tx.ImportReference] = tx
	}

	f.inRange = append(f.inRange, tx)

	return tx
}

func (f *fakeTxStore) Get(_ context.Context, _, id uuid.UUID) (*transaction.Transaction, error) {
	tx, ok := f.byID[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}

	return tx, nil
}

func (f *fakeTxStore) Update(_ context.Context, tx *transaction.Transaction) error {
	f.updated = append(f.updated, tx)
	return nil
}

func (f *fakeTxStore) FindByImportReference(_ context.Context, _ uuid.UUID, ref string) (*transaction.Transaction, error) {
	tx, ok := f.byRef[ref]
	if !ok {
		return nil, transaction.ErrNotFound
	}

	return tx, nil
}

func (f *fakeTxStore) FindByAmountAndDateRange(_ context.Context, _ uuid.UUID, amount int64, from, to time.Time) ([]*transaction.Transaction, error) {
	var out []*transaction.Transaction

	for _, tx := range f.inRange {
		if tx.Amount == amount && !tx.IssuedAt.Before(from) && !tx.IssuedAt.After(to) {
			out = append(out, tx)
		}
	}

	return out, nil
}

type fakeMatchRepo struct {
	matches map[uuid.UUID]*matching.Match
	order   []uuid.UUID
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[uuid.UUID]*matching.Match)}
}

func (f *fakeMatchRepo) CreateMatch(_ context.Context, m *matching.Match) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	f.matches[m.ID] = m
	f.order = append(f.order, m.ID)

	return nil
}

func (f *fakeMatchRepo) GetMatch(_ context.Context, _, id uuid.UUID) (*matching.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, matching.ErrMatchNotFound
	}

	return m, nil
}

func (f *fakeMatchRepo) UpdateReview(_ context.Context, m *matching.Match) error {
	f.matches[m.ID] = m
	return nil
}

func (f *fakeMatchRepo) ExistsForTransactionInBatch(_ context.Context, transactionID, batchID uuid.UUID) (bool, error) {
	for _, m := range f.matches {
		if m.TransactionID == transactionID && m.BatchID == batchID {
			return true, nil
		}
	}

	return false, nil
}

func (f *fakeMatchRepo) ListFlagged(_ context.Context, userID uuid.UUID, batchID *uuid.UUID) ([]*matching.Match, error) {
	var out []*matching.Match

	for _, id := range f.order {
		m := f.matches[id]
		if m.UserID != userID || m.Status != matching.StatusFlagged {
			continue
		}

		if batchID != nil && m.BatchID != *batchID {
			continue
		}

		out = append(out, m)
	}

	return out, nil
}

type captureEmitter struct {
	events []audit.Event
}

func (c *captureEmitter) Emit(_ context.Context, e audit.Event) {
	c.events = append(c.events, e)
}

func newService(txs *fakeTxStore, repo *fakeMatchRepo) (*matching.Service, *captureEmitter) {
	emitter := &captureEmitter{}
	return matching.NewService(repo, txs, emitter), emitter
}

func TestFindMatches_ReferenceIsDefinitive(t *testing.T) {
	txs := newFakeTxStore()

	// Amount and date would not even score, but the reference wins.
	referenced := txs.add(&transaction.Transaction{
		Amount:          999,
		IssuedAt:        day(1),
		ImportReference: "amazon:111:P1",
	})
	txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(10)})

	svc, _ := newService(txs, newFakeMatchRepo())

	got, err := svc.FindMatches(context.Background(), uuid.New(), &importer.Candidate{
		Total:           5000,
		IssuedAt:        day(10),
		ImportReference: "amazon:111:P1",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, referenced.ID, got[0].Transaction.ID)
	assert.Equal(t, 100, got[0].Confidence)
}

func TestFindMatches_RanksByConfidenceThenRecency(t *testing.T) {
	txs := newFakeTxStore()

	older := txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(10), CreatedAt: day(1)})
	newer := txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(10), CreatedAt: day(5)})
	nearby := txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(12), CreatedAt: day(9)})

	svc, _ := newService(txs, newFakeMatchRepo())

	got, err := svc.FindMatches(context.Background(), uuid.New(), &importer.Candidate{Total: 5000, IssuedAt: day(10)})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Same-day matches first; equal confidence broken by newest created.
	assert.Equal(t, newer.ID, got[0].Transaction.ID)
	assert.Equal(t, 100, got[0].Confidence)
	assert.Equal(t, older.ID, got[1].Transaction.ID)
	assert.Equal(t, nearby.ID, got[2].Transaction.ID)
	assert.Equal(t, 80, got[2].Confidence)
}

func TestFindMatches_MissingAmountOrDate(t *testing.T) {
	txs := newFakeTxStore()
	txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(10)})

	svc, _ := newService(txs, newFakeMatchRepo())

	got, err := svc.FindMatches(context.Background(), uuid.New(), &importer.Candidate{Total: 5000})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.FindMatches(context.Background(), uuid.New(), &importer.Candidate{IssuedAt: day(10)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAutoMerge(t *testing.T) {
	txs := newFakeTxStore()
	tx := txs.add(&transaction.Transaction{
		Amount:   5000,
		IssuedAt: day(11),
	})

	repo := newFakeMatchRepo()
	svc, emitter := newService(txs, repo)

	userID := uuid.New()
	batchID := uuid.New()
	rowID := uuid.New()

	c := &importer.Candidate{
		Total:       5000,
		IssuedAt:    day(10),
		Description: "Office chair from statement",
		Merchant:    "Staples",
	}

	m, err := svc.AutoMerge(context.Background(), userID, batchID, rowID, tx, c, 90)
	require.NoError(t, err)

	assert.Equal(t, matching.StatusAutoMerged, m.Status)
	assert.Equal(t, 90, m.Confidence)
	assert.Equal(t, 1, m.DaysDifference)
	assert.ElementsMatch(t, []string{"description", "merchant"}, m.MergedFields)
	require.Len(t, txs.updated, 1)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, audit.ActionCSVMerge, emitter.events[0].Action)

	// The recorded match makes the transaction claimed for this batch.
	claimed, err := svc.IsAlreadyMatchedInBatch(context.Background(), tx.ID, batchID)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestAutoMerge_ValidatorRejectsCurrencyMismatch(t *testing.T) {
	txs := newFakeTxStore()
	tx := txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(10), CurrencyCode: "USD"})

	svc, emitter := newService(txs, newFakeMatchRepo())

	_, err := svc.AutoMerge(context.Background(), uuid.New(), uuid.New(), uuid.New(), tx,
		&importer.Candidate{Total: 5000, IssuedAt: day(10), CurrencyCode: "EUR"}, 100)

	assert.ErrorIs(t, err, matching.ErrCurrencyMismatch)
	assert.Empty(t, txs.updated)
	assert.Empty(t, emitter.events)
}

func TestApprove(t *testing.T) {
	txs := newFakeTxStore()
	tx := txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(11)})

	repo := newFakeMatchRepo()
	svc, emitter := newService(txs, repo)

	userID := uuid.New()

	flagged, err := svc.Flag(context.Background(), userID, uuid.New(), uuid.New(), tx,
		&importer.Candidate{Total: 5000, IssuedAt: day(13), Description: "detailed statement line"}, 70)
	require.NoError(t, err)
	assert.Empty(t, txs.updated, "flagging must not mutate the transaction")

	fields, err := svc.Approve(context.Background(), userID, flagged.ID)
	require.NoError(t, err)
	assert.Contains(t, fields, "description")
	assert.Len(t, txs.updated, 1)

	assert.Equal(t, matching.StatusReviewedMerged, flagged.Status)
	require.NotNil(t, flagged.ReviewedBy)
	assert.Equal(t, userID, *flagged.ReviewedBy)
	assert.NotNil(t, flagged.ReviewedAt)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, audit.ActionMatchReviewed, emitter.events[0].Action)

	// Terminal: reviewing twice is rejected.
	_, err = svc.Approve(context.Background(), userID, flagged.ID)
	assert.ErrorIs(t, err, matching.ErrAlreadyReviewed)
}

func TestReject(t *testing.T) {
	txs := newFakeTxStore()
	tx := txs.add(&transaction.Transaction{Amount: 5000, IssuedAt: day(11)})

	repo := newFakeMatchRepo()
	svc, _ := newService(txs, repo)

	userID := uuid.New()

	flagged, err := svc.Flag(context.Background(), userID, uuid.New(), uuid.New(), tx,
		&importer.Candidate{Total: 5000, IssuedAt: day(13)}, 70)
	require.NoError(t, err)

	require.NoError(t, svc.Reject(context.Background(), userID, flagged.ID))
	assert.Equal(t, matching.StatusReviewedRejected, flagged.Status)
	assert.Empty(t, txs.updated)

	err = svc.Reject(context.Background(), userID, flagged.ID)
	assert.ErrorIs(t, err, matching.ErrAlreadyReviewed)

	// Rejected matches leave the review queue.
	queue, err := svc.ListFlagged(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.Empty(t, queue)
}
