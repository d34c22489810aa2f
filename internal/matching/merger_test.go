package matching_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/matching"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

func TestValidateMerge(t *testing.T) {
	tx := &transaction.Transaction{Amount: 5000, CurrencyCode: "USD"}

	assert.NoError(t, matching.ValidateMerge(tx, &importer.Candidate{Total: 5000, CurrencyCode: "USD"}))

	// Missing currency on either side is tolerated.
	assert.NoError(t, matching.ValidateMerge(tx, &importer.Candidate{Total: 5000}))
	assert.NoError(t, matching.ValidateMerge(&transaction.Transaction{Amount: 5000}, &importer.Candidate{Total: 5000, CurrencyCode: "EUR"}))

	assert.ErrorIs(t, matching.ValidateMerge(tx, &importer.Candidate{Total: 5001, CurrencyCode: "USD"}), matching.ErrAmountMismatch)
	assert.ErrorIs(t, matching.ValidateMerge(tx, &importer.Candidate{Total: 5000, CurrencyCode: "EUR"}), matching.ErrCurrencyMismatch)
}

func TestMerge_NeverTouchesCuratedFields(t *testing.T) {
	tx := &transaction.Transaction{
		Amount:       5000,
		CategoryCode: "office",
		ProjectCode:  "apollo",
		Note:         "approved by Dana",
		Extra:        map[string]string{"vendor_id": "V-1"},
	}

	c := &importer.Candidate{
		Total:        5000,
		CategoryName: "Supplies",
		ProjectCode:  "zeus",
		Extra:        map[string]string{"vendor_id": "V-2", "order_id": "111"},
		Description:  "a much longer description than before",
	}

	merged := matching.Merge(tx, c, time.Now())

	assert.Equal(t, "office", tx.CategoryCode)
	assert.Equal(t, "apollo", tx.ProjectCode)
	assert.Equal(t, "approved by Dana", tx.Note)
	assert.Equal(t, map[string]string{"vendor_id": "V-1"}, tx.Extra)
	assert.NotContains(t, merged, "category")
	assert.NotContains(t, merged, "project")
	assert.NotContains(t, merged, "note")
}

func TestMerge_DescriptionOnlyWhenStrictlyLonger(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		incoming string
		want     string
		merged   bool
	}{
		{name: "Longer", existing: "short", incoming: "much longer text", want: "much longer text", merged: true},
		{name: "Equal", existing: "12345", incoming: "abcde", want: "12345", merged: false},
		{name: "Shorter", existing: "a long existing text", incoming: "short", want: "a long existing text", merged: false},
		{name: "IntoEmpty", existing: "", incoming: "anything", want: "anything", merged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &transaction.Transaction{Description: tt.existing}
			fields := matching.Merge(tx, &importer.Candidate{Description: tt.incoming}, time.Now())
			assert.Equal(t, tt.want, tx.Description)

			if tt.merged {
				assert.Contains(t, fields, "description")
			} else {
				assert.NotContains(t, fields, "description")
			}
		})
	}
}

func TestMerge_MerchantNameReferenceOnlyWhenAbsent(t *testing.T) {
	tx := &transaction.Transaction{
		Merchant:        "Existing Store",
		Name:            "",
		ImportReference: "",
	}

	c := &importer.Candidate{
		Merchant:        "New Store",
		Name:            "New Name",
		ImportReference: "ref-1",
	}

	fields := matching.Merge(tx, c, time.Now())

	assert.Equal(t, "Existing Store", tx.Merchant)
	assert.Equal(t, "New Name", tx.Name)
	assert.Equal(t, "ref-1", tx.ImportReference)
	assert.ElementsMatch(t, []string{"name", "import_reference"}, fields)
}

func TestMerge_AppendsFilesDeduplicated(t *testing.T) {
	shared := transaction.FileRef{ID: uuid.New(), Name: "receipt.pdf"}
	tx := &transaction.Transaction{Files: []transaction.FileRef{shared}}

	extra := transaction.FileRef{ID: uuid.New(), Name: "invoice.pdf"}
	c := &importer.Candidate{Files: []transaction.FileRef{shared, extra}}

	fields := matching.Merge(tx, c, time.Now())

	require.Len(t, tx.Files, 2)
	assert.Contains(t, fields, "files")
}

func TestMerge_TimestampOnlyChangeReturnsNoFields(t *testing.T) {
	now := time.Now()
	tx := &transaction.Transaction{Merchant: "Store", Description: "long enough text"}

	fields := matching.Merge(tx, &importer.Candidate{Merchant: "Other", Description: "short"}, now)

	assert.Empty(t, fields)
	require.NotNil(t, tx.LastMatchedAt)
	assert.Equal(t, now, *tx.LastMatchedAt)
}
