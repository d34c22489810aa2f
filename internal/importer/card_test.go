package importer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

var amexHeader = []string{
	"Date", "Description", "Amount", "Extended Details",
	"Appears On Your Statement As", "Reference", "Category",
}

func TestParse_Amex(t *testing.T) {
	rows := [][]string{
		// Amex exports charges as positive amounts.
		{"01/10/2024", "AMAZON MKTPL*RT4Y", "50.00", "details", "AMAZON MARKETPLACE", "320240100001", "Merchandise"},
		{"01/12/2024", "PAYMENT RECEIVED", "-120.00", "", "ONLINE PAYMENT", "320240100002", ""},
	}

	svc := importer.NewService()
	got, err := svc.Parse(importer.FormatAmex, amexHeader, rows, importer.ParseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	charge := got[0].Candidate
	require.NotNil(t, charge)
	assert.Equal(t, int64(5000), charge.Total)
	assert.Equal(t, transaction.TypeExpense, charge.Type)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), charge.IssuedAt)
	assert.Equal(t, "AMAZON MKTPL*RT4Y", charge.Description)
	assert.Equal(t, "AMAZON MARKETPLACE", charge.Merchant)
	assert.Equal(t, "320240100001", charge.ImportReference)
	assert.Equal(t, "Merchandise", charge.CategoryName)

	credit := got[1].Candidate
	require.NotNil(t, credit)
	assert.Equal(t, int64(12000), credit.Total)
	assert.Equal(t, transaction.TypeIncome, credit.Type)
}

func TestParse_Chase(t *testing.T) {
	header := []string{"Transaction Date", "Post Date", "Description", "Category", "Type", "Amount", "Memo"}
	rows := [][]string{
		// Chase exports purchases as negative amounts.
		{"01/10/2024", "01/11/2024", "STARBUCKS #1234", "Food & Drink", "Sale", "-7.85", ""},
		{"01/15/2024", "01/15/2024", "REFUND ACME", "Shopping", "Return", "19.99", ""},
	}

	svc := importer.NewService()
	got, err := svc.Parse(importer.FormatChase, header, rows, importer.ParseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	purchase := got[0].Candidate
	require.NotNil(t, purchase)
	assert.Equal(t, int64(785), purchase.Total)
	assert.Equal(t, transaction.TypeExpense, purchase.Type)

	// No reference column: the composite fallback keeps re-imports stable.
	assert.Equal(t, "2024-01-10|STARBUCKS #1234|-785", purchase.ImportReference)

	refund := got[1].Candidate
	require.NotNil(t, refund)
	assert.Equal(t, transaction.TypeIncome, refund.Type)
	assert.Equal(t, int64(1999), refund.Total)
}

func TestParse_Card_RowErrorsDoNotFailParse(t *testing.T) {
	rows := [][]string{
		{"01/10/2024", "COFFEE", "4.50", "", "", "", ""},
		{"not-a-date", "BROKEN", "4.50", "", "", "", ""},
		{"01/11/2024", "", "4.50", "", "", "", ""},
		{"01/12/2024", "LUNCH", "twelve", "", "", "", ""},
	}

	svc := importer.NewService()
	got, err := svc.Parse(importer.FormatAmex, amexHeader, rows, importer.ParseOptions{})
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.NotNil(t, got[0].Candidate)
	assert.Error(t, got[1].Err)
	assert.ErrorContains(t, got[2].Err, "missing description")
	assert.ErrorContains(t, got[3].Err, "parsing amount")

	// Row numbers stay 1-based and stable for auditability.
	assert.Equal(t, 1, got[0].Number)
	assert.Equal(t, 4, got[3].Number)
}
