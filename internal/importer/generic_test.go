package importer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

func TestParse_Generic(t *testing.T) {
	mapping := importer.ColumnMapping{
		0: importer.FieldIssuedAt,
		1: importer.FieldDescription,
		2: importer.FieldTotal,
		3: importer.FieldCategory,
	}

	rows := [][]string{
		{"2024-01-10", "Office supplies", "-50.00", "Office"},
		{"2024-01-11", "Consulting income", "1500.00", ""},
	}

	svc := importer.NewService()
	got, err := svc.Parse(importer.FormatGeneric, nil, rows, importer.ParseOptions{ColumnMapping: mapping})
	require.NoError(t, err)
	require.Len(t, got, 2)

	expense := got[0].Candidate
	require.NotNil(t, expense)
	assert.Equal(t, int64(5000), expense.Total)
	assert.Equal(t, transaction.TypeExpense, expense.Type)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), expense.IssuedAt)
	assert.Equal(t, "Office supplies", expense.Description)
	assert.Equal(t, "Office", expense.CategoryName)

	income := got[1].Candidate
	require.NotNil(t, income)
	assert.Equal(t, transaction.TypeIncome, income.Type)
	assert.Equal(t, int64(150000), income.Total)
}

func TestParse_Generic_ExplicitTypeWinsOverSign(t *testing.T) {
	mapping := importer.ColumnMapping{
		0: importer.FieldIssuedAt,
		1: importer.FieldTotal,
		2: importer.FieldType,
	}

	rows := [][]string{{"2024-01-10", "25.00", "expense"}}

	svc := importer.NewService()
	got, err := svc.Parse(importer.FormatGeneric, nil, rows, importer.ParseOptions{ColumnMapping: mapping})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, transaction.TypeExpense, got[0].Candidate.Type)
}

func TestParse_Generic_RejectsEmptyMapping(t *testing.T) {
	svc := importer.NewService()
	_, err := svc.Parse(importer.FormatGeneric, nil, [][]string{{"a"}}, importer.ParseOptions{})
	assert.ErrorIs(t, err, importer.ErrNoColumnsMapped)
}

func TestParse_Generic_DuplicateFieldLastColumnWins(t *testing.T) {
	mapping := importer.ColumnMapping{
		0: importer.FieldDescription,
		1: importer.FieldTotal,
		3: importer.FieldDescription,
	}

	rows := [][]string{
		{"short", "10.00", "ignored", "the detailed description"},
		{"only value", "10.00", "", ""},
	}

	svc := importer.NewService()
	got, err := svc.Parse(importer.FormatGeneric, nil, rows, importer.ParseOptions{ColumnMapping: mapping})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "the detailed description", got[0].Candidate.Description)

	// An empty later column does not wipe an earlier value.
	assert.Equal(t, "only value", got[1].Candidate.Description)
}

func TestParse_Generic_UnmappedColumnsDropped(t *testing.T) {
	mapping := importer.ColumnMapping{
		0: importer.FieldIssuedAt,
		1: importer.FieldTotal,
	}

	rows := [][]string{{"2024-01-10", "10.00", "this column is ignored"}}

	svc := importer.NewService()
	got, err := svc.Parse(importer.FormatGeneric, nil, rows, importer.ParseOptions{ColumnMapping: mapping})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Candidate.Description)
}

func TestParse_EmptyFile(t *testing.T) {
	svc := importer.NewService()
	_, err := svc.Parse(importer.FormatAmex, amexHeader, nil, importer.ParseOptions{})
	assert.ErrorIs(t, err, importer.ErrEmptyFile)
}
