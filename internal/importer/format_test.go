package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   importer.Format
	}{
		{
			name: "AmazonReport",
			header: []string{
				"Order ID", "Order Date", "ASIN", "Title", "Brand",
				"Item Quantity", "Payment Reference ID", "Payment Date",
				"Payment Amount", "Payment Instrument Type",
			},
			want: importer.FormatAmazon,
		},
		{
			name: "AmexStatement",
			header: []string{
				"Date", "Description", "Amount", "Extended Details",
				"Appears On Your Statement As", "Reference", "Category",
			},
			want: importer.FormatAmex,
		},
		{
			name: "ChaseStatement",
			header: []string{
				"Transaction Date", "Post Date", "Description", "Category",
				"Type", "Amount", "Memo",
			},
			want: importer.FormatChase,
		},
		{
			name:   "GenericFallback",
			header: []string{"When", "What", "How Much"},
			want:   importer.FormatGeneric,
		},
		{
			// One overlapping column must not be enough to pick a dialect.
			name:   "SingleOverlapStaysGeneric",
			header: []string{"Date", "Payee", "Total"},
			want:   importer.FormatGeneric,
		},
		{
			// Two signature columns are still below the quorum of three.
			name:   "TwoOverlapsStayGeneric",
			header: []string{"Order ID", "ASIN", "Seller"},
			want:   importer.FormatGeneric,
		},
		{
			// The bare trio reaches the quorum but carries nothing
			// issuer-specific; it must route to the caller-mapped path.
			name:   "BareDateDescriptionAmountStaysGeneric",
			header: []string{"Date", "Description", "Amount"},
			want:   importer.FormatGeneric,
		},
		{
			name:   "AmexTrioPlusReference",
			header: []string{"Date", "Description", "Amount", "Reference"},
			want:   importer.FormatAmex,
		},
		{
			name:   "ChaseOverlapWithoutDistinctiveStaysGeneric",
			header: []string{"Description", "Type", "Amount"},
			want:   importer.FormatGeneric,
		},
		{
			name:   "NormalizesCaseAndWhitespace",
			header: []string{" order id ", "ASIN", "Payment Reference ID", "item quantity"},
			want:   importer.FormatAmazon,
		},
		{
			name:   "EmptyHeader",
			header: nil,
			want:   importer.FormatGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importer.Detect(tt.header))
		})
	}
}
