package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "123.45", want: 12345},
		{in: "1,234.56", want: 123456},
		{in: "1.234,56", want: 123456},
		{in: "-588.74", want: -58874},
		{in: "(12.00)", want: -1200},
		{in: "$ 19.99", want: 1999},
		{in: "$-3.50", want: -350},
		{in: `="123.45"`, want: 12345},
		{in: `="1,050.00"`, want: 105000},
		{in: "0.00", want: 0},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
