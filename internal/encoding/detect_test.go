package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgermatch/internal/encoding"
)

func TestNewUTF8Reader_UTF8Passthrough(t *testing.T) {
	input := "Date,Description,Amount\n01/10/2024,Café Société,12.50\n"
	r, err := encoding.NewUTF8Reader(bytes.NewReader([]byte(input)))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(got))
}

func TestNewUTF8Reader_Windows1252(t *testing.T) {
	// Windows-1252 encoded "Café,12.50\n" (é = 0xE9).
	input := []byte{'C', 'a', 'f', 0xE9, ',', '1', '2', '.', '5', '0', '\n'}

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Café,12.50\n", string(got))
}

func TestNewUTF8Reader_UTF8BOM(t *testing.T) {
	// The UTF-8 BOM some exports prepend must be stripped, or the first
	// header cell would never match a dialect signature.
	bom := []byte{0xEF, 0xBB, 0xBF}
	content := []byte("Order ID,ASIN,Title\n")
	input := append(bom, content...)

	r, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Order ID,ASIN,Title\n", string(got))
}

func TestNewUTF8Reader_UTF16LE(t *testing.T) {
	content := "Date,Amount\n"

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFE})

	for _, r := range content {
		buf.WriteByte(byte(r))
		buf.WriteByte(0x00)
	}

	r, err := encoding.NewUTF8Reader(&buf)
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}
