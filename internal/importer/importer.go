// Package importer turns raw statement-export CSV rows into transaction
// candidates. Each supported dialect (Amazon Business order reports, card
// issuer statements, caller-mapped generic files) has its own mapper behind
// the Service.Parse dispatch; format detection is handled by Detect.
package importer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyFile is returned when a file contains a header but no data
	// rows. Surfaced to the caller before any batch is created.
	ErrEmptyFile = errors.New("no data rows in file")

	// ErrNoColumnsMapped is returned for generic imports without at least
	// one mapped column.
	ErrNoColumnsMapped = errors.New("at least one column must be mapped")
)

// ParseOptions carries per-import parsing inputs. ColumnMapping is only
// consulted for FormatGeneric.
type ParseOptions struct {
	ColumnMapping ColumnMapping
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Parse maps raw data rows (header excluded) to candidate rows. The returned
// slice has one entry per input row for row-per-transaction dialects, and one
// entry per aggregated order for Amazon reports. Rows that fail to map carry
// a per-row error; dialect-level problems (missing required columns, empty
// file) fail the whole parse.
func (s *Service) Parse(format Format, header []string, rows [][]string, opts ParseOptions) ([]Row, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	switch format {
	case FormatAmazon:
		return parseAmazon(header, rows)
	case FormatAmex, FormatChase:
		profile, ok := cardProfiles[format]
		if !ok {
			return nil, fmt.Errorf("no card profile for format %q", format)
		}

		return parseCard(profile, header, rows)
	case FormatGeneric:
		return parseGeneric(rows, opts.ColumnMapping)
	}

	return nil, fmt.Errorf("unknown format: %s", format)
}

// colIndex maps normalized column names to their position in the header.
type colIndex map[string]int

func indexHeader(header []string) colIndex {
	cols := make(colIndex, len(header))

	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		if name != "" {
			cols[name] = i
		}
	}

	return cols
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

// cell looks a column up by name and returns its value for the row.
func (c colIndex) cell(row []string, name string) string {
	idx, ok := c[name]
	if !ok {
		return ""
	}

	return cellValue(row, idx)
}

// dateLayouts are tried in order when parsing statement dates. ISO first:
// it is unambiguous and what Amazon reports ship.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"2006/01/02",
}

func parseDate(s string) (time.Time, error) {
	s = stripFormulaEscape(strings.TrimSpace(s))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
