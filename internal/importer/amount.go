package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses a locale-flexible currency string into signed minor
// units. It tolerates thousands separators, currency symbols,
// parentheses-as-negative and spreadsheet formula escaping (a cell exported
// as ="123.45").
//
// Examples: "1,234.56" -> 123456, "(12.00)" -> -1200, "$ -3.50" -> -350,
// `="19.99"` -> 1999.
func parseAmount(s string) (int64, error) {
	clean := stripFormulaEscape(strings.TrimSpace(s))
	if clean == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false

	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		negative = true
		clean = clean[1 : len(clean)-1]
	}

	clean = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ' ', ' ':
			return -1
		}

		return r
	}, clean)

	// "1.234,56" style exports use comma as the decimal separator; detect it
	// by the rightmost separator.
	lastComma := strings.LastIndex(clean, ",")
	lastDot := strings.LastIndex(clean, ".")

	if lastComma > lastDot {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	cents := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if negative {
		cents = -cents
	}

	return cents, nil
}

// stripFormulaEscape unwraps values exported as ="123.45", which spreadsheet
// tools emit to stop long numbers being mangled into scientific notation.
func stripFormulaEscape(s string) string {
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		return s[2 : len(s)-1]
	}

	return s
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
