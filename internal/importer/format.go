package importer

import "strings"

// Format identifies a known CSV dialect.
type Format string

const (
	FormatAmazon  Format = "amazon"
	FormatAmex    Format = "amex"
	FormatChase   Format = "chase"
	FormatGeneric Format = "generic"
)

// signatureQuorum is how many signature columns a header must contain before
// a dialect is selected. A single overlapping name ("Date", "Description")
// is common in unrelated exports and must not trigger a dialect.
const signatureQuorum = 3

// signature lists the header columns characteristic of one dialect,
// normalized to lowercase. Columns like "date" or "amount" appear in
// arbitrary exports and only count toward the quorum; at least one
// distinctive column must also be present before the dialect is selected,
// otherwise a plain three-column CSV would shadow the generic path.
type signature struct {
	format Format

	common      []string
	distinctive []string
}

// signatures is checked in order; the first dialect satisfying the quorum
// wins. More specific dialects come first.
var signatures = []signature{
	{
		format: FormatAmazon,
		distinctive: []string{
			"order id",
			"asin",
			"payment reference id",
			"charge identifier",
			"payment instrument type",
			"item quantity",
		},
	},
	{
		format: FormatAmex,
		common: []string{
			"date",
			"description",
			"amount",
		},
		distinctive: []string{
			"extended details",
			"appears on your statement as",
			"reference",
		},
	},
	{
		format: FormatChase,
		common: []string{
			"description",
			"type",
			"amount",
		},
		distinctive: []string{
			"transaction date",
			"post date",
			"memo",
		},
	},
}

// Detect classifies a header row into a known dialect, falling back to
// FormatGeneric. It never fails: unrecognized headers simply mean the caller
// must supply an explicit column mapping.
func Detect(header []string) Format {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.ToLower(strings.TrimSpace(col))] = true
	}

	for _, sig := range signatures {
		matches := 0

		for _, col := range sig.common {
			if present[col] {
				matches++
			}
		}

		distinctiveMatches := 0

		for _, col := range sig.distinctive {
			if present[col] {
				distinctiveMatches++
			}
		}

		if matches+distinctiveMatches >= signatureQuorum && distinctiveMatches > 0 {
			return sig.format
		}
	}

	return FormatGeneric
}
