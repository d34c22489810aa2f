package matching

import (
	"time"

	"github.com/MrJamesThe3rd/ledgermatch/internal/importer"
	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

// ValidateMerge rejects a pairing the Merge must never apply: differing
// amounts, or two present-but-different currency codes. The Finder already
// filters on exact amount; this is a safety net so a Finder bug cannot
// corrupt stored data.
func ValidateMerge(tx *transaction.Transaction, c *importer.Candidate) error {
	if tx.Amount != c.Total {
		return ErrAmountMismatch
	}

	if tx.CurrencyCode != "" && c.CurrencyCode != "" && tx.CurrencyCode != c.CurrencyCode {
		return ErrCurrencyMismatch
	}

	return nil
}

// Merge applies the conservative field policy to tx in place and returns the
// names of the fields that substantively changed. Category, project, note and
// extra metadata represent human curation and are never touched. The
// last-matched timestamp is always stamped, but a timestamp-only merge
// returns an empty field list so callers do not report a contentless merge.
func Merge(tx *transaction.Transaction, c *importer.Candidate, now time.Time) []string {
	var merged []string

	// More detail wins: only a strictly longer description replaces the
	// existing one.
	if c.Description != "" && len(c.Description) > len(tx.Description) {
		tx.Description = c.Description
		merged = append(merged, "description")
	}

	if tx.Merchant == "" && c.Merchant != "" {
		tx.Merchant = c.Merchant
		merged = append(merged, "merchant")
	}

	if tx.Name == "" && c.Name != "" {
		tx.Name = c.Name
		merged = append(merged, "name")
	}

	if tx.ImportReference == "" && c.ImportReference != "" {
		tx.ImportReference = c.ImportReference
		merged = append(merged, "import_reference")
	}

	if appended := appendFiles(tx, c.Files); appended {
		merged = append(merged, "files")
	}

	tx.LastMatchedAt = &now

	return merged
}

// appendFiles adds candidate file references not already attached. Existing
// attachments are never replaced.
func appendFiles(tx *transaction.Transaction, files []transaction.FileRef) bool {
	if len(files) == 0 {
		return false
	}

	existing := make(map[string]bool, len(tx.Files))
	for _, f := range tx.Files {
		existing[f.ID.String()] = true
	}

	appended := false

	for _, f := range files {
		if existing[f.ID.String()] {
			continue
		}

		tx.Files = append(tx.Files, f)
		appended = true
	}

	return appended
}
