package importer

import (
	"fmt"

	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

// cardProfile describes the column layout and sign convention of a card
// issuer statement export. Adding an issuer is adding a profile plus a
// detection signature.
type cardProfile struct {
	name string

	dateCol     string
	descCol     string
	amountCol   string
	merchantCol string // optional, e.g. "appears on your statement as"
	categoryCol string // optional free-text category
	refCol      string // optional stable reference

	// positiveIsExpense: Amex exports charges as positive amounts, Chase as
	// negative.
	positiveIsExpense bool
}

var cardProfiles = map[Format]cardProfile{
	FormatAmex: {
		name:              "amex",
		dateCol:           "date",
		descCol:           "description",
		amountCol:         "amount",
		merchantCol:       "appears on your statement as",
		categoryCol:       "category",
		refCol:            "reference",
		positiveIsExpense: true,
	},
	FormatChase: {
		name:              "chase",
		dateCol:           "transaction date",
		descCol:           "description",
		amountCol:         "amount",
		categoryCol:       "category",
		positiveIsExpense: false,
	},
}

func parseCard(profile cardProfile, header []string, rows [][]string) ([]Row, error) {
	cols := indexHeader(header)

	for _, required := range []string{profile.dateCol, profile.descCol, profile.amountCol} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s statement missing required column %q", profile.name, required)
		}
	}

	result := make([]Row, 0, len(rows))

	for i, raw := range rows {
		row := Row{Number: i + 1, Raw: raw}

		candidate, err := profile.mapRow(cols, raw)
		if err != nil {
			row.Err = err
		} else {
			row.Candidate = candidate
		}

		result = append(result, row)
	}

	return result, nil
}

func (p cardProfile) mapRow(cols colIndex, row []string) (*Candidate, error) {
	date, err := parseDate(cols.cell(row, p.dateCol))
	if err != nil {
		return nil, fmt.Errorf("parsing date: %w", err)
	}

	desc := cols.cell(row, p.descCol)
	if desc == "" {
		return nil, fmt.Errorf("missing description")
	}

	amount, err := parseAmount(cols.cell(row, p.amountCol))
	if err != nil {
		return nil, fmt.Errorf("parsing amount: %w", err)
	}

	txType := transaction.TypeIncome
	if (amount > 0) == p.positiveIsExpense {
		txType = transaction.TypeExpense
	}

	merchant := ""
	if p.merchantCol != "" {
		merchant = cols.cell(row, p.merchantCol)
	}

	category := ""
	if p.categoryCol != "" {
		category = cols.cell(row, p.categoryCol)
	}

	ref := ""
	if p.refCol != "" {
		ref = stripFormulaEscape(cols.cell(row, p.refCol))
	}

	if ref == "" {
		// Deterministic composite so re-importing the same statement finds
		// the previously created record by reference.
		ref = compositeReference(date.Format("2006-01-02"), desc, amount)
	}

	return &Candidate{
		Description:     desc,
		Merchant:        merchant,
		Total:           abs(amount),
		IssuedAt:        date,
		Type:            txType,
		ImportReference: ref,
		CategoryName:    category,
	}, nil
}

func compositeReference(date, description string, amount int64) string {
	return fmt.Sprintf("%s|%s|%d", date, description, amount)
}
