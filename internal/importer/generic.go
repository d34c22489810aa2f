package importer

import (
	"fmt"
	"sort"

	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

// MappedField names a candidate field a generic CSV column can be mapped to.
type MappedField string

const (
	FieldName            MappedField = "name"
	FieldMerchant        MappedField = "merchant"
	FieldDescription     MappedField = "description"
	FieldTotal           MappedField = "total"
	FieldCurrencyCode    MappedField = "currency_code"
	FieldIssuedAt        MappedField = "issued_at"
	FieldType            MappedField = "type"
	FieldImportReference MappedField = "import_reference"
	FieldCategory        MappedField = "category"
	FieldProject         MappedField = "project"
)

// ColumnMapping maps zero-based column indices to candidate fields. Unmapped
// columns are dropped.
type ColumnMapping map[int]MappedField

// parseGeneric maps rows using a caller-supplied column mapping. There is no
// built-in layout for generic files: an empty mapping rejects the import.
func parseGeneric(rows [][]string, mapping ColumnMapping) ([]Row, error) {
	if len(mapping) == 0 {
		return nil, ErrNoColumnsMapped
	}

	result := make([]Row, 0, len(rows))

	for i, raw := range rows {
		row := Row{Number: i + 1, Raw: raw}

		candidate, err := mapGenericRow(raw, mapping)
		if err != nil {
			row.Err = err
		} else {
			row.Candidate = candidate
		}

		result = append(result, row)
	}

	return result, nil
}

func mapGenericRow(row []string, mapping ColumnMapping) (*Candidate, error) {
	c := &Candidate{}

	var (
		signedTotal int64
		totalSeen   bool
		typeMapped  bool
	)

	// Visit columns in order so two columns mapped to the same field resolve
	// deterministically (the rightmost non-empty one wins).
	indices := make([]int, 0, len(mapping))
	for idx := range mapping {
		indices = append(indices, idx)
	}

	sort.Ints(indices)

	for _, idx := range indices {
		field := mapping[idx]

		value := cellValue(row, idx)
		if value == "" {
			continue
		}

		switch field {
		case FieldName:
			c.Name = value
		case FieldMerchant:
			c.Merchant = value
		case FieldDescription:
			c.Description = value
		case FieldCurrencyCode:
			c.CurrencyCode = value
		case FieldImportReference:
			c.ImportReference = stripFormulaEscape(value)
		case FieldCategory:
			c.CategoryName = value
		case FieldProject:
			c.ProjectCode = value
		case FieldTotal:
			amount, err := parseAmount(value)
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", idx, err)
			}

			signedTotal = amount
			totalSeen = true
		case FieldIssuedAt:
			date, err := parseDate(value)
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", idx, err)
			}

			c.IssuedAt = date
		case FieldType:
			switch transaction.Type(value) {
			case transaction.TypeExpense, transaction.TypeIncome, transaction.TypeOther:
				c.Type = transaction.Type(value)
				typeMapped = true
			default:
				return nil, fmt.Errorf("column %d: unknown type %q", idx, value)
			}
		default:
			return nil, fmt.Errorf("column %d: unknown field %q", idx, field)
		}
	}

	if totalSeen {
		c.Total = abs(signedTotal)

		if !typeMapped {
			c.Type = transaction.TypeIncome
			if signedTotal < 0 {
				c.Type = transaction.TypeExpense
			}
		}
	}

	return c, nil
}
