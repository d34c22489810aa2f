package importer

import (
	"time"

	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

// Candidate is a parsed, not-yet-persisted transaction derived from one input
// row (or one aggregated group of rows). It is either merged into an existing
// transaction or used to create a new one; it is never stored as-is.
type Candidate struct {
	Name        string `json:"name,omitempty"`
	Merchant    string `json:"merchant,omitempty"`
	Description string `json:"description,omitempty"`

	// Total is in minor currency units, always non-negative; Type carries
	// the sign.
	Total        int64            `json:"total"`
	CurrencyCode string           `json:"currency_code,omitempty"`
	IssuedAt     time.Time        `json:"issued_at"`
	Type         transaction.Type `json:"type"`

	// ImportReference is a stable external id when the source provides one,
	// or a deterministic composite fallback.
	ImportReference string `json:"import_reference,omitempty"`

	// CategoryName is a free-text hint resolved against the category store
	// when the candidate becomes a transaction.
	CategoryName string `json:"category_name,omitempty"`
	ProjectCode  string `json:"project_code,omitempty"`

	Items []Item                `json:"items,omitempty"`
	Files []transaction.FileRef `json:"files,omitempty"`
	Extra map[string]string     `json:"extra,omitempty"`
}

// Item is a line item of an aggregated order candidate.
type Item struct {
	Reference string `json:"reference"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Shipping  int64  `json:"shipping"`
	Promotion int64  `json:"promotion"`
	Tax       int64  `json:"tax"`
	Total     int64  `json:"total"`
}

// HasAmountAndDate reports whether the candidate carries enough data to be
// matched against the transaction store.
func (c *Candidate) HasAmountAndDate() bool {
	return c.Total != 0 && !c.IssuedAt.IsZero()
}

// Row pairs one parsed candidate with the raw input it came from. Rows that
// failed to map carry Err instead of a candidate; the batch orchestrator
// turns those into per-row errors without aborting the run.
type Row struct {
	Number    int // 1-based position in the source file, header excluded
	Raw       []string
	Candidate *Candidate
	Err       error
}
