package importer

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/ledgermatch/internal/transaction"
)

const amazonProvider = "Amazon"

// Amazon Business order reports are row-per-line-item: an order with three
// items arrives as three rows sharing the same Order ID and Payment
// Reference ID. Aggregation groups them back into one charge before mapping,
// because the external statement being reconciled against carries one line
// per payment, not per item.
const (
	amzColOrderID       = "order id"
	amzColOrderDate     = "order date"
	amzColPaymentRef    = "payment reference id"
	amzColPaymentDate   = "payment date"
	amzColPaymentAmount = "payment amount"
	amzColPaymentInstr  = "payment instrument type"
	amzColCurrency      = "currency"
	amzColASIN          = "asin"
	amzColTitle         = "title"
	amzColBrand         = "brand"
	amzColQuantity      = "item quantity"
	amzColSubtotal      = "item subtotal"
	amzColShipping      = "shipping charge"
	amzColPromotion     = "total promotions"
	amzColTax           = "item tax"
	amzColNetTotal      = "item net total"
	amzColInvoiceNumber = "invoice number"
	amzColPONumber      = "purchase order number"
)

// businessCols are order-level purchasing metadata carried through to the
// candidate's extra map under the same keys.
var businessCols = map[string]string{
	"gl code":        "gl_code",
	"department":     "department",
	"cost center":    "cost_center",
	"location":       "location",
	"custom field 1": "custom_field_1",
}

// amazonOrder is the immutable aggregate of one (orderID, paymentRef) group.
type amazonOrder struct {
	orderID        string
	paymentRef     string
	paymentAmount  int64
	paymentDate    time.Time
	paymentInstr   string
	currency       string
	projectCode    string
	invoiceNumber  string
	poNumber       string
	business       map[string]string
	items          []Item
	brand          string
	totalQuantity  int
	firstRow       []string
	firstRowNumber int
}

func parseAmazon(header []string, rows [][]string) ([]Row, error) {
	cols := indexHeader(header)

	for _, required := range []string{amzColOrderID, amzColPaymentRef, amzColPaymentAmount, amzColPaymentDate} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("amazon report missing required column %q", required)
		}
	}

	orders := aggregateAmazonRows(cols, rows)

	result := make([]Row, 0, len(orders))
	for _, order := range orders {
		result = append(result, Row{
			Number:    order.firstRowNumber,
			Raw:       order.firstRow,
			Candidate: order.candidate(),
		})
	}

	return result, nil
}

// aggregateAmazonRows folds line-item rows into one order per
// (orderID, paymentRef) group, preserving first-seen order. Order-level
// fields come from the first row of each group; rows without a valid item
// identifier are dropped with a warning, and groups left with zero items are
// dropped entirely.
func aggregateAmazonRows(cols colIndex, rows [][]string) []*amazonOrder {
	var keys []string

	groups := make(map[string]*amazonOrder)

	for i, row := range rows {
		rowNumber := i + 1

		orderID := stripFormulaEscape(cols.cell(row, amzColOrderID))
		paymentRef := stripFormulaEscape(cols.cell(row, amzColPaymentRef))

		if orderID == "" {
			slog.Warn("skipping amazon row without order id", "row", rowNumber)
			continue
		}

		key := orderID + "|" + paymentRef

		order, ok := groups[key]
		if !ok {
			order = newAmazonOrder(cols, row, rowNumber, orderID, paymentRef)
			groups[key] = order
			keys = append(keys, key)
		}

		item, ok := amazonItem(cols, row)
		if !ok {
			slog.Warn("skipping amazon row without item identifier",
				"row", rowNumber, "order_id", orderID)
			continue
		}

		if len(order.items) == 0 {
			order.brand = cols.cell(row, amzColBrand)
		}

		order.items = append(order.items, item)
		order.totalQuantity += item.Quantity
	}

	orders := make([]*amazonOrder, 0, len(keys))

	for _, key := range keys {
		order := groups[key]
		if len(order.items) == 0 {
			slog.Warn("dropping amazon order without valid items",
				"order_id", order.orderID, "payment_reference_id", order.paymentRef)
			continue
		}

		orders = append(orders, order)
	}

	return orders
}

// newAmazonOrder extracts order-level fields from the first row of a group.
// The amount and date are the payment amount and payment date, never a sum
// of item subtotals or the order date: the payment is what appears on the
// statement this order will be reconciled against.
func newAmazonOrder(cols colIndex, row []string, rowNumber int, orderID, paymentRef string) *amazonOrder {
	order := &amazonOrder{
		orderID:        orderID,
		paymentRef:     paymentRef,
		paymentInstr:   cols.cell(row, amzColPaymentInstr),
		currency:       cols.cell(row, amzColCurrency),
		projectCode:    cols.cell(row, "project code"),
		invoiceNumber:  stripFormulaEscape(cols.cell(row, amzColInvoiceNumber)),
		poNumber:       stripFormulaEscape(cols.cell(row, amzColPONumber)),
		business:       make(map[string]string),
		firstRow:       row,
		firstRowNumber: rowNumber,
	}

	if amount, err := parseAmount(cols.cell(row, amzColPaymentAmount)); err == nil {
		order.paymentAmount = abs(amount)
	}

	if date, err := parseDate(cols.cell(row, amzColPaymentDate)); err == nil {
		order.paymentDate = date
	}

	for col, key := range businessCols {
		if v := cols.cell(row, col); v != "" {
			order.business[key] = v
		}
	}

	return order
}

// amazonItem extracts one line item from a row. Rows without an ASIN do not
// describe a purchasable item (shipping-only adjustment lines and the like).
func amazonItem(cols colIndex, row []string) (Item, bool) {
	asin := stripFormulaEscape(cols.cell(row, amzColASIN))
	if asin == "" {
		return Item{}, false
	}

	item := Item{
		Reference: asin,
		Name:      cols.cell(row, amzColTitle),
		Quantity:  1,
	}

	if qty := cols.cell(row, amzColQuantity); qty != "" {
		if n, err := parseAmount(qty); err == nil && n > 0 {
			// parseAmount scales by 100; quantities are whole numbers.
			item.Quantity = int(n / 100)
		}
	}

	item.Subtotal = optionalAmount(cols.cell(row, amzColSubtotal))
	item.Shipping = optionalAmount(cols.cell(row, amzColShipping))
	item.Promotion = optionalAmount(cols.cell(row, amzColPromotion))
	item.Tax = optionalAmount(cols.cell(row, amzColTax))
	item.Total = optionalAmount(cols.cell(row, amzColNetTotal))

	return item, true
}

func optionalAmount(s string) int64 {
	if s == "" {
		return 0
	}

	amount, err := parseAmount(s)
	if err != nil {
		return 0
	}

	return amount
}

// candidate maps the aggregated order to a transaction candidate.
func (o *amazonOrder) candidate() *Candidate {
	merchant := amazonProvider
	if o.brand != "" {
		merchant = amazonProvider + " - " + o.brand
	}

	return &Candidate{
		Merchant:        merchant,
		Name:            o.candidateName(),
		Description:     o.candidateDescription(),
		Total:           o.paymentAmount,
		CurrencyCode:    o.currency,
		IssuedAt:        o.paymentDate,
		Type:            transaction.TypeExpense,
		ImportReference: fmt.Sprintf("amazon:%s:%s", o.orderID, o.paymentRef),
		ProjectCode:     o.projectCode,
		Items:           o.items,
		Extra:           o.extra(),
	}
}

const maxNameLen = 60

func (o *amazonOrder) candidateName() string {
	if len(o.items) == 1 {
		return truncate(o.items[0].Name, maxNameLen)
	}

	return fmt.Sprintf("%d items from %s", len(o.items), amazonProvider)
}

// candidateDescription joins up to three "<qty>x <title>" entries, with an
// "and N more" suffix for larger orders.
func (o *amazonOrder) candidateDescription() string {
	const maxListed = 3

	parts := make([]string, 0, maxListed)
	for i, item := range o.items {
		if i == maxListed {
			break
		}

		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}

	desc := strings.Join(parts, "; ")
	if len(o.items) > maxListed {
		desc += fmt.Sprintf(" and %d more", len(o.items)-maxListed)
	}

	return desc
}

func (o *amazonOrder) extra() map[string]string {
	extra := map[string]string{
		"order_id":             o.orderID,
		"payment_reference_id": o.paymentRef,
		"item_count":           strconv.Itoa(len(o.items)),
		"total_quantity":       strconv.Itoa(o.totalQuantity),
	}

	if o.paymentInstr != "" {
		extra["payment_instrument"] = o.paymentInstr
	}

	if o.invoiceNumber != "" {
		extra["invoice_number"] = o.invoiceNumber
	}

	if o.poNumber != "" {
		extra["purchase_order_number"] = o.poNumber
	}

	for k, v := range o.business {
		extra[k] = v
	}

	return extra
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-1]) + "…"
}
