package view

import (
	"context"
	"fmt"
	"time"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats an amount stored as minor units into a human-readable
// string, with the currency code when known.
func FormatAmount(minor int64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", float64(minor)/100.0)
	}

	return fmt.Sprintf("%.2f %s", float64(minor)/100.0, currency)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
