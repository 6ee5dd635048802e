package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransactionFailed covers contention and infrastructure faults
	// during the atomic commit; safe for the caller to retry.
	ErrTransactionFailed = errors.New("order transaction failed")
)

// ValidationError reports malformed checkout input. Not retryable
// without correcting the request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ProductsNotFoundError carries every missing product id so the caller
// can fix the cart in one pass.
type ProductsNotFoundError struct {
	IDs []uint
}

func (e *ProductsNotFoundError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = fmt.Sprint(id)
	}
	return "products not found: " + strings.Join(parts, ", ")
}

// StockShortage describes one product the order wants more of than is
// available.
type StockShortage struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError carries the full shortage list; validation is
// batch, not fail-fast, so the shopper sees every problem at once.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Shortages))
}
