package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when a product id is absent from the
	// catalog or from the current draft.
	ErrProductNotFound = errors.New("product not found")
)

// StockLimitError reports a local stock check failure. It names the product
// and the units known to be available so the UI can show a concrete warning.
type StockLimitError struct {
	ProductName string
	Available   int
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("stock limit reached for %s (%d units available)", e.ProductName, e.Available)
}
