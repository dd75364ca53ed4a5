package domain

import "github.com/shopspring/decimal"

// Product is a snapshot of one catalog row as the upstream reported it.
// Stock figures are authoritative only at fetch time; the upstream re-validates
// every sale against its own numbers.
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	CurrentStock int             `json:"current_stock"`
	MinStock     int             `json:"min_stock"`
}

// InStock reports whether at least one unit can still be added locally.
func (p Product) InStock() bool {
	return p.CurrentStock > 0
}
