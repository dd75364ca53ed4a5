package domain

import "github.com/shopspring/decimal"

// DraftLine is one product/quantity pair inside an in-progress sale.
// Product is the snapshot taken when the line was first added.
type DraftLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Subtotal returns quantity * unit price for this line.
func (l DraftLine) Subtotal() decimal.Decimal {
	return l.Product.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineSummary is a DraftLine with its derived subtotal, ready for display.
type LineSummary struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Summary holds the derived figures of a draft order. It is recomputed from
// the lines on every read, never cached.
type Summary struct {
	Lines []LineSummary   `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Summarize computes subtotals and the order total for a set of lines.
func Summarize(lines []DraftLine) Summary {
	s := Summary{
		Lines: make([]LineSummary, 0, len(lines)),
		Total: decimal.Zero,
	}
	for _, l := range lines {
		sub := l.Subtotal()
		s.Lines = append(s.Lines, LineSummary{
			Product:  l.Product,
			Quantity: l.Quantity,
			Subtotal: sub,
		})
		s.Total = s.Total.Add(sub)
	}
	return s
}
