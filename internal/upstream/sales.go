package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// SaleItem is one {producto_id, cantidad} pair of the sale-creation payload.
type SaleItem struct {
	ProductID int64 `json:"producto_id"`
	Quantity  int   `json:"cantidad"`
}

// SalePayload is the sale-creation request body. Customer is null when the
// operator left the field empty.
type SalePayload struct {
	Customer *string    `json:"cliente"`
	Items    []SaleItem `json:"items"`
}

// Shortfall is one per-product deficit the upstream reports when authoritative
// stock was insufficient at submission time.
type Shortfall struct {
	ProductID int64  `json:"producto_id"`
	Name      string `json:"nombre"`
	Requested int    `json:"solicitado"`
	Available int    `json:"disponible"`
}

// SaleRejectedError is the upstream's validation rejection of a sale: a
// human-readable reason plus the itemized shortfalls, when present.
type SaleRejectedError struct {
	Reason     string
	Shortfalls []Shortfall
}

func (e *SaleRejectedError) Error() string {
	if len(e.Shortfalls) == 0 {
		return e.Reason
	}
	var b strings.Builder
	b.WriteString(e.Reason)
	for _, s := range e.Shortfalls {
		fmt.Fprintf(&b, "; %s: %d requested, %d in stock", s.Name, s.Requested, s.Available)
	}
	return b.String()
}

// InvoiceAttachment is the invoice artifact embedded in a successful sale
// reply, still base64-encoded as it came off the wire.
type InvoiceAttachment struct {
	Base64   string `json:"base64"`
	MIME     string `json:"mime"`
	Filename string `json:"filename"`
}

// SaleResult is a confirmed sale.
type SaleResult struct {
	SaleID   int64
	Date     string
	Customer string
	Total    decimal.Decimal
	Invoice  *InvoiceAttachment
}

type saleCreateResponse struct {
	OK    bool `json:"ok"`
	Venta *struct {
		ID       int64           `json:"id"`
		Date     string          `json:"fecha"`
		Customer string          `json:"cliente"`
		Total    decimal.Decimal `json:"total"`
	} `json:"venta"`
	Invoice *InvoiceAttachment `json:"invoice"`
}

type saleRejectResponse struct {
	Detail string      `json:"detail"`
	Items  []Shortfall `json:"items"`
}

// CreateSale submits a finalized draft. The three failure classes a caller
// must tell apart:
//   - *SaleRejectedError: the upstream refused the sale (stale stock etc.)
//   - transport errors wrapped by the breaker: the request never completed
//   - ErrMalformedResponse: the reply arrived but could not be decoded
func (c *Client) CreateSale(ctx context.Context, payload SalePayload) (*SaleResult, error) {
	status, body, err := c.doMutating(ctx, "/api/ventas/create/", payload)
	if err != nil {
		return nil, err
	}

	if status != http.StatusCreated && status != http.StatusOK {
		var rej saleRejectResponse
		if errDec := json.Unmarshal(body, &rej); errDec != nil || rej.Detail == "" {
			return nil, &APIError{StatusCode: status, Detail: "sale could not be registered"}
		}
		return nil, &SaleRejectedError{Reason: rej.Detail, Shortfalls: rej.Items}
	}

	var resp saleCreateResponse
	if errDec := json.Unmarshal(body, &resp); errDec != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, errDec)
	}
	if resp.Venta == nil || resp.Venta.ID == 0 {
		return nil, fmt.Errorf("%w: missing sale id", ErrMalformedResponse)
	}

	return &SaleResult{
		SaleID:   resp.Venta.ID,
		Date:     resp.Venta.Date,
		Customer: resp.Venta.Customer,
		Total:    resp.Venta.Total,
		Invoice:  resp.Invoice,
	}, nil
}
