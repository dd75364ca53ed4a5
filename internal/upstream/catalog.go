package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/daguilastro/Los5deSergito/internal/domain"
)

// productRow is one catalog row as the upstream serializes it. The unit price
// is stored as TEXT server-side and may arrive quoted or as a bare number;
// decimal.Decimal accepts both.
type productRow struct {
	ID        int64           `json:"id"`
	Name      string          `json:"nombre"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
	Stock     int             `json:"stock_actual"`
	MinStock  int             `json:"stock_minimo"`
}

type productListResponse struct {
	Items []productRow `json:"items"`
	Count int          `json:"count"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:           r.ID,
		Name:         r.Name,
		UnitPrice:    r.UnitPrice,
		CurrentStock: r.Stock,
		MinStock:     r.MinStock,
	}
}

// ListProducts fetches the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return c.fetchProductList(ctx, "/api/productos/")
}

// LowStockAlerts fetches the products whose stock sits below their minimum.
func (c *Client) LowStockAlerts(ctx context.Context) ([]domain.Product, error) {
	return c.fetchProductList(ctx, "/api/inventario/alertas/")
}

func (c *Client) fetchProductList(ctx context.Context, path string) ([]domain.Product, error) {
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	var resp productListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	products := make([]domain.Product, 0, len(resp.Items))
	for _, row := range resp.Items {
		products = append(products, row.toDomain())
	}
	return products, nil
}
