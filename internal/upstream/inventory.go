package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/daguilastro/Los5deSergito/internal/domain"
)

// RestockRequest adds stock to a product, addressed by id or by exact name.
type RestockRequest struct {
	ProductID *int64 `json:"producto_id,omitempty"`
	Name      string `json:"nombre,omitempty"`
	Quantity  int    `json:"cantidad"`
	Reason    string `json:"motivo,omitempty"`
	Date      string `json:"fecha,omitempty"`
}

// UpdateProductRequest edits a product; every field but ID is optional.
// DeltaStock may be negative, the upstream refuses adjustments below zero.
type UpdateProductRequest struct {
	ID          int64            `json:"id"`
	Name        string           `json:"nombre,omitempty"`
	UnitPrice   *decimal.Decimal `json:"precio_unitario,omitempty"`
	MinStock    *int             `json:"stock_minimo,omitempty"`
	DeltaStock  *int             `json:"delta_stock,omitempty"`
	Description string           `json:"descripcion,omitempty"`
	Reason      string           `json:"motivo,omitempty"`
	Date        string           `json:"fecha,omitempty"`
}

type productEnvelope struct {
	OK       bool        `json:"ok"`
	Producto *productRow `json:"producto"`
}

// Restock registers an inbound inventory movement and returns the updated
// product.
func (c *Client) Restock(ctx context.Context, req RestockRequest) (domain.Product, error) {
	return c.mutateProduct(ctx, "/api/productos/add/", req)
}

// UpdateProduct edits name, price, minimum stock and optionally adjusts stock.
func (c *Client) UpdateProduct(ctx context.Context, req UpdateProductRequest) (domain.Product, error) {
	return c.mutateProduct(ctx, "/api/productos/update/", req)
}

func (c *Client) mutateProduct(ctx context.Context, path string, payload any) (domain.Product, error) {
	status, body, err := c.doMutating(ctx, path, payload)
	if err != nil {
		return domain.Product{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return domain.Product{}, apiError(status, body)
	}

	var resp productEnvelope
	if errDec := json.Unmarshal(body, &resp); errDec != nil || resp.Producto == nil {
		return domain.Product{}, fmt.Errorf("%w: missing product", ErrMalformedResponse)
	}
	return resp.Producto.toDomain(), nil
}

// DeleteProduct removes a product. Without force the upstream refuses with
// 409 when the product has sales attached.
func (c *Client) DeleteProduct(ctx context.Context, id int64, force bool) error {
	payload := struct {
		ID    int64 `json:"id"`
		Force bool  `json:"force,omitempty"`
	}{ID: id, Force: force}

	status, body, err := c.doMutating(ctx, "/api/productos/delete/", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, body)
	}
	return nil
}
