package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// DashboardSummary mirrors the upstream dashboard payload. The gateway serves
// it as-is, so the wire field names are kept on both sides.
type DashboardSummary struct {
	Period struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	} `json:"period"`
	MonthSales struct {
		Value    float64  `json:"value"`
		DeltaPct *float64 `json:"delta_pct_vs_prev"`
	} `json:"ventas_mes"`
	Inventory struct {
		Units int `json:"units"`
	} `json:"inventario"`
	SalesByMonth []MonthlyTotal `json:"ventas_por_mes"`
	TopProducts  []TopProduct   `json:"top_productos_mes"`
}

type MonthlyTotal struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
}

type TopProduct struct {
	Product string `json:"producto"`
	Units   int    `json:"unidades"`
}

// DashboardSummary fetches the main-page metrics.
func (c *Client) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/dashboard/summary/", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	var resp DashboardSummary
	if errDec := json.Unmarshal(body, &resp); errDec != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, errDec)
	}
	return &resp, nil
}
