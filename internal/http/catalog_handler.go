package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/daguilastro/Los5deSergito/internal/catalog"
	"github.com/daguilastro/Los5deSergito/internal/domain"
)

type CatalogHandler struct {
	catalog *catalog.Service
	timeout time.Duration
	logger  *zap.Logger
}

func NewCatalogHandler(catalog *catalog.Service, timeout time.Duration, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}
}

type ProductListResponse struct {
	Items []domain.Product `json:"items"`
	Count int              `json:"count"`
}

// GET /api/v1/products
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.List(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductListResponse{Items: products, Count: len(products)})
}

// GET /api/v1/alerts lists the products below their minimum stock.
func (h *CatalogHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.LowStock(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ProductListResponse{Items: products, Count: len(products)})
}

func (h *CatalogHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("catalog fetch failed",
		zap.String("request_id", getRequestID(r.Context())),
		zap.Error(err))
	respondError(w, http.StatusBadGateway, "upstream_error", "could not load the product list")
}
