package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/daguilastro/Los5deSergito/internal/catalog"
	"github.com/daguilastro/Los5deSergito/internal/domain"
	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

// InventoryMutator is the upstream write surface for inventory maintenance.
type InventoryMutator interface {
	Restock(ctx context.Context, req upstream.RestockRequest) (domain.Product, error)
	UpdateProduct(ctx context.Context, req upstream.UpdateProductRequest) (domain.Product, error)
	DeleteProduct(ctx context.Context, id int64, force bool) error
}

type InventoryHandler struct {
	upstream InventoryMutator
	catalog  *catalog.Service
	timeout  time.Duration
	logger   *zap.Logger
}

func NewInventoryHandler(upstream InventoryMutator, catalog *catalog.Service, timeout time.Duration, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		upstream: upstream,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger,
	}
}

type ProductResponseDTO struct {
	Product domain.Product `json:"product"`
}

// POST /api/v1/inventory/restock
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req upstream.RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == nil && req.Name == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "send producto_id or nombre")
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	product, err := h.upstream.Restock(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.catalog.Invalidate(ctx)
	respondJSON(w, http.StatusCreated, ProductResponseDTO{Product: product})
}

// POST /api/v1/inventory/update
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req upstream.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "unit price must not be negative")
		return
	}

	product, err := h.upstream.UpdateProduct(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.catalog.Invalidate(ctx)
	respondJSON(w, http.StatusOK, ProductResponseDTO{Product: product})
}

type DeleteProductRequestDTO struct {
	ID    int64 `json:"id"`
	Force bool  `json:"force"`
}

// POST /api/v1/inventory/delete
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req DeleteProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	if err := h.upstream.DeleteProduct(ctx, req.ID, req.Force); err != nil {
		h.fail(w, r, err)
		return
	}
	h.catalog.Invalidate(ctx)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// fail maps upstream replies onto gateway responses, keeping the upstream's
// status and reason for business rejections (404 unknown product, 409 product
// with sales attached).
func (h *InventoryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		respondError(w, apiErr.StatusCode, "upstream_rejected", apiErr.Detail)
		return
	}

	h.logger.Error("inventory mutation failed",
		zap.String("request_id", getRequestID(r.Context())),
		zap.Error(err))
	respondError(w, http.StatusBadGateway, "upstream_error", "could not apply the inventory change")
}
