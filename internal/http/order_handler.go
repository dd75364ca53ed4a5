package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/daguilastro/Los5deSergito/internal/catalog"
	"github.com/daguilastro/Los5deSergito/internal/domain"
	"github.com/daguilastro/Los5deSergito/internal/invoice"
	"github.com/daguilastro/Los5deSergito/internal/order"
	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

type OrderHandler struct {
	drafts   *order.Store
	catalog  *catalog.Service
	invoices *invoice.Vault
	timeout  time.Duration
	logger   *zap.Logger
}

func NewOrderHandler(drafts *order.Store, catalog *catalog.Service, invoices *invoice.Vault, timeout time.Duration, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		drafts:   drafts,
		catalog:  catalog,
		invoices: invoices,
		timeout:  timeout,
		logger:   logger,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

// UpdateQuantityRequestDTO carries the raw quantity field: the input box
// sends a string, programmatic callers send a number. Both are accepted.
type UpdateQuantityRequestDTO struct {
	Quantity json.RawMessage `json:"quantity"`
}

type DraftResponseDTO struct {
	Draft   order.View `json:"draft"`
	Warning string     `json:"warning,omitempty"`
}

type SubmitResponseDTO struct {
	SaleID  int64           `json:"sale_id"`
	Message string          `json:"message"`
	Invoice *InvoiceInfoDTO `json:"invoice,omitempty"`
}

type InvoiceInfoDTO struct {
	Filename    string `json:"filename"`
	MIME        string `json:"mime"`
	Size        int    `json:"size"`
	DownloadURL string `json:"download_url"`
}

// GET /api/v1/order
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	builder, ok := h.builder(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, DraftResponseDTO{Draft: builder.View()})
}

// POST /api/v1/order/items adds one unit of a product to the draft.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	builder, ok := h.builder(w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product, err := h.catalog.Get(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		h.handleUpstreamError(w, r, err)
		return
	}

	if err := builder.AddProduct(product); err != nil {
		var limit *domain.StockLimitError
		if errors.As(err, &limit) {
			respondError(w, http.StatusConflict, "stock_limit", limit.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not add product")
		return
	}

	respondJSON(w, http.StatusCreated, DraftResponseDTO{Draft: builder.View()})
}

// PUT /api/v1/order/items/{product_id} replaces a line's quantity. Zero or an
// empty string removes the line; a quantity above the stock snapshot is
// clamped and the warning returned alongside the updated draft.
func (h *OrderHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	builder, ok := h.builder(w, r)
	if !ok {
		return
	}

	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	quantity, parsed := parseQuantityField(req.Quantity)
	if !parsed {
		// Unparsable input is ignored: no mutation, current draft returned.
		respondJSON(w, http.StatusOK, DraftResponseDTO{Draft: builder.View()})
		return
	}

	var warning string
	if err := builder.SetQuantity(productID, quantity); err != nil {
		var limit *domain.StockLimitError
		switch {
		case errors.As(err, &limit):
			warning = limit.Error()
		case errors.Is(err, domain.ErrProductNotFound):
			respondError(w, http.StatusNotFound, "not_found", "product not in draft")
			return
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", "could not update quantity")
			return
		}
	}

	respondJSON(w, http.StatusOK, DraftResponseDTO{Draft: builder.View(), Warning: warning})
}

type SetCustomerRequestDTO struct {
	Customer string `json:"customer"`
}

// PUT /api/v1/order/customer
func (h *OrderHandler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	builder, ok := h.builder(w, r)
	if !ok {
		return
	}

	var req SetCustomerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	builder.SetCustomer(req.Customer)
	respondJSON(w, http.StatusOK, DraftResponseDTO{Draft: builder.View()})
}

// POST /api/v1/order/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	builder, ok := h.builder(w, r)
	if !ok {
		return
	}
	builder.Cancel()
	respondJSON(w, http.StatusOK, DraftResponseDTO{Draft: builder.View()})
}

// POST /api/v1/order/submit
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	builder, ok := h.builder(w, r)
	if !ok {
		return
	}

	receipt, err := builder.Submit(ctx)
	if err != nil {
		h.handleSubmitError(w, r, err)
		return
	}

	resp := SubmitResponseDTO{
		SaleID:  receipt.SaleID,
		Message: fmt.Sprintf("sale #%d registered", receipt.SaleID),
	}
	if receipt.Invoice != nil {
		h.invoices.Put(receipt.SaleID, receipt.Invoice)
		resp.Invoice = &InvoiceInfoDTO{
			Filename:    receipt.Invoice.Filename,
			MIME:        receipt.Invoice.MIME,
			Size:        len(receipt.Invoice.Content),
			DownloadURL: fmt.Sprintf("/api/v1/order/invoices/%d", receipt.SaleID),
		}
	}
	respondJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/order/invoices/{sale_id} streams the parked invoice once.
func (h *OrderHandler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	saleIDStr := chi.URLParam(r, "sale_id")
	saleID, err := strconv.ParseInt(saleIDStr, 10, 64)
	if err != nil || saleID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_sale_id", "sale_id must be a positive integer")
		return
	}

	file, ok := h.invoices.Take(saleID)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "no invoice available for this sale")
		return
	}

	w.Header().Set("Content-Type", file.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Content)))
	if _, err := w.Write(file.Content); err != nil {
		h.logger.Warn("invoice download interrupted", zap.Int64("sale_id", saleID), zap.Error(err))
	}
}

func (h *OrderHandler) builder(w http.ResponseWriter, r *http.Request) (*order.Builder, bool) {
	actor, ok := getActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "no autenticado")
		return nil, false
	}
	return h.drafts.Get(actor.Username), true
}

func (h *OrderHandler) handleSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *upstream.SaleRejectedError
	switch {
	case errors.Is(err, order.ErrEmptyDraft):
		respondError(w, http.StatusBadRequest, "empty_draft", "the draft has no lines")
	case errors.Is(err, order.ErrSubmitInFlight):
		respondError(w, http.StatusConflict, "submit_in_flight", "a submission is already in progress")
	case errors.As(err, &rejected):
		respondJSON(w, http.StatusConflict, struct {
			Error      string               `json:"error"`
			Code       string               `json:"code"`
			Shortfalls []upstream.Shortfall `json:"shortfalls,omitempty"`
		}{Error: rejected.Reason, Code: "sale_rejected", Shortfalls: rejected.Shortfalls})
	default:
		h.handleUpstreamError(w, r, err)
	}
}

func (h *OrderHandler) handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("upstream call failed",
		zap.String("request_id", getRequestID(r.Context())),
		zap.Error(err))

	var apiErr *upstream.APIError
	switch {
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, "upstream_error", apiErr.Detail)
	case errors.Is(err, upstream.ErrMalformedResponse):
		respondError(w, http.StatusBadGateway, "upstream_error", "unexpected reply from the management API")
	default:
		respondError(w, http.StatusBadGateway, "network_error", "could not reach the management API")
	}
}

// parseQuantityField accepts both `"3"` and `3` as a quantity, mapping the
// empty string to zero (removal) and anything unparsable to "ignore".
func parseQuantityField(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return order.ParseQuantity(asString)
	}
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if asNumber != float64(int(asNumber)) {
			return 0, false
		}
		return int(asNumber), true
	}
	return 0, false
}
