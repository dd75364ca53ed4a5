package order

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/daguilastro/Los5deSergito/internal/domain"
	"github.com/daguilastro/Los5deSergito/internal/invoice"
	"github.com/daguilastro/Los5deSergito/internal/upstream"
)

var (
	ErrEmptyDraft     = errors.New("draft is empty, nothing to submit")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// SaleCreator is the slice of the upstream client Submit needs.
type SaleCreator interface {
	CreateSale(ctx context.Context, payload upstream.SalePayload) (*upstream.SaleResult, error)
}

// CatalogRefresher is asked to drop its cached catalog after a confirmed
// sale, because server-side stock has changed.
type CatalogRefresher interface {
	Invalidate(ctx context.Context)
}

// State of a draft order. Derived from the line set and the in-flight flag,
// never stored independently.
type State string

const (
	StateEmpty      State = "EMPTY"
	StateBuilding   State = "BUILDING"
	StateSubmitting State = "SUBMITTING"
)

// Status is the banner shown after a submission attempt. Any later edit
// clears it so a stale success or error never outlives the draft it was for.
type Status struct {
	OK         bool                 `json:"ok"`
	Message    string               `json:"message"`
	Shortfalls []upstream.Shortfall `json:"shortfalls,omitempty"`
}

// Receipt is the reconciled result of a confirmed sale.
type Receipt struct {
	SaleID  int64
	Date    string
	Invoice *invoice.File
}

// View is a read-only snapshot of the draft for the presentation layer.
type View struct {
	State    State          `json:"state"`
	Customer string         `json:"customer"`
	Summary  domain.Summary `json:"summary"`
	Status   *Status        `json:"status,omitempty"`
}

// Builder owns one in-progress sale: a set of lines keyed by product id, an
// optional customer name, and the submission lifecycle against the upstream.
// The draft lives only in memory and dies with the session.
type Builder struct {
	sales     SaleCreator
	refresher CatalogRefresher

	mu         sync.Mutex
	customer   string
	lines      []domain.DraftLine
	submitting bool
	status     *Status
}

func NewBuilder(sales SaleCreator, refresher CatalogRefresher) *Builder {
	return &Builder{
		sales:     sales,
		refresher: refresher,
	}
}

// AddProduct puts one unit of the product into the draft, or increments the
// existing line. The increment is rejected outright when it would exceed the
// stock snapshot; quantities are never silently clamped on add.
func (b *Builder) AddProduct(p domain.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = nil

	for i := range b.lines {
		if b.lines[i].Product.ID == p.ID {
			if b.lines[i].Quantity+1 > p.CurrentStock {
				return &domain.StockLimitError{ProductName: p.Name, Available: p.CurrentStock}
			}
			b.lines[i].Quantity++
			return nil
		}
	}

	if p.CurrentStock < 1 {
		return &domain.StockLimitError{ProductName: p.Name, Available: p.CurrentStock}
	}
	b.lines = append(b.lines, domain.DraftLine{Product: p, Quantity: 1})
	return nil
}

// SetQuantity replaces a line's quantity. Zero or negative removes the line;
// a value above the stock snapshot clamps to it and returns the stock warning.
// SetQuantity clamps where AddProduct rejects: a typed-in quantity is treated
// as a correction, not an addition.
func (b *Builder) SetQuantity(productID int64, quantity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = nil

	if quantity <= 0 {
		for i := range b.lines {
			if b.lines[i].Product.ID == productID {
				b.lines = append(b.lines[:i], b.lines[i+1:]...)
				return nil
			}
		}
		return nil
	}

	for i := range b.lines {
		if b.lines[i].Product.ID != productID {
			continue
		}
		if stock := b.lines[i].Product.CurrentStock; quantity > stock {
			b.lines[i].Quantity = stock
			return &domain.StockLimitError{ProductName: b.lines[i].Product.Name, Available: stock}
		}
		b.lines[i].Quantity = quantity
		return nil
	}
	return domain.ErrProductNotFound
}

// SetCustomer sets the optional buyer name. Trimming happens at submit time.
func (b *Builder) SetCustomer(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customer = name
}

// Cancel clears customer, lines and status. Idempotent; a submission already
// in flight resolves against the upstream but will not resurrect the draft.
func (b *Builder) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customer = ""
	b.lines = nil
	b.status = nil
}

// Summary recomputes subtotals and the total from the current lines.
func (b *Builder) Summary() domain.Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.Summarize(b.lines)
}

// View snapshots the whole draft for rendering.
func (b *Builder) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return View{
		State:    b.stateLocked(),
		Customer: b.customer,
		Summary:  domain.Summarize(b.lines),
		Status:   b.status,
	}
}

func (b *Builder) stateLocked() State {
	switch {
	case b.submitting:
		return StateSubmitting
	case len(b.lines) == 0:
		return StateEmpty
	default:
		return StateBuilding
	}
}

// Submit sends the draft to the sale-creation endpoint and reconciles the
// outcome. Single-flight: a second call while one is pending is rejected.
// On rejection or transport failure the draft is preserved for retry; on
// success it is cleared and the catalog cache invalidated.
func (b *Builder) Submit(ctx context.Context) (*Receipt, error) {
	b.mu.Lock()
	if b.submitting {
		b.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if len(b.lines) == 0 {
		b.mu.Unlock()
		return nil, ErrEmptyDraft
	}

	payload := upstream.SalePayload{
		Items: make([]upstream.SaleItem, 0, len(b.lines)),
	}
	if customer := strings.TrimSpace(b.customer); customer != "" {
		payload.Customer = &customer
	}
	for _, l := range b.lines {
		payload.Items = append(payload.Items, upstream.SaleItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
		})
	}

	b.submitting = true
	b.status = nil
	b.mu.Unlock()

	result, err := b.sales.CreateSale(ctx, payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitting = false

	if err != nil {
		b.status = failureStatus(err)
		return nil, err
	}

	receipt := &Receipt{SaleID: result.SaleID, Date: result.Date}
	if result.Invoice != nil {
		file, errDec := invoice.Decode(result.Invoice, result.SaleID)
		if errDec != nil {
			// The sale went through; a broken attachment only costs the
			// download, never the reconciliation.
			b.status = &Status{OK: true, Message: saleRegisteredMessage(result.SaleID) + " (invoice unavailable)"}
		} else {
			receipt.Invoice = file
		}
	}
	if b.status == nil {
		b.status = &Status{OK: true, Message: saleRegisteredMessage(result.SaleID)}
	}

	b.customer = ""
	b.lines = nil
	b.refresher.Invalidate(ctx)
	return receipt, nil
}

func saleRegisteredMessage(saleID int64) string {
	return "sale #" + strconv.FormatInt(saleID, 10) + " registered"
}

func failureStatus(err error) *Status {
	var rejected *upstream.SaleRejectedError
	if errors.As(err, &rejected) {
		return &Status{
			OK:         false,
			Message:    rejected.Reason,
			Shortfalls: rejected.Shortfalls,
		}
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return &Status{OK: false, Message: apiErr.Detail}
	}
	return &Status{OK: false, Message: "could not confirm the sale, try again"}
}

// ParseQuantity interprets raw quantity input from the UI: empty means zero
// (removal); anything that is not an integer is ignored.
func ParseQuantity(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
