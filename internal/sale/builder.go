// Package sale maintains the in-progress point-of-sale draft: line items,
// stock-bound quantity clamping, totals, and submission of the finalized
// order.
package sale

import (
	"context"
	"errors"
	"math"

	"bhcpharm/m/domain"
)

// WalkInCustomer is the placeholder used when no customer name is given.
const WalkInCustomer = "Walk-in Customer"

var (
	// ErrStockExceeded signals an add that would pass the available stock.
	// The draft is left unchanged; callers must tell the user.
	ErrStockExceeded = errors.New("cannot add more than the available stock")
	// ErrEmptySale is returned by Submit on a draft with no lines. No
	// network call is made.
	ErrEmptySale = errors.New("sale has no items")
	// ErrLineNotFound is returned when a quantity change names a medicine
	// that has no line in the draft.
	ErrLineNotFound = errors.New("no such line in the sale")
)

// State tracks the draft lifecycle.
type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateSubmitting
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateSubmitting:
		return "submitting"
	case StateCommitted:
		return "committed"
	}
	return "unknown"
}

// Line is one medicine in the draft. UnitPrice is snapshotted at add time;
// MaxQuantity tracks the most recently observed stock for the medicine.
type Line struct {
	MedicineID  int64
	Name        string
	UnitPrice   float64
	MaxQuantity int64
	Quantity    int64
}

// Submitter commits a finalized draft. Implemented by the gateway.
type Submitter interface {
	SubmitSale(ctx context.Context, submission domain.SaleSubmission) (domain.Sale, error)
}

// Builder owns one sale draft for the duration of a sale dialog session.
// Single-writer: its mutating operations are never called concurrently.
type Builder struct {
	lines []Line
	stock map[int64]int64
	state State
}

func NewBuilder() *Builder {
	return &Builder{stock: make(map[int64]int64)}
}

// UpdateStock refreshes the builder's view of available stock from the
// latest inventory snapshot. Existing lines are re-bounded and re-clamped so
// a tightened stock figure takes effect immediately, not at the next edit.
func (b *Builder) UpdateStock(items []domain.InventoryItem) {
	for _, item := range items {
		b.stock[item.ID] = item.Quantity
	}
	for i := range b.lines {
		if available, ok := b.stock[b.lines[i].MedicineID]; ok {
			b.lines[i].MaxQuantity = available
			b.lines[i].Quantity = clamp(b.lines[i].Quantity, available)
		}
	}
}

// available prefers the latest stock snapshot over a line's add-time figure.
func (b *Builder) available(medicineID, fallback int64) int64 {
	if stock, ok := b.stock[medicineID]; ok {
		return stock
	}
	return fallback
}

func clamp(requested, available int64) int64 {
	if requested > available {
		requested = available
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

func (b *Builder) find(medicineID int64) *Line {
	for i := range b.lines {
		if b.lines[i].MedicineID == medicineID {
			return &b.lines[i]
		}
	}
	return nil
}

// AddItem puts a medicine on the draft with quantity 1, or bumps an existing
// line by one. An add at the stock bound fails with ErrStockExceeded and
// changes nothing.
func (b *Builder) AddItem(item domain.InventoryItem) error {
	b.stock[item.ID] = item.Quantity

	if line := b.find(item.ID); line != nil {
		available := b.available(item.ID, line.MaxQuantity)
		if line.Quantity >= available {
			return ErrStockExceeded
		}
		line.Quantity++
		line.MaxQuantity = available
		return nil
	}

	if item.Quantity < 1 {
		return ErrStockExceeded
	}
	b.lines = append(b.lines, Line{
		MedicineID:  item.ID,
		Name:        item.Name,
		UnitPrice:   item.UnitPrice,
		MaxQuantity: item.Quantity,
		Quantity:    1,
	})
	b.state = StateBuilding
	return nil
}

// SetQuantity clamps the requested quantity to [1, current stock]. Stock is
// re-read from the latest snapshot, not the line's add-time bound, and the
// line's MaxQuantity is refreshed to the observed figure. A quantity can
// never be set below 1; use RemoveItem to drop a line.
func (b *Builder) SetQuantity(medicineID, requested int64) error {
	line := b.find(medicineID)
	if line == nil {
		return ErrLineNotFound
	}
	available := b.available(medicineID, line.MaxQuantity)
	line.Quantity = clamp(requested, available)
	line.MaxQuantity = available
	return nil
}

// RemoveItem drops the line; absent ids are a no-op.
func (b *Builder) RemoveItem(medicineID int64) {
	for i := range b.lines {
		if b.lines[i].MedicineID == medicineID {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			break
		}
	}
	if len(b.lines) == 0 && b.state == StateBuilding {
		b.state = StateEmpty
	}
}

// Total recomputes the grand total on every call so it cannot drift from
// the lines.
func (b *Builder) Total() float64 {
	var total float64
	for _, line := range b.lines {
		total += float64(line.Quantity) * line.UnitPrice
	}
	return total
}

// Lines returns the draft lines in insertion order.
func (b *Builder) Lines() []Line {
	out := make([]Line, len(b.lines))
	copy(out, b.lines)
	return out
}

func (b *Builder) Len() int {
	return len(b.lines)
}

func (b *Builder) State() State {
	return b.state
}

// Discard resets the builder to an empty draft (dialog closed).
func (b *Builder) Discard() {
	b.lines = nil
	b.stock = make(map[int64]int64)
	b.state = StateEmpty
}

// payload serializes the draft at two-decimal granularity, the precision the
// server bills at. Arithmetic before this point keeps full precision.
func (b *Builder) payload(customerName string) domain.SaleSubmission {
	if customerName == "" {
		customerName = WalkInCustomer
	}
	items := make([]domain.SaleSubmissionItem, len(b.lines))
	for i, line := range b.lines {
		items[i] = domain.SaleSubmissionItem{
			MedicineID:   line.MedicineID,
			Quantity:     line.Quantity,
			PricePerUnit: round2(line.UnitPrice),
			Subtotal:     round2(float64(line.Quantity) * line.UnitPrice),
		}
	}
	return domain.SaleSubmission{
		Items:        items,
		CustomerName: customerName,
		TotalAmount:  round2(b.Total()),
	}
}

// Submit commits the draft through the submitter. On failure the draft is
// preserved unchanged so the user can edit or retry; on success the builder
// is Committed and a fresh builder is needed for the next sale. A stock
// rejection at commit time is the server's call, surfaced as the gateway's
// validation error.
func (b *Builder) Submit(ctx context.Context, submitter Submitter, customerName string) (domain.Sale, error) {
	if len(b.lines) == 0 {
		return domain.Sale{}, ErrEmptySale
	}

	previous := b.state
	b.state = StateSubmitting
	sale, err := submitter.SubmitSale(ctx, b.payload(customerName))
	if err != nil {
		b.state = previous
		return domain.Sale{}, err
	}
	b.state = StateCommitted
	return sale, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
