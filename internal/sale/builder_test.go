package sale

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhcpharm/m/domain"
)

type fakeSubmitter struct {
	calls int
	got   domain.SaleSubmission
	sale  domain.Sale
	err   error
}

func (f *fakeSubmitter) SubmitSale(_ context.Context, submission domain.SaleSubmission) (domain.Sale, error) {
	f.calls++
	f.got = submission
	if f.err != nil {
		return domain.Sale{}, f.err
	}
	return f.sale, nil
}

func amoxicillin(stock int64) domain.InventoryItem {
	return domain.InventoryItem{ID: 1, Name: "Amoxicillin", Quantity: stock, UnitPrice: 10.00}
}

func TestAddItemCreatesLineWithQuantityOne(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))

	lines := b.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].Quantity)
	assert.Equal(t, int64(5), lines[0].MaxQuantity)
	assert.Equal(t, 10.00, lines[0].UnitPrice)
	assert.Equal(t, StateBuilding, b.State())
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	b := NewBuilder()
	item := amoxicillin(5)
	require.NoError(t, b.AddItem(item))
	require.NoError(t, b.AddItem(item))

	lines := b.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].Quantity)
}

func TestAddItemAtStockBound(t *testing.T) {
	b := NewBuilder()
	item := amoxicillin(2)
	require.NoError(t, b.AddItem(item))
	require.NoError(t, b.AddItem(item))

	err := b.AddItem(item)
	require.ErrorIs(t, err, ErrStockExceeded)
	// rejected, not silently clamped; state untouched
	assert.Equal(t, int64(2), b.Lines()[0].Quantity)
	assert.Equal(t, StateBuilding, b.State())
}

func TestAddItemOutOfStock(t *testing.T) {
	b := NewBuilder()
	require.ErrorIs(t, b.AddItem(amoxicillin(0)), ErrStockExceeded)
	assert.Zero(t, b.Len())
	assert.Equal(t, StateEmpty, b.State())
}

func TestSetQuantityClamps(t *testing.T) {
	tests := []struct {
		name      string
		requested int64
		want      int64
	}{
		{"above stock", 9, 5},
		{"zero floors to one", 0, 1},
		{"negative floors to one", -3, 1},
		{"in range", 4, 4},
		{"exact stock", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			require.NoError(t, b.AddItem(amoxicillin(5)))
			require.NoError(t, b.SetQuantity(1, tt.requested))
			assert.Equal(t, tt.want, b.Lines()[0].Quantity)
		})
	}
}

func TestSetQuantityUnknownLine(t *testing.T) {
	b := NewBuilder()
	require.ErrorIs(t, b.SetQuantity(42, 1), ErrLineNotFound)
}

func TestSetQuantityUsesLatestStock(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))

	// another sale drained stock since the line was added
	b.UpdateStock([]domain.InventoryItem{amoxicillin(2)})
	require.NoError(t, b.SetQuantity(1, 9))

	line := b.Lines()[0]
	assert.Equal(t, int64(2), line.Quantity)
	assert.Equal(t, int64(2), line.MaxQuantity, "bound refreshed from the latest snapshot")

	// restock loosens the bound again
	b.UpdateStock([]domain.InventoryItem{amoxicillin(10)})
	require.NoError(t, b.SetQuantity(1, 9))
	assert.Equal(t, int64(9), b.Lines()[0].Quantity)
}

func TestUpdateStockReclampsExistingLines(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))
	require.NoError(t, b.SetQuantity(1, 5))

	b.UpdateStock([]domain.InventoryItem{amoxicillin(3)})

	line := b.Lines()[0]
	assert.Equal(t, int64(3), line.Quantity)
	assert.Equal(t, int64(3), line.MaxQuantity)
}

func TestRemoveItem(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))
	require.NoError(t, b.AddItem(domain.InventoryItem{ID: 2, Name: "Ibuprofen", Quantity: 3, UnitPrice: 4}))

	b.RemoveItem(1)
	require.Len(t, b.Lines(), 1)
	assert.Equal(t, int64(2), b.Lines()[0].MedicineID)

	// absent id is a no-op
	b.RemoveItem(99)
	assert.Equal(t, 1, b.Len())

	b.RemoveItem(2)
	assert.Equal(t, StateEmpty, b.State())
}

func TestTotalRecomputed(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))
	require.NoError(t, b.AddItem(domain.InventoryItem{ID: 2, Name: "Ibuprofen", Quantity: 10, UnitPrice: 2.50}))

	assert.InDelta(t, 12.50, b.Total(), 1e-9)

	require.NoError(t, b.SetQuantity(2, 4))
	assert.InDelta(t, 20.00, b.Total(), 1e-9)

	b.RemoveItem(1)
	assert.InDelta(t, 10.00, b.Total(), 1e-9)
}

func TestSubmitEmptyDraft(t *testing.T) {
	b := NewBuilder()
	submitter := &fakeSubmitter{}

	_, err := b.Submit(context.Background(), submitter, "")

	require.ErrorIs(t, err, ErrEmptySale)
	assert.Zero(t, submitter.calls, "empty draft must not reach the gateway")
}

func TestSubmitBuildsPayload(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))
	require.NoError(t, b.SetQuantity(1, 9)) // clamped to 5
	assert.InDelta(t, 50.00, b.Total(), 1e-9)

	submitter := &fakeSubmitter{sale: domain.Sale{ID: 7, ReceiptNumber: "R-007", TotalAmount: 50}}
	committed, err := b.Submit(context.Background(), submitter, "")
	require.NoError(t, err)

	require.Len(t, submitter.got.Items, 1)
	assert.Equal(t, domain.SaleSubmissionItem{
		MedicineID:   1,
		Quantity:     5,
		PricePerUnit: 10.00,
		Subtotal:     50.00,
	}, submitter.got.Items[0])
	assert.Equal(t, "Walk-in Customer", submitter.got.CustomerName)
	assert.InDelta(t, 50.00, submitter.got.TotalAmount, 1e-9)

	assert.Equal(t, "R-007", committed.ReceiptNumber)
	assert.Equal(t, StateCommitted, b.State())
}

func TestSubmitRoundsToTwoDecimals(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(domain.InventoryItem{ID: 3, Name: "Syrup", Quantity: 10, UnitPrice: 3.333}))
	require.NoError(t, b.SetQuantity(3, 3))

	submitter := &fakeSubmitter{}
	_, err := b.Submit(context.Background(), submitter, "Asha")
	require.NoError(t, err)

	assert.Equal(t, 3.33, submitter.got.Items[0].PricePerUnit)
	assert.Equal(t, 10.00, submitter.got.Items[0].Subtotal)
	assert.Equal(t, 10.00, submitter.got.TotalAmount)
	assert.Equal(t, "Asha", submitter.got.CustomerName)
}

func TestSubmitFailurePreservesDraft(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))
	require.NoError(t, b.SetQuantity(1, 3))

	submitter := &fakeSubmitter{err: errors.New("insufficient stock")}
	_, err := b.Submit(context.Background(), submitter, "")
	require.Error(t, err)

	// draft intact, user can edit and retry
	assert.Equal(t, StateBuilding, b.State())
	require.Len(t, b.Lines(), 1)
	assert.Equal(t, int64(3), b.Lines()[0].Quantity)

	submitter.err = nil
	_, err = b.Submit(context.Background(), submitter, "")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, b.State())
	assert.Equal(t, 2, submitter.calls)
}

func TestDiscard(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddItem(amoxicillin(5)))

	b.Discard()

	assert.Zero(t, b.Len())
	assert.Equal(t, StateEmpty, b.State())
	assert.Zero(t, b.Total())
}
