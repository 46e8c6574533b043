package domain

// InventoryItem is the client's read copy of a stocked medicine. The server
// owns the authoritative record; dates travel as strings on the wire
// (RFC 3339 timestamps or bare YYYY-MM-DD days).
type InventoryItem struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	BatchNumber  string  `json:"batchNumber"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	CostPrice    float64 `json:"costPrice"`
	ReorderLevel int64   `json:"reorderLevel"`
	ExpiryDate   string  `json:"expiryDate"`
	Description  string  `json:"description,omitempty"`
}

func (i InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}
