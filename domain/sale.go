package domain

// Sale is a persisted transaction as returned by the server. Read-only to
// the client once created.
type Sale struct {
	ID            int64      `json:"id"`
	ReceiptNumber string     `json:"receiptNumber"`
	CashierName   string     `json:"cashierName,omitempty"`
	CustomerName  string     `json:"customerName"`
	Items         []SaleItem `json:"items"`
	TotalAmount   float64    `json:"totalAmount"`
	CreatedAt     string     `json:"createdAt"`
}

type SaleItem struct {
	MedicineID   int64   `json:"medicineId"`
	MedicineName string  `json:"medicineName,omitempty"`
	Quantity     int64   `json:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Subtotal     float64 `json:"subtotal"`
}

// SaleSubmission is the payload posted to commit a sale. Amounts are rounded
// to two decimals when the payload is built, matching what the server bills.
type SaleSubmission struct {
	Items        []SaleSubmissionItem `json:"items"`
	CustomerName string               `json:"customerName"`
	TotalAmount  float64              `json:"totalAmount"`
}

type SaleSubmissionItem struct {
	MedicineID   int64   `json:"medicineId"`
	Quantity     int64   `json:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Subtotal     float64 `json:"subtotal"`
}
