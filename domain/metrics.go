package domain

// DashboardSummary holds the derived dashboard figures. Never persisted;
// recomputed per fetch cycle.
type DashboardSummary struct {
	LowStockCount       int64   `json:"lowStockCount"`
	TotalInventoryValue float64 `json:"totalInventoryValue"`
	TodaysRevenue       float64 `json:"todaysRevenue"`
}
