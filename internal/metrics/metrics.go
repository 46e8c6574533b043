// Package metrics computes derived dashboard figures from already-fetched
// collections. Everything here is pure: no I/O, no retained state.
package metrics

import (
	"time"

	"bhcpharm/m/domain"
)

// wire timestamps arrive either as full RFC 3339 instants or bare days.
var dayLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDay(raw string) (time.Time, bool) {
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LowStock returns the items at or below their reorder level, preserving
// input order.
func LowStock(items []domain.InventoryItem) []domain.InventoryItem {
	var low []domain.InventoryItem
	for _, item := range items {
		if item.IsLowStock() {
			low = append(low, item)
		}
	}
	return low
}

// TotalInventoryValue sums quantity times cost price over all items.
func TotalInventoryValue(items []domain.InventoryItem) float64 {
	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.CostPrice
	}
	return total
}

// TodaysRevenue sums the totals of sales created on the same calendar day as
// today. The day boundary is the viewer's local one; when the server's
// summary endpoint answers, its figure wins over this computation.
func TodaysRevenue(sales []domain.Sale, today time.Time) float64 {
	var revenue float64
	for _, sale := range sales {
		created, ok := parseDay(sale.CreatedAt)
		if !ok {
			continue
		}
		if sameCalendarDay(created, today) {
			revenue += sale.TotalAmount
		}
	}
	return revenue
}

// IsExpired reports whether the expiry day is strictly before today's day.
// Time of day is ignored on both sides; an empty or unparseable expiry never
// expires.
func IsExpired(expiryDate string, today time.Time) bool {
	expiry, ok := parseDay(expiryDate)
	if !ok {
		return false
	}
	ey, em, ed := expiry.Date()
	ty, tm, td := today.Date()
	expiryDay := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	todayDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return expiryDay.Before(todayDay)
}

// Summary composes the three dashboard figures client-side. Used as the
// fallback when the server's summary endpoint is unavailable.
func Summary(items []domain.InventoryItem, sales []domain.Sale, today time.Time) domain.DashboardSummary {
	return domain.DashboardSummary{
		LowStockCount:       int64(len(LowStock(items))),
		TotalInventoryValue: TotalInventoryValue(items),
		TodaysRevenue:       TodaysRevenue(sales, today),
	}
}
