package dashboard

// Client-side aggregation of dashboard statistics from already-fetched
// lists. Pure functions, no I/O: the console fetches the lists through the
// REST client and feeds them in.

import (
	"sort"
	"time"

	"shophub/internal/models"
)

// DayRevenue is one bucket of the revenue chart.
type DayRevenue struct {
	Day     time.Time
	Revenue float64
	Orders  int
}

// RevenueByDay buckets order totals per calendar day over the trailing
// window ending at now. Canceled orders do not count toward revenue. Buckets
// with no orders are still emitted so the chart axis stays continuous.
func RevenueByDay(orders []models.Order, days int, now time.Time) []DayRevenue {
	if days <= 0 {
		return nil
	}

	start := now.AddDate(0, 0, -(days - 1))
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	buckets := make([]DayRevenue, days)
	for i := range buckets {
		buckets[i].Day = startDay.AddDate(0, 0, i)
	}

	for _, o := range orders {
		if o.Status == models.OrderCanceled {
			continue
		}
		idx := calendarDays(startDay, o.PlacedAt.In(startDay.Location()))
		if idx < 0 || idx >= days {
			continue
		}
		buckets[idx].Revenue += o.Total
		buckets[idx].Orders++
	}
	return buckets
}

// calendarDays counts whole calendar days from a to b. Both dates are
// re-expressed in UTC, where every day is exactly 24 hours, so a DST
// transition in the bucket's location cannot skew the division.
func calendarDays(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

// CountByStatus groups orders by status.
func CountByStatus(orders []models.Order) map[string]int {
	counts := make(map[string]int)
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
}

// ProductSales is one row of the top-sellers table.
type ProductSales struct {
	ProductID   string
	ProductName string
	Quantity    int
	Revenue     float64
}

// TopProducts sums quantities and line revenue across order lines and
// returns the n best sellers. Canceled orders are excluded.
func TopProducts(orders []models.Order, n int) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	for _, o := range orders {
		if o.Status == models.OrderCanceled {
			continue
		}
		for _, line := range o.Lines {
			ps, ok := byProduct[line.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: line.ProductID, ProductName: line.ProductName}
				byProduct[line.ProductID] = ps
			}
			ps.Quantity += line.Quantity
			ps.Revenue += float64(line.Quantity) * line.UnitPrice
		}
	}

	ranked := make([]ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		ranked = append(ranked, *ps)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].ProductID < ranked[j].ProductID // stable order for ties
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// LowStock returns active products at or below the threshold, lowest first.
func LowStock(products []models.Product, threshold int) []models.Product {
	var low []models.Product
	for _, p := range products {
		if p.Active && p.Stock <= threshold {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		return low[i].Stock < low[j].Stock
	})
	return low
}

// ActivePromotions counts promotions whose window covers now.
func ActivePromotions(promotions []models.Promotion, now time.Time) int {
	count := 0
	for i := range promotions {
		if promotions[i].ActiveAt(now) {
			count++
		}
	}
	return count
}
