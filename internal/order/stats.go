package order

import (
	"sort"

	"github.com/shopspring/decimal"
)

const DefaultTopItems = 5

// StatsPolicy controls what the aggregation counts as revenue.
type StatsPolicy struct {
	TopItems int
	// ExcludeCancelledRevenue leaves cancelled orders out of revenue, average
	// order value and top items. They still count in TotalOrders and ByStatus.
	ExcludeCancelledRevenue bool
}

type ItemStat struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Statistics struct {
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	// CompletionRate is delivered / total * 100.
	CompletionRate  float64        `json:"completion_rate"`
	UniqueCustomers int            `json:"unique_customers"`
	ByStatus        map[Status]int `json:"by_status"`
	TopItems        []ItemStat     `json:"top_items"`
}

// Aggregate is a pure function of orders; it never mutates them.
func Aggregate(orders []Order, p StatsPolicy) Statistics {
	if p.TopItems <= 0 {
		p.TopItems = DefaultTopItems
	}
	st := Statistics{
		TotalOrders:       len(orders),
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		ByStatus:          make(map[Status]int, len(Statuses)),
		TopItems:          []ItemStat{},
	}
	for _, s := range Statuses {
		st.ByStatus[s] = 0
	}

	phones := make(map[string]struct{})
	byName := make(map[string]int)
	var items []ItemStat
	revenueOrders := 0

	for _, o := range orders {
		st.ByStatus[o.Status]++
		phones[o.Customer.Phone] = struct{}{}

		if p.ExcludeCancelledRevenue && o.Status == StatusCancelled {
			continue
		}
		revenueOrders++
		st.TotalRevenue = st.TotalRevenue.Add(o.TotalAmount)

		for _, it := range o.Items {
			idx, ok := byName[it.Name]
			if !ok {
				idx = len(items)
				byName[it.Name] = idx
				items = append(items, ItemStat{Name: it.Name, Revenue: decimal.Zero})
			}
			items[idx].Quantity += it.Quantity
			items[idx].Revenue = items[idx].Revenue.Add(it.Subtotal())
		}
	}
	st.UniqueCustomers = len(phones)

	if revenueOrders > 0 {
		st.AverageOrderValue = st.TotalRevenue.Div(decimal.NewFromInt(int64(revenueOrders)))
	}
	if st.TotalOrders > 0 {
		st.CompletionRate = float64(st.ByStatus[StatusDelivered]) / float64(st.TotalOrders) * 100
	}

	// Stable: equal revenue keeps first-encountered order.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Revenue.GreaterThan(items[j].Revenue)
	})
	if len(items) > p.TopItems {
		items = items[:p.TopItems]
	}
	st.TopItems = append(st.TopItems, items...)
	return st
}
