package mock

import (
	"net/http"
	"time"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

// DashboardDays is the window used when no startDate is given.
const DashboardDays = 7

const maxDashboardDays = 366

func (m *Mock) dashboard(w http.ResponseWriter, r *http.Request) {
	sellerID := userFrom(r.Context())
	if !m.isSeller(sellerID) {
		forbidden(w)
		return
	}

	today := startOfDay(m.clock())
	start := today.AddDate(0, 0, -(DashboardDays - 1))
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		parsed, err := time.ParseInLocation(storefront.DateLayout, raw, today.Location())
		if err != nil {
			writeIssues(w, map[string]string{"startDate": "Data inválida."})
			return
		}
		start = parsed
	}
	if start.After(today) {
		start = today
	}
	if earliest := today.AddDate(0, 0, -(maxDashboardDays - 1)); start.Before(earliest) {
		start = earliest
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	writeData(w, http.StatusOK, m.dashboardLocked(sellerID, start, today))
}

func (m *Mock) dashboardLocked(sellerID int64, start, today time.Time) storefront.Dashboard {
	index := map[string]int{}
	var chart []storefront.DashboardPoint
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		index[d.Format(storefront.DateLayout)] = len(chart)
		chart = append(chart, storefront.DashboardPoint{
			Date:     d.Format("02/01"),
			FullDate: d.Format(storefront.DateLayout),
		})
	}
	point := func(t time.Time) *storefront.DashboardPoint {
		i, ok := index[startOfDay(t.In(today.Location())).Format(storefront.DateLayout)]
		if !ok {
			return nil
		}
		return &chart[i]
	}
	owned := func(productID int64) bool {
		p, ok := m.products[productID]
		return ok && p.SellerID == sellerID
	}

	sold := map[int64]int{}
	for _, orders := range m.orders {
		for _, o := range orders {
			pt := point(o.CreatedAt)
			if pt == nil {
				continue
			}
			for _, item := range o.Items {
				if !owned(item.ProductID) {
					continue
				}
				pt.Revenue = pt.Revenue.Add(item.Subtotal())
				pt.SalesCount += item.Quantity
				sold[item.ProductID] += item.Quantity
			}
		}
	}
	for _, favs := range m.favorites {
		for _, f := range favs {
			if pt := point(f.createdAt); pt != nil && owned(f.productID) {
				pt.Favorites++
			}
		}
	}
	for _, lines := range m.carts {
		for _, l := range lines {
			if pt := point(l.addedAt); pt != nil && owned(l.productID) {
				pt.InCarts += l.quantity
			}
		}
	}

	out := storefront.Dashboard{Chart: chart}
	var best int64
	for id, units := range sold {
		if units > sold[best] || (units == sold[best] && id < best) {
			best = id
		}
	}
	if best != 0 {
		p := m.viewLocked(m.products[best], sellerID)
		out.BestSeller = &p
	}
	return out
}
