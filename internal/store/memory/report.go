package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/report"
)

type groupKey struct {
	id  int64
	key string
}

// SalesReport mirrors the grouping of report.SalesQuery over the in-memory rows.
func (t *tx) SalesReport(_ context.Context, tenantID int64, f report.Filter) ([]report.Row, error) {
	g, err := report.ParseGroupBy(string(f.GroupBy))
	if err != nil {
		return nil, err
	}

	acc := map[groupKey]*report.Row{}
	var order []groupKey
	for _, s := range t.st.sales {
		tr, ok := t.st.trips[s.TripID]
		if !ok || tr.TenantID != tenantID || !f.Includes(s.CreatedAt) {
			continue
		}
		farmer := t.st.farmers[t.st.farms[tr.FarmID].FarmerID]
		if f.CustomerID != nil && s.CustomerID != *f.CustomerID {
			continue
		}
		if f.FarmerID != nil && farmer.ID != *f.FarmerID {
			continue
		}
		if f.DriverID != nil && tr.DriverID != *f.DriverID {
			continue
		}

		var k groupKey
		switch g {
		case report.GroupDate:
			k = groupKey{key: f.Day(s.CreatedAt)}
		case report.GroupCustomer:
			k = groupKey{id: s.CustomerID, key: t.st.customers[s.CustomerID].Name}
		case report.GroupFarmer:
			k = groupKey{id: farmer.ID, key: farmer.Name}
		case report.GroupDriver:
			k = groupKey{id: tr.DriverID, key: t.st.users[tr.DriverID].Name}
		case report.GroupNone:
			k = groupKey{key: "ALL"}
		}
		row, ok := acc[k]
		if !ok {
			row = newRow(k, g)
			acc[k] = row
			order = append(order, k)
		}
		row.Transactions++
		row.TotalSales = row.TotalSales.Add(s.TotalAmount)
		row.CashReceived = row.CashReceived.Add(s.CashAmount)
		row.UPIReceived = row.UPIReceived.Add(s.UPIAmount)
		row.Pending = row.Pending.Add(s.TotalAmount.Sub(s.CashAmount).Sub(s.UPIAmount))
	}

	if g == report.GroupNone && len(order) == 0 {
		return []report.Row{*newRow(groupKey{key: "ALL"}, g)}, nil
	}

	rows := make([]report.Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, *acc[k])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if g == report.GroupDate {
			return rows[i].GroupKey > rows[j].GroupKey
		}
		return rows[i].GroupKey < rows[j].GroupKey
	})
	return rows, nil
}

func newRow(k groupKey, g report.GroupBy) *report.Row {
	row := &report.Row{
		GroupKey:     k.key,
		TotalSales:   decimal.Zero,
		CashReceived: decimal.Zero,
		UPIReceived:  decimal.Zero,
		Pending:      decimal.Zero,
	}
	switch g {
	case report.GroupCustomer, report.GroupFarmer, report.GroupDriver:
		id := k.id
		row.GroupID = &id
	case report.GroupNone, report.GroupDate:
	}
	return row
}

