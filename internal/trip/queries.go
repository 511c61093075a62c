package trip

import (
	"context"

	"poultrytrade/backend/internal/report"
)

// TripSales lists every sale row of a trip.
func (s *Service) TripSales(ctx context.Context, actor Actor, tripID int64) ([]Sale, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	var out []Sale
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, false)
		if err != nil {
			return err
		}
		if !t.crew(actor.UserID) && !actor.backOffice() {
			return Forbidden("not authorized for this trip")
		}
		out, err = tx.ListTripSales(ctx, t.ID)
		return err
	})
	return out, err
}

// SalesReport aggregates the tenant's sales in the shape selected by the filter.
func (s *Service) SalesReport(ctx context.Context, actor Actor, f report.Filter) (report.Result, error) {
	if err := requireBackOffice(actor); err != nil {
		return report.Result{}, err
	}
	if err := f.Validate(); err != nil {
		return report.Result{}, Validation("%s", err.Error())
	}
	f.GroupBy, _ = report.ParseGroupBy(string(f.GroupBy))
	var rows []report.Row
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		rows, err = tx.SalesReport(ctx, actor.TenantID, f)
		return err
	})
	if err != nil {
		return report.Result{}, err
	}
	return report.Result{Filter: f, Summary: report.Summarize(rows), Rows: rows}, nil
}
