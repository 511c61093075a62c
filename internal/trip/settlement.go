package trip

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Expenses are the day-close costs of a trip.
type Expenses struct {
	DieselExpense     decimal.Decimal
	OtherExpense      decimal.Decimal
	DriverExpense     decimal.Decimal
	PurchaseRatePerKg decimal.Decimal
}

// closeGate reports whether a trip in status st can be closed.
func closeGate(st Status) error {
	switch st {
	case StatusLifted:
		return nil
	case StatusClosed:
		return Conflict("trip already closed")
	case StatusCreated, StatusInProgress:
		return Conflict("trip is not ready to close")
	}
	return Conflict("unknown trip status %q", st)
}

// CloseDay records the trip expenses and closes the trip. Both writes commit
// together; the returned settlement is then handed to the configured sinks.
func (s *Service) CloseDay(ctx context.Context, actor Actor, tripID int64, in Expenses) (Settlement, error) {
	if err := requireBackOffice(actor); err != nil {
		return Settlement{}, err
	}
	for _, v := range []decimal.Decimal{in.DieselExpense, in.OtherExpense, in.DriverExpense, in.PurchaseRatePerKg} {
		if v.IsNegative() {
			return Settlement{}, Validation("expenses cannot be negative")
		}
	}

	var st Settlement
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, true)
		if err != nil {
			return err
		}
		if err := closeGate(t.Status); err != nil {
			return err
		}

		now := s.now()
		exp, err := tx.InsertExpense(ctx, Expense{
			TripID:            t.ID,
			DieselExpense:     in.DieselExpense.Round(2),
			DriverExpense:     in.DriverExpense.Round(2),
			OtherExpense:      in.OtherExpense.Round(2),
			PurchaseRatePerKg: in.PurchaseRatePerKg.Round(2),
			CreatedAt:         now,
		})
		if err != nil {
			return err
		}

		if err := t.transition(StatusClosed); err != nil {
			return err
		}
		t.ClosedAt = &now
		if err := tx.SaveTripState(ctx, t); err != nil {
			return err
		}

		sales, err := tx.ListTripSales(ctx, t.ID)
		if err != nil {
			return err
		}
		st = settle(t, exp, sales)
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}

	s.logger.Info("trip closed",
		zap.Int64("trip_id", tripID),
		zap.String("sales_amount", st.SalesAmount.String()),
		zap.String("margin", st.Margin.String()))
	s.publish(ctx, st)
	return st, nil
}

func settle(t Trip, exp Expense, sales []Sale) Settlement {
	st := Settlement{
		TripID:        t.ID,
		TenantID:      t.TenantID,
		TotalBirds:    t.TotalBirds,
		TotalWeight:   t.TotalWeight,
		SalesAmount:   decimal.Zero,
		CashCollected: decimal.Zero,
		UPICollected:  decimal.Zero,
		Expense:       exp,
	}
	if t.ClosedAt != nil {
		st.ClosedAt = *t.ClosedAt
	}
	for _, sale := range sales {
		st.SalesAmount = st.SalesAmount.Add(sale.TotalAmount)
		st.CashCollected = st.CashCollected.Add(sale.CashAmount)
		st.UPICollected = st.UPICollected.Add(sale.UPIAmount)
	}
	st.Pending = decimal.Max(st.SalesAmount.Sub(st.CashCollected).Sub(st.UPICollected), decimal.Zero)
	st.ExpenseTotal = exp.total()
	st.PurchaseCost = t.TotalWeight.Mul(exp.PurchaseRatePerKg).Round(2)
	st.Margin = st.SalesAmount.Sub(st.PurchaseCost).Sub(st.ExpenseTotal)
	return st
}

// TripExpenses lists the expense rows recorded for a trip.
func (s *Service) TripExpenses(ctx context.Context, actor Actor, tripID int64) ([]Expense, error) {
	if err := requireBackOffice(actor); err != nil {
		return nil, err
	}
	var out []Expense
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, false)
		if err != nil {
			return err
		}
		out, err = tx.ListExpenses(ctx, t.ID)
		return err
	})
	return out, err
}
