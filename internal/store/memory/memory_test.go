package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/report"
	"poultrytrade/backend/internal/trip"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx trip.Tx) error {
		if _, err := tx.InsertTrip(ctx, trip.Trip{TenantID: 1, DriverID: 2}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v", err)
	}
	_ = s.WithTx(ctx, func(tx trip.Tx) error {
		if _, err := tx.GetTrip(ctx, 1, 1); !errors.Is(err, trip.ErrRecordNotFound) {
			t.Fatalf("rolled back trip is visible: %v", err)
		}
		return nil
	})
}

func TestCageEntriesUpsertAndReset(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx trip.Tx) error {
		id, _ := tx.UpsertCage(ctx, 9, 1)
		again, _ := tx.UpsertCage(ctx, 9, 1)
		if id != again {
			t.Fatalf("UpsertCage created a second row: %d != %d", id, again)
		}
		_ = tx.UpsertCageEntry(ctx, id, trip.DefaultColor, 10, decimal.RequireFromString("20"))
		_ = tx.UpsertCageEntry(ctx, id, trip.DefaultColor, 12, decimal.RequireFromString("24"))
		_ = tx.UpsertCageEntry(ctx, id, "RED", 3, decimal.RequireFromString("6"))

		sum, _ := tx.SumTrip(ctx, 9)
		if sum.Birds != 15 || !sum.Weight.Equal(decimal.RequireFromString("30")) {
			t.Fatalf("SumTrip = %+v", sum)
		}
		if n, _ := tx.DeleteCageEntries(ctx, id); n != 2 {
			t.Fatalf("DeleteCageEntries removed %d", n)
		}
		cages, _ := tx.ListCages(ctx, 9)
		if len(cages) != 1 || cages[0] != 1 {
			t.Fatalf("ListCages = %v", cages)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSalesReportGroupsByDriverAndEmptyNone(t *testing.T) {
	s := New()
	ctx := context.Background()
	driver := s.AddUser(auth.User{TenantID: 1, Name: "Suresh", Mobile: "9000000001", Role: trip.RoleDriver})
	farmID := s.AddFarm(1, "Gopal")
	cust := s.AddCustomer(trip.Customer{TenantID: 1, Name: "Ravi"})
	day := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	_ = s.WithTx(ctx, func(tx trip.Tx) error {
		rows, _ := tx.SalesReport(ctx, 1, report.Filter{})
		if len(rows) != 1 || rows[0].GroupKey != "ALL" || rows[0].Transactions != 0 {
			t.Fatalf("empty NONE report = %+v", rows)
		}
		tr, _ := tx.InsertTrip(ctx, trip.Trip{TenantID: 1, FarmID: farmID, DriverID: driver})
		for _, amt := range []string{"100", "50"} {
			_, _ = tx.InsertSale(ctx, trip.Sale{TripID: tr.ID, CustomerID: cust, TotalAmount: decimal.RequireFromString(amt), CashAmount: decimal.RequireFromString("40"), UPIAmount: decimal.Zero, CreatedAt: day})
		}
		rows, _ = tx.SalesReport(ctx, 1, report.Filter{GroupBy: report.GroupDriver})
		if len(rows) != 1 || rows[0].GroupKey != "Suresh" || *rows[0].GroupID != driver {
			t.Fatalf("driver report = %+v", rows)
		}
		if !rows[0].Pending.Equal(decimal.RequireFromString("70")) || rows[0].Transactions != 2 {
			t.Fatalf("driver row = %+v", rows[0])
		}
		other := int64(999)
		rows, _ = tx.SalesReport(ctx, 1, report.Filter{GroupBy: report.GroupCustomer, DriverID: &other})
		if len(rows) != 0 {
			t.Fatalf("driver filter leaked rows: %+v", rows)
		}
		return nil
	})
}

func TestLookupsAreTenantScoped(t *testing.T) {
	s := New()
	ctx := context.Background()
	driver := s.AddUser(auth.User{TenantID: 1, Name: "Suresh", Mobile: "9000000001", Role: trip.RoleDriver})
	farmID := s.AddFarm(1, "Gopal")

	err := s.WithTx(ctx, func(tx trip.Tx) error {
		if m, err := tx.FindMember(ctx, 1, driver); err != nil || m.Role != trip.RoleDriver {
			t.Errorf("FindMember = %+v, %v", m, err)
		}
		if _, err := tx.FindMember(ctx, 2, driver); !errors.Is(err, trip.ErrRecordNotFound) {
			t.Errorf("FindMember across tenants = %v", err)
		}
		if _, err := tx.FindFarm(ctx, 2, farmID); !errors.Is(err, trip.ErrRecordNotFound) {
			t.Errorf("FindFarm across tenants = %v", err)
		}
		if _, err := tx.InsertFarm(ctx, trip.Farm{TenantID: 1, FarmerID: 999, Location: "Nowhere"}); !errors.Is(err, trip.ErrRecordNotFound) {
			t.Errorf("farm without farmer = %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
