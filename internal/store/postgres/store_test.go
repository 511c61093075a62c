package postgres

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/database"
	"poultrytrade/backend/internal/report"
	"poultrytrade/backend/internal/trip"
)

// openTestPool connects to TEST_DATABASE_URL, skipping the test when unset.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Second)
	defer cancel()
	pool, err := database.NewPool(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := database.EnsureSchema(ctx, pool, "../../../db/schema.sql"); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return pool
}

func TestTripLifecycleOnPostgres(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	store := New(pool)

	stamp := time.Now().Format("0102150405")
	tenant, traderID, err := store.CreateCompanyWithUser(ctx, "Test Traders "+stamp, auth.User{Name: "Owner", Mobile: "8" + stamp[1:], Role: trip.RoleTrader, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateCompanyWithUser: %v", err)
	}
	driverID, err := store.CreateUser(ctx, auth.User{TenantID: tenant, Name: "Driver", Mobile: "9" + stamp[1:], Role: trip.RoleDriver, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := store.CreateUser(ctx, auth.User{TenantID: tenant, Name: "Dup", Mobile: "9" + stamp[1:], Role: trip.RoleDriver, PasswordHash: "x"}); trip.KindOf(err) != trip.KindConflict {
		t.Fatalf("duplicate mobile: %v", err)
	}

	svc := trip.NewService(store, nil)
	trader := trip.Actor{UserID: traderID, TenantID: tenant, Role: trip.RoleTrader}
	driver := trip.Actor{UserID: driverID, TenantID: tenant, Role: trip.RoleDriver}

	farmer, err := svc.CreateFarmer(ctx, trader, trip.NewFarmer{Name: "Gopal", Locations: []string{"North"}})
	if err != nil {
		t.Fatalf("CreateFarmer: %v", err)
	}
	customer, err := svc.CreateCustomer(ctx, trader, trip.NewCustomer{Name: "Ravi", Mobile: "7" + stamp[1:]})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	if _, err := svc.CreateTrip(ctx, trader, trip.NewTrip{FarmID: farmer.Farms[0].ID, DriverID: traderID, TripDate: time.Now()}); trip.KindOf(err) != trip.KindValidation {
		t.Fatalf("trader as driver: %v", err)
	}
	tr, err := svc.CreateTrip(ctx, trader, trip.NewTrip{FarmID: farmer.Farms[0].ID, DriverID: driverID, TripDate: time.Now()})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	if _, err := svc.AddCageEntry(ctx, driver, tr.ID, 1, trip.EntryInput{BirdCount: 10, Weight: decimal.RequireFromString("20.125")}); err != nil {
		t.Fatalf("AddCageEntry: %v", err)
	}
	totals, err := svc.AddCageEntry(ctx, driver, tr.ID, 1, trip.EntryInput{BirdCount: 12, Weight: decimal.RequireFromString("24")})
	if err != nil || totals.Birds != 12 {
		t.Fatalf("upsert entry = %+v, %v", totals, err)
	}
	if _, err := svc.CompleteTrip(ctx, driver, tr.ID); err != nil {
		t.Fatalf("CompleteTrip: %v", err)
	}
	receipt, err := svc.SellToCustomer(ctx, driver, tr.ID, trip.SaleRequest{
		CustomerID: customer.ID, CageNumbers: []int{1}, SellType: "FULL", Rate: decimal.RequireFromString("100"), PaymentMode: "CREDIT",
	})
	if err != nil {
		t.Fatalf("SellToCustomer: %v", err)
	}
	if !receipt.Outstanding.Equal(decimal.RequireFromString("2400")) {
		t.Fatalf("outstanding = %s", receipt.Outstanding)
	}

	view, err := svc.GetCageView(ctx, driver, tr.ID)
	if err != nil {
		t.Fatalf("GetCageView: %v", err)
	}
	if got := view.Stock(1, trip.DefaultColor); got.RemainingBirds != 0 || got.LiftedBirds != 12 {
		t.Fatalf("view = %+v", got)
	}

	res, err := svc.SalesReport(ctx, trader, report.Filter{GroupBy: report.GroupFarmer})
	if err != nil {
		t.Fatalf("SalesReport: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].GroupKey != "Gopal" || !res.Rows[0].Pending.Equal(decimal.RequireFromString("2400")) {
		t.Fatalf("report = %+v", res.Rows)
	}

	trips, err := svc.ListTrips(ctx, trader)
	if err != nil || len(trips) != 1 || trips[0].ID != tr.ID {
		t.Fatalf("ListTrips = %+v, %v", trips, err)
	}

	if _, err := svc.CloseDay(ctx, trader, tr.ID, trip.Expenses{}); err != nil {
		t.Fatalf("CloseDay: %v", err)
	}
	if _, err := svc.CloseDay(ctx, trader, tr.ID, trip.Expenses{}); trip.KindOf(err) != trip.KindConflict {
		t.Fatalf("second close: %v", err)
	}
}

func TestCompanyIsNotKeptWithoutItsUser(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	store := New(pool)

	stamp := time.Now().Format("0102150405")
	taken := "6" + stamp[1:]
	if _, _, err := store.CreateCompanyWithUser(ctx, "First "+stamp, auth.User{Name: "A", Mobile: taken, Role: trip.RoleTrader, PasswordHash: "x"}); err != nil {
		t.Fatalf("CreateCompanyWithUser: %v", err)
	}

	name := "Orphan " + stamp
	_, _, err := store.CreateCompanyWithUser(ctx, name, auth.User{Name: "B", Mobile: taken, Role: trip.RoleTrader, PasswordHash: "x"})
	if trip.KindOf(err) != trip.KindConflict {
		t.Fatalf("duplicate owner mobile: %v", err)
	}
	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies WHERE name = $1`, name).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("company rows left behind = %d", n)
	}
}

func TestConcurrentWritesOnPostgres(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	store := New(pool)

	stamp := time.Now().Format("0102150405")
	tenant, traderID, err := store.CreateCompanyWithUser(ctx, "Busy "+stamp, auth.User{Name: "Owner", Mobile: "5" + stamp[1:], Role: trip.RoleTrader, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateCompanyWithUser: %v", err)
	}
	driverID, err := store.CreateUser(ctx, auth.User{TenantID: tenant, Name: "Driver", Mobile: "4" + stamp[1:], Role: trip.RoleDriver, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	svc := trip.NewService(store, nil)
	trader := trip.Actor{UserID: traderID, TenantID: tenant, Role: trip.RoleTrader}
	driver := trip.Actor{UserID: driverID, TenantID: tenant, Role: trip.RoleDriver}

	farmer, err := svc.CreateFarmer(ctx, trader, trip.NewFarmer{Name: "Gopal", Locations: []string{"North"}})
	if err != nil {
		t.Fatalf("CreateFarmer: %v", err)
	}
	customer, err := svc.CreateCustomer(ctx, trader, trip.NewCustomer{Name: "Bulk", Mobile: "9" + stamp[1:], OpeningBalance: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	tr, err := svc.CreateTrip(ctx, trader, trip.NewTrip{FarmID: farmer.Farms[0].ID, DriverID: driverID, TripDate: time.Now()})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.CreditCustomer(ctx, trader, customer.ID, decimal.NewFromInt(10)); err == nil {
				accepted.Add(1)
			} else if trip.KindOf(err) != trip.KindValidation {
				t.Errorf("CreditCustomer: %v", err)
			}
		}()
		go func(n int64) {
			defer wg.Done()
			if _, err := svc.AddCageEntry(ctx, driver, tr.ID, 1, trip.EntryInput{Color: "red", BirdCount: n, Weight: decimal.NewFromInt(n)}); err != nil {
				t.Errorf("AddCageEntry: %v", err)
			}
		}(int64(i))
	}
	wg.Wait()

	if accepted.Load() != 10 {
		t.Fatalf("accepted credits = %d, want 10", accepted.Load())
	}
	var outstanding decimal.Decimal
	if err := pool.QueryRow(ctx, `SELECT outstanding FROM customers WHERE id = $1`, customer.ID).Scan(&outstanding); err != nil {
		t.Fatal(err)
	}
	if !outstanding.IsZero() {
		t.Fatalf("outstanding = %s", outstanding)
	}

	var entries int
	err = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM trip_cage_entries e JOIN trip_cages c ON c.id = e.trip_cage_id
		WHERE c.trip_id = $1 AND c.cage_number = 1
	`, tr.ID).Scan(&entries)
	if err != nil {
		t.Fatal(err)
	}
	if entries != 1 {
		t.Fatalf("entries for one (cage, color) = %d", entries)
	}
}
