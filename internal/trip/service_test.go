package trip_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/store/memory"
	"poultrytrade/backend/internal/trip"
)

var fixedNow = time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *trip.Service
	store    *memory.Store
	trader   trip.Actor
	driver   trip.Actor
	lifter   trip.Actor
	stranger trip.Actor
	farmID   int64
	customer int64
	sink     *recordingSink
}

type recordingSink struct {
	mu  sync.Mutex
	got []trip.Settlement
}

func (r *recordingSink) Publish(_ context.Context, s trip.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
	return nil
}

func (r *recordingSink) received() []trip.Settlement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]trip.Settlement(nil), r.got...)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	f := &fixture{store: st, sink: &recordingSink{}}
	add := func(name, mobile string, role trip.Role) trip.Actor {
		id := st.AddUser(auth.User{TenantID: 1, Name: name, Mobile: mobile, Role: role})
		return trip.Actor{UserID: id, TenantID: 1, Role: role}
	}
	f.trader = add("Owner", "9000000001", trip.RoleTrader)
	f.driver = add("Suresh", "9000000002", trip.RoleDriver)
	f.lifter = add("Manoj", "9000000003", trip.RoleLifter)
	f.stranger = add("Other", "9000000004", trip.RoleDriver)
	f.farmID = st.AddFarm(1, "Gopal")
	f.customer = st.AddCustomer(trip.Customer{TenantID: 1, Name: "Ravi", Outstanding: decimal.Zero})
	f.svc = trip.NewService(st, nil, f.sink).WithClock(func() time.Time { return fixedNow })
	return f
}

func (f *fixture) newTrip(t *testing.T) trip.Trip {
	t.Helper()
	lifter := f.lifter.UserID
	tr, err := f.svc.CreateTrip(context.Background(), f.trader, trip.NewTrip{
		FarmID:   f.farmID,
		DriverID: f.driver.UserID,
		LifterID: &lifter,
		TripDate: fixedNow,
	})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	return tr
}

func (f *fixture) entry(t *testing.T, tripID int64, cage int, color string, birds int64, weight string) trip.Totals {
	t.Helper()
	totals, err := f.svc.AddCageEntry(context.Background(), f.driver, tripID, cage, trip.EntryInput{Color: color, BirdCount: birds, Weight: dec(weight)})
	if err != nil {
		t.Fatalf("AddCageEntry(cage %d, %s): %v", cage, color, err)
	}
	return totals
}

// liftedTrip returns a LIFTED trip with cage 1 = 10 birds / 20 kg and cage 2 = 8 birds / 18 kg.
func (f *fixture) liftedTrip(t *testing.T) trip.Trip {
	t.Helper()
	tr := f.newTrip(t)
	f.entry(t, tr.ID, 1, "", 10, "20")
	f.entry(t, tr.ID, 2, "DEFAULT", 8, "18")
	if _, err := f.svc.CompleteTrip(context.Background(), f.driver, tr.ID); err != nil {
		t.Fatalf("CompleteTrip: %v", err)
	}
	return tr
}

func (f *fixture) tripState(t *testing.T, id int64) trip.Trip {
	t.Helper()
	var out trip.Trip
	err := f.store.WithTx(context.Background(), func(tx trip.Tx) error {
		var err error
		out, err = tx.GetTrip(context.Background(), 1, id)
		return err
	})
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	return out
}

func wantKind(t *testing.T, err error, kind trip.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := trip.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
