// Package memory is an in-process implementation of the trip store. Writes are
// staged on a copy of the state and swapped in on commit.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/trip"
)

type cage struct {
	tripID int64
	number int
}

type state struct {
	nextID    int64
	trips     map[int64]trip.Trip
	cages     map[int64]cage
	entries   map[int64]map[trip.Color]trip.Totals
	sales     []trip.Sale
	customers map[int64]trip.Customer
	credits   []trip.Credit
	expenses  []trip.Expense
	farmers   map[int64]trip.Farmer
	farms     map[int64]trip.Farm
	users     map[int64]auth.User
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) clone() *state {
	c := &state{
		nextID:    s.nextID,
		trips:     make(map[int64]trip.Trip, len(s.trips)),
		cages:     make(map[int64]cage, len(s.cages)),
		entries:   make(map[int64]map[trip.Color]trip.Totals, len(s.entries)),
		sales:     append([]trip.Sale(nil), s.sales...),
		customers: make(map[int64]trip.Customer, len(s.customers)),
		credits:   append([]trip.Credit(nil), s.credits...),
		expenses:  append([]trip.Expense(nil), s.expenses...),
		farmers:   make(map[int64]trip.Farmer, len(s.farmers)),
		farms:     make(map[int64]trip.Farm, len(s.farms)),
		users:     make(map[int64]auth.User, len(s.users)),
	}
	for k, v := range s.trips {
		c.trips[k] = v
	}
	for k, v := range s.cages {
		c.cages[k] = v
	}
	for k, colors := range s.entries {
		m := make(map[trip.Color]trip.Totals, len(colors))
		for color, t := range colors {
			m[color] = t
		}
		c.entries[k] = m
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.farmers {
		c.farmers[k] = v
	}
	for k, v := range s.farms {
		c.farms[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store serializes every transaction behind one mutex, which also stands in
// for the row locks of the SQL store.
type Store struct {
	mu    sync.Mutex
	state *state
}

func New() *Store {
	return &Store{state: (&state{}).clone()}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx trip.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(&tx{st: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

// AddUser registers a login account and returns its id.
func (s *Store) AddUser(u auth.User) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.state.id()
	s.state.users[u.ID] = u
	return u.ID
}

func (s *Store) FindUserByMobile(ctx context.Context, mobile string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.state.users {
		if u.Mobile == mobile {
			return u, nil
		}
	}
	return auth.User{}, trip.ErrRecordNotFound
}

// AddFarm registers a farm of the named farmer and returns the farm id.
func (s *Store) AddFarm(tenantID int64, farmerName string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	farmerID := s.state.id()
	s.state.farmers[farmerID] = trip.Farmer{ID: farmerID, TenantID: tenantID, Name: farmerName}
	farmID := s.state.id()
	s.state.farms[farmID] = trip.Farm{ID: farmID, TenantID: tenantID, FarmerID: farmerID, Location: farmerName + " farm"}
	return farmID
}

func (s *Store) AddCustomer(c trip.Customer) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.state.id()
	if c.Outstanding.IsZero() {
		c.Outstanding = decimal.Zero
	}
	s.state.customers[c.ID] = c
	return c.ID
}

// Customer returns a committed customer row.
func (s *Store) Customer(id int64) (trip.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.customers[id]
	return c, ok
}

// Credits returns the committed credit history.
func (s *Store) Credits() []trip.Credit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]trip.Credit(nil), s.state.credits...)
}

type tx struct {
	st *state
}

var _ trip.Tx = (*tx)(nil)

func (t *tx) InsertTrip(_ context.Context, tr trip.Trip) (trip.Trip, error) {
	tr.ID = t.st.id()
	t.st.trips[tr.ID] = tr
	return tr, nil
}

func (t *tx) GetTrip(_ context.Context, tenantID, tripID int64) (trip.Trip, error) {
	tr, ok := t.st.trips[tripID]
	if !ok || tr.TenantID != tenantID {
		return trip.Trip{}, trip.ErrRecordNotFound
	}
	return tr, nil
}

func (t *tx) LockTrip(ctx context.Context, tenantID, tripID int64) (trip.Trip, error) {
	return t.GetTrip(ctx, tenantID, tripID)
}

func (t *tx) SaveTripState(_ context.Context, tr trip.Trip) error {
	cur, ok := t.st.trips[tr.ID]
	if !ok {
		return trip.ErrRecordNotFound
	}
	cur.TotalBirds = tr.TotalBirds
	cur.TotalWeight = tr.TotalWeight
	cur.Status = tr.Status
	cur.ClosedAt = tr.ClosedAt
	t.st.trips[tr.ID] = cur
	return nil
}

func (t *tx) ListAssignedTrips(_ context.Context, tenantID, userID int64) ([]trip.Trip, error) {
	var out []trip.Trip
	for _, tr := range t.st.trips {
		if tr.TenantID != tenantID || tr.Status == trip.StatusClosed {
			continue
		}
		if tr.DriverID == userID || (tr.LifterID != nil && *tr.LifterID == userID) {
			out = append(out, tr)
		}
	}
	sortTrips(out)
	return out, nil
}

func (t *tx) ListTrips(_ context.Context, tenantID int64) ([]trip.Trip, error) {
	var out []trip.Trip
	for _, tr := range t.st.trips {
		if tr.TenantID == tenantID {
			out = append(out, tr)
		}
	}
	sortTrips(out)
	return out, nil
}

func sortTrips(trips []trip.Trip) {
	sort.Slice(trips, func(i, j int) bool {
		if !trips[i].TripDate.Equal(trips[j].TripDate) {
			return trips[i].TripDate.After(trips[j].TripDate)
		}
		return trips[i].ID > trips[j].ID
	})
}

func (t *tx) FindMember(_ context.Context, tenantID, userID int64) (trip.Member, error) {
	u, ok := t.st.users[userID]
	if !ok || u.TenantID != tenantID {
		return trip.Member{}, trip.ErrRecordNotFound
	}
	return trip.Member{ID: u.ID, TenantID: u.TenantID, Name: u.Name, Role: u.Role}, nil
}

func (t *tx) FindFarm(_ context.Context, tenantID, farmID int64) (trip.Farm, error) {
	f, ok := t.st.farms[farmID]
	if !ok || f.TenantID != tenantID {
		return trip.Farm{}, trip.ErrRecordNotFound
	}
	return f, nil
}

func (t *tx) InsertFarmer(_ context.Context, f trip.Farmer) (trip.Farmer, error) {
	f.ID = t.st.id()
	t.st.farmers[f.ID] = f
	return f, nil
}

func (t *tx) InsertFarm(_ context.Context, f trip.Farm) (trip.Farm, error) {
	if _, ok := t.st.farmers[f.FarmerID]; !ok {
		return trip.Farm{}, trip.ErrRecordNotFound
	}
	f.ID = t.st.id()
	t.st.farms[f.ID] = f
	return f, nil
}

func (t *tx) InsertCustomer(_ context.Context, c trip.Customer) (trip.Customer, error) {
	c.ID = t.st.id()
	t.st.customers[c.ID] = c
	return c, nil
}

func (t *tx) UpsertCage(ctx context.Context, tripID int64, number int) (int64, error) {
	if id, err := t.FindCage(ctx, tripID, number); err == nil {
		return id, nil
	}
	id := t.st.id()
	t.st.cages[id] = cage{tripID: tripID, number: number}
	return id, nil
}

func (t *tx) FindCage(_ context.Context, tripID int64, number int) (int64, error) {
	for id, c := range t.st.cages {
		if c.tripID == tripID && c.number == number {
			return id, nil
		}
	}
	return 0, trip.ErrRecordNotFound
}

func (t *tx) ListCages(_ context.Context, tripID int64) ([]int, error) {
	var out []int
	for _, c := range t.st.cages {
		if c.tripID == tripID {
			out = append(out, c.number)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (t *tx) UpsertCageEntry(_ context.Context, cageID int64, color trip.Color, birds int64, weight decimal.Decimal) error {
	if t.st.entries[cageID] == nil {
		t.st.entries[cageID] = map[trip.Color]trip.Totals{}
	}
	t.st.entries[cageID][color] = trip.Totals{Birds: birds, Weight: weight}
	return nil
}

func (t *tx) DeleteCageEntries(_ context.Context, cageID int64) (int64, error) {
	n := int64(len(t.st.entries[cageID]))
	delete(t.st.entries, cageID)
	return n, nil
}

func (t *tx) SumTrip(_ context.Context, tripID int64) (trip.Totals, error) {
	sum := trip.Totals{Weight: decimal.Zero}
	for id, c := range t.st.cages {
		if c.tripID != tripID {
			continue
		}
		for _, e := range t.st.entries[id] {
			sum.Birds += e.Birds
			sum.Weight = sum.Weight.Add(e.Weight)
		}
	}
	return sum, nil
}

func (t *tx) SumCage(ctx context.Context, tripID int64, number int) (trip.Totals, error) {
	sum := trip.Totals{Weight: decimal.Zero}
	id, err := t.FindCage(ctx, tripID, number)
	if err != nil {
		return sum, nil
	}
	for _, e := range t.st.entries[id] {
		sum.Birds += e.Birds
		sum.Weight = sum.Weight.Add(e.Weight)
	}
	return sum, nil
}

func (t *tx) LiftedByCageColor(_ context.Context, tripID int64) ([]trip.CageColorTotal, error) {
	var out []trip.CageColorTotal
	for id, c := range t.st.cages {
		if c.tripID != tripID {
			continue
		}
		for color, e := range t.st.entries[id] {
			out = append(out, trip.CageColorTotal{CageNumber: c.number, Color: color, Totals: e})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CageNumber != out[j].CageNumber {
			return out[i].CageNumber < out[j].CageNumber
		}
		return out[i].Color < out[j].Color
	})
	return out, nil
}

func (t *tx) InsertSale(_ context.Context, s trip.Sale) (trip.Sale, error) {
	s.ID = t.st.id()
	t.st.sales = append(t.st.sales, s)
	return s, nil
}

func (t *tx) SoldByCage(_ context.Context, tripID int64) (map[int]trip.Totals, error) {
	out := map[int]trip.Totals{}
	for _, s := range t.st.sales {
		if s.TripID != tripID {
			continue
		}
		cur := out[s.CageNumber]
		out[s.CageNumber] = trip.Totals{Birds: cur.Birds + s.BirdCount, Weight: cur.Weight.Add(s.Weight)}
	}
	return out, nil
}

func (t *tx) ListTripSales(_ context.Context, tripID int64) ([]trip.Sale, error) {
	var out []trip.Sale
	for _, s := range t.st.sales {
		if s.TripID == tripID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *tx) LockCustomer(_ context.Context, tenantID, customerID int64) (trip.Customer, error) {
	c, ok := t.st.customers[customerID]
	if !ok || c.TenantID != tenantID {
		return trip.Customer{}, trip.ErrRecordNotFound
	}
	return c, nil
}

func (t *tx) SetOutstanding(_ context.Context, customerID int64, outstanding decimal.Decimal) error {
	c, ok := t.st.customers[customerID]
	if !ok {
		return trip.ErrRecordNotFound
	}
	c.Outstanding = outstanding
	t.st.customers[customerID] = c
	return nil
}

func (t *tx) InsertCredit(_ context.Context, c trip.Credit) error {
	t.st.credits = append(t.st.credits, c)
	return nil
}

func (t *tx) ListCustomersByOutstanding(_ context.Context, tenantID int64) ([]trip.Customer, error) {
	var out []trip.Customer
	for _, c := range t.st.customers {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Outstanding.Cmp(out[j].Outstanding); cmp != 0 {
			return cmp > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (t *tx) InsertExpense(_ context.Context, e trip.Expense) (trip.Expense, error) {
	e.ID = t.st.id()
	t.st.expenses = append(t.st.expenses, e)
	return e, nil
}

func (t *tx) ListExpenses(_ context.Context, tripID int64) ([]trip.Expense, error) {
	var out []trip.Expense
	for _, e := range t.st.expenses {
		if e.TripID == tripID {
			out = append(out, e)
		}
	}
	return out, nil
}
