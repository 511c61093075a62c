package trip

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/report"
)

// Store runs units of work against the persistent store. WithTx commits when fn
// returns nil and rolls back otherwise.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of queries available inside a transaction. Lookups of a single
// row return ErrRecordNotFound when the row does not exist.
type Tx interface {
	InsertTrip(ctx context.Context, t Trip) (Trip, error)
	GetTrip(ctx context.Context, tenantID, tripID int64) (Trip, error)
	// LockTrip is GetTrip holding an exclusive row lock until the transaction ends.
	LockTrip(ctx context.Context, tenantID, tripID int64) (Trip, error)
	SaveTripState(ctx context.Context, t Trip) error
	ListAssignedTrips(ctx context.Context, tenantID, userID int64) ([]Trip, error)
	ListTrips(ctx context.Context, tenantID int64) ([]Trip, error)

	FindMember(ctx context.Context, tenantID, userID int64) (Member, error)
	FindFarm(ctx context.Context, tenantID, farmID int64) (Farm, error)
	InsertFarmer(ctx context.Context, f Farmer) (Farmer, error)
	InsertFarm(ctx context.Context, f Farm) (Farm, error)

	UpsertCage(ctx context.Context, tripID int64, cageNumber int) (int64, error)
	FindCage(ctx context.Context, tripID int64, cageNumber int) (int64, error)
	ListCages(ctx context.Context, tripID int64) ([]int, error)
	UpsertCageEntry(ctx context.Context, cageID int64, color Color, birds int64, weight decimal.Decimal) error
	DeleteCageEntries(ctx context.Context, cageID int64) (int64, error)
	SumTrip(ctx context.Context, tripID int64) (Totals, error)
	SumCage(ctx context.Context, tripID int64, cageNumber int) (Totals, error)
	LiftedByCageColor(ctx context.Context, tripID int64) ([]CageColorTotal, error)

	InsertSale(ctx context.Context, s Sale) (Sale, error)
	SoldByCage(ctx context.Context, tripID int64) (map[int]Totals, error)
	ListTripSales(ctx context.Context, tripID int64) ([]Sale, error)

	InsertCustomer(ctx context.Context, c Customer) (Customer, error)
	// LockCustomer returns the customer holding an exclusive row lock.
	LockCustomer(ctx context.Context, tenantID, customerID int64) (Customer, error)
	SetOutstanding(ctx context.Context, customerID int64, outstanding decimal.Decimal) error
	InsertCredit(ctx context.Context, c Credit) error
	ListCustomersByOutstanding(ctx context.Context, tenantID int64) ([]Customer, error)

	InsertExpense(ctx context.Context, e Expense) (Expense, error)
	ListExpenses(ctx context.Context, tripID int64) ([]Expense, error)

	SalesReport(ctx context.Context, tenantID int64, f report.Filter) ([]report.Row, error)
}

// SettlementSink receives the summary of every trip closed by CloseDay.
type SettlementSink interface {
	Publish(ctx context.Context, s Settlement) error
}

// Settlement summarises the financial outcome of a closed trip.
type Settlement struct {
	TripID        int64           `json:"tripId"`
	TenantID      int64           `json:"tenantId"`
	ClosedAt      time.Time       `json:"closedAt"`
	TotalBirds    int64           `json:"totalBirds"`
	TotalWeight   decimal.Decimal `json:"totalWeight"`
	SalesAmount   decimal.Decimal `json:"salesAmount"`
	CashCollected decimal.Decimal `json:"cashCollected"`
	UPICollected  decimal.Decimal `json:"upiCollected"`
	Pending       decimal.Decimal `json:"pending"`
	Expense       Expense         `json:"expense"`
	ExpenseTotal  decimal.Decimal `json:"expenseTotal"`
	PurchaseCost  decimal.Decimal `json:"purchaseCost"`
	Margin        decimal.Decimal `json:"margin"`
}
