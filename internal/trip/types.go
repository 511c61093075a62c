package trip

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleTrader  Role = "TRADER"
	RoleManager Role = "MANAGER"
	RoleDriver  Role = "DRIVER"
	RoleLifter  Role = "LIFTER"
)

func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RoleTrader, RoleManager, RoleDriver, RoleLifter:
		return r, true
	}
	return "", false
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   int64
	TenantID int64
	Role     Role
}

func (a Actor) backOffice() bool {
	switch a.Role {
	case RoleTrader, RoleManager:
		return true
	case RoleDriver, RoleLifter:
		return false
	}
	return false
}

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusLifted     Status = "LIFTED"
	StatusClosed     Status = "CLOSED"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusCreated, StatusInProgress, StatusLifted, StatusClosed:
		return s, nil
	}
	return "", Validation("unknown trip status %q", raw)
}

// CanTransitionTo reports whether next directly follows s in the trip lifecycle.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusCreated:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusLifted
	case StatusLifted:
		return next == StatusClosed
	case StatusClosed:
		return false
	}
	return false
}

// Color names a sub-bucket of birds inside a cage.
type Color string

// DefaultColor is the unsorted bucket. Sales are charged against it.
const DefaultColor Color = "DEFAULT"

var colorRe = regexp.MustCompile(`^[A-Z0-9_-]{1,32}$`)

func ParseColor(raw string) (Color, error) {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if c == "" {
		return DefaultColor, nil
	}
	if !colorRe.MatchString(c) {
		return "", Validation("color must be 1-32 chars (A-Z, 0-9, _ or -)")
	}
	return Color(c), nil
}

type SellType string

const (
	SellFull    SellType = "FULL"
	SellPartial SellType = "PARTIAL"
)

func ParseSellType(raw string) (SellType, error) {
	switch t := SellType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case SellFull, SellPartial:
		return t, nil
	}
	return "", Validation("sell type must be FULL or PARTIAL")
}

type PaymentMode string

const (
	PaymentCash   PaymentMode = "CASH"
	PaymentUPI    PaymentMode = "UPI"
	PaymentSplit  PaymentMode = "SPLIT"
	PaymentCredit PaymentMode = "CREDIT"
)

func ParsePaymentMode(raw string) (PaymentMode, error) {
	switch m := PaymentMode(strings.ToUpper(strings.TrimSpace(raw))); m {
	case PaymentCash, PaymentUPI, PaymentSplit, PaymentCredit:
		return m, nil
	}
	return "", Validation("payment mode must be CASH, UPI, SPLIT or CREDIT")
}

// Totals is a bird count with its weight in kilograms.
type Totals struct {
	Birds  int64           `json:"totalBirds"`
	Weight decimal.Decimal `json:"totalWeight"`
}

func (t Totals) add(o Totals) Totals {
	return Totals{Birds: t.Birds + o.Birds, Weight: t.Weight.Add(o.Weight)}
}

type Trip struct {
	ID           int64           `json:"id"`
	TenantID     int64           `json:"tenantId"`
	FarmID       int64           `json:"farmId"`
	DriverID     int64           `json:"driverId"`
	LifterID     *int64          `json:"lifterId,omitempty"`
	TotalBirds   int64           `json:"totalBirds"`
	TotalWeight  decimal.Decimal `json:"totalWeight"`
	Status       Status          `json:"status"`
	TripDate     time.Time       `json:"tripDate"`
	ContactName  string          `json:"contactName,omitempty"`
	ContactPhone string          `json:"contactPhone,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	ClosedAt     *time.Time      `json:"closedAt,omitempty"`
}

// crew reports whether userID is the trip's driver or lifter.
func (t Trip) crew(userID int64) bool {
	if t.DriverID == userID {
		return true
	}
	return t.LifterID != nil && *t.LifterID == userID
}

// CageColorTotal is the lifted quantity of one (cage, color) bucket.
type CageColorTotal struct {
	CageNumber int
	Color      Color
	Totals
}

type Sale struct {
	ID          int64           `json:"id"`
	TripID      int64           `json:"tripId"`
	CustomerID  int64           `json:"customerId"`
	CageNumber  int             `json:"cageNumber"`
	SellType    SellType        `json:"sellType"`
	BirdCount   int64           `json:"birdCount"`
	Weight      decimal.Decimal `json:"weight"`
	Rate        decimal.Decimal `json:"rate"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PaymentMode PaymentMode     `json:"paymentMode"`
	CashAmount  decimal.Decimal `json:"cashAmount"`
	UPIAmount   decimal.Decimal `json:"upiAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Member is a login account as seen by trip assignment.
type Member struct {
	ID       int64
	TenantID int64
	Name     string
	Role     Role
}

type Farmer struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenantId"`
	Name     string `json:"name"`
	Mobile   string `json:"mobile,omitempty"`
	Farms    []Farm `json:"farms"`
}

// Farm is a pickup location owned by a farmer.
type Farm struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenantId"`
	FarmerID int64  `json:"farmerId"`
	Location string `json:"location"`
}

type Customer struct {
	ID          int64           `json:"id"`
	TenantID    int64           `json:"tenantId"`
	Name        string          `json:"name"`
	Mobile      string          `json:"mobile"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Credit is one payment received against a customer's outstanding balance.
type Credit struct {
	CustomerID int64
	Amount     decimal.Decimal
	Balance    decimal.Decimal
	UserID     int64
	CreatedAt  time.Time
}

type Expense struct {
	ID                int64           `json:"id"`
	TripID            int64           `json:"tripId"`
	DieselExpense     decimal.Decimal `json:"dieselExpense"`
	DriverExpense     decimal.Decimal `json:"driverExpense"`
	OtherExpense      decimal.Decimal `json:"otherExpense"`
	PurchaseRatePerKg decimal.Decimal `json:"purchaseRatePerKg"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func (e Expense) total() decimal.Decimal {
	return e.DieselExpense.Add(e.DriverExpense).Add(e.OtherExpense)
}
