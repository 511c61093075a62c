// Package report builds the aggregated sales views of a tenant.
package report

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GroupBy selects how sales rows are aggregated.
type GroupBy string

const (
	GroupNone     GroupBy = "NONE"
	GroupDate     GroupBy = "DATE"
	GroupCustomer GroupBy = "CUSTOMER"
	GroupFarmer   GroupBy = "FARMER"
	GroupDriver   GroupBy = "DRIVER"
)

func ParseGroupBy(raw string) (GroupBy, error) {
	switch g := GroupBy(strings.ToUpper(strings.TrimSpace(raw))); g {
	case "":
		return GroupNone, nil
	case GroupNone, GroupDate, GroupCustomer, GroupFarmer, GroupDriver:
		return g, nil
	}
	return "", errors.New("groupBy must be one of NONE, DATE, CUSTOMER, FARMER, DRIVER")
}

// Shape holds the SQL fragments of one aggregation variant. Every variant
// selects a nullable group_id and a text group_key.
type Shape struct {
	Select  string
	GroupBy string
	OrderBy string
}

func ShapeFor(g GroupBy) Shape {
	switch g {
	case GroupDate:
		return Shape{
			Select:  `NULL::bigint AS group_id, to_char(s.created_at::date, 'YYYY-MM-DD') AS group_key`,
			GroupBy: `GROUP BY s.created_at::date`,
			OrderBy: `ORDER BY group_key DESC`,
		}
	case GroupCustomer:
		return Shape{
			Select:  `c.id AS group_id, c.name AS group_key`,
			GroupBy: `GROUP BY c.id, c.name`,
			OrderBy: `ORDER BY group_key ASC`,
		}
	case GroupFarmer:
		return Shape{
			Select:  `f.id AS group_id, f.name AS group_key`,
			GroupBy: `GROUP BY f.id, f.name`,
			OrderBy: `ORDER BY group_key ASC`,
		}
	case GroupDriver:
		return Shape{
			Select:  `u.id AS group_id, u.name AS group_key`,
			GroupBy: `GROUP BY u.id, u.name`,
			OrderBy: `ORDER BY group_key ASC`,
		}
	case GroupNone:
	}
	return Shape{Select: `NULL::bigint AS group_id, 'ALL' AS group_key`}
}

// SalesQuery returns the aggregation query for g. Parameters: $1 tenant,
// $2 start date, $3 end date, $4 customer, $5 farmer, $6 driver, $7 time zone
// name; $2..$6 may be NULL. Sale days are calendar days in the $7 zone.
func SalesQuery(g GroupBy) string {
	shape := ShapeFor(g)
	return `
		SELECT
			` + shape.Select + `,
			COUNT(s.id) AS total_transactions,
			COALESCE(SUM(s.total_amount), 0) AS total_sales,
			COALESCE(SUM(s.cash_amount), 0) AS cash_received,
			COALESCE(SUM(s.upi_amount), 0) AS upi_received,
			COALESCE(SUM(s.total_amount) - SUM(s.cash_amount + s.upi_amount), 0) AS pending_amount
		FROM sales s
		JOIN trips t ON t.id = s.trip_id
		JOIN customers c ON c.id = s.customer_id
		JOIN farms fa ON fa.id = t.farm_id
		JOIN farmers f ON f.id = fa.farmer_id
		JOIN users u ON u.id = t.driver_id
		WHERE t.company_id = $1
			AND ($2::date IS NULL OR (s.created_at AT TIME ZONE $7::text)::date >= $2::date)
			AND ($3::date IS NULL OR (s.created_at AT TIME ZONE $7::text)::date <= $3::date)
			AND ($4::bigint IS NULL OR s.customer_id = $4)
			AND ($5::bigint IS NULL OR f.id = $5)
			AND ($6::bigint IS NULL OR t.driver_id = $6)
		` + shape.GroupBy + `
		` + shape.OrderBy
}

type Filter struct {
	GroupBy    GroupBy    `json:"groupBy"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	CustomerID *int64     `json:"customerId,omitempty"`
	FarmerID   *int64     `json:"farmerId,omitempty"`
	DriverID   *int64     `json:"driverId,omitempty"`
	// Location decides which calendar day a sale belongs to. Nil means UTC.
	Location *time.Location `json:"-"`
}

func (f Filter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Day returns the calendar day of t in the filter's location.
func (f Filter) Day(t time.Time) string {
	return t.In(f.location()).Format("2006-01-02")
}

// Zone names the filter's location for the database.
func (f Filter) Zone() string {
	if name := f.location().String(); name != "Local" {
		return name
	}
	return "UTC"
}

// Args returns the positional parameters of SalesQuery. Date bounds are sent
// as UTC midnight of their calendar day in the filter's location.
func (f Filter) Args(tenantID int64) []any {
	return []any{tenantID, f.dayArg(f.StartDate), f.dayArg(f.EndDate), f.CustomerID, f.FarmerID, f.DriverID, f.Zone()}
}

func (f Filter) dayArg(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.In(f.location()).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day
}

func (f Filter) Validate() error {
	if _, err := ParseGroupBy(string(f.GroupBy)); err != nil {
		return err
	}
	if f.StartDate != nil && f.EndDate != nil && f.Day(*f.EndDate) < f.Day(*f.StartDate) {
		return errors.New("endDate cannot be before startDate")
	}
	return nil
}

// Includes reports whether a sale made at t falls inside the filter's date range.
func (f Filter) Includes(t time.Time) bool {
	day := f.Day(t)
	if f.StartDate != nil && day < f.Day(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && day > f.Day(*f.EndDate) {
		return false
	}
	return true
}

type Row struct {
	GroupID      *int64          `json:"groupId,omitempty"`
	GroupKey     string          `json:"groupKey"`
	Transactions int64           `json:"totalTransactions"`
	TotalSales   decimal.Decimal `json:"totalSales"`
	CashReceived decimal.Decimal `json:"cashReceived"`
	UPIReceived  decimal.Decimal `json:"upiReceived"`
	Pending      decimal.Decimal `json:"pendingAmount"`
}

type Summary struct {
	Transactions int64           `json:"totalTransactions"`
	TotalSales   decimal.Decimal `json:"totalSales"`
	CashReceived decimal.Decimal `json:"cashReceived"`
	UPIReceived  decimal.Decimal `json:"upiReceived"`
	Pending      decimal.Decimal `json:"pending"`
}

func Summarize(rows []Row) Summary {
	sum := Summary{
		TotalSales:   decimal.Zero,
		CashReceived: decimal.Zero,
		UPIReceived:  decimal.Zero,
		Pending:      decimal.Zero,
	}
	for _, r := range rows {
		sum.Transactions += r.Transactions
		sum.TotalSales = sum.TotalSales.Add(r.TotalSales)
		sum.CashReceived = sum.CashReceived.Add(r.CashReceived)
		sum.UPIReceived = sum.UPIReceived.Add(r.UPIReceived)
		sum.Pending = sum.Pending.Add(r.Pending)
	}
	return sum
}

type Result struct {
	Filter  Filter  `json:"filters"`
	Summary Summary `json:"summary"`
	Rows    []Row   `json:"rows"`
}
