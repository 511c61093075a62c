package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/report"
	"poultrytrade/backend/internal/trip"
)

type queries struct {
	tx pgx.Tx
}

var _ trip.Tx = (*queries)(nil)

const tripColumns = `id, company_id, farm_id, driver_id, lifter_id, total_birds, total_weight,
	status, trip_date, contact_name, contact_phone, created_at, closed_at`

func scanTrip(row pgx.Row) (trip.Trip, error) {
	var (
		t      trip.Trip
		status string
	)
	err := row.Scan(&t.ID, &t.TenantID, &t.FarmID, &t.DriverID, &t.LifterID, &t.TotalBirds, &t.TotalWeight,
		&status, &t.TripDate, &t.ContactName, &t.ContactPhone, &t.CreatedAt, &t.ClosedAt)
	if err != nil {
		return trip.Trip{}, notFound(err)
	}
	t.Status = trip.Status(status)
	return t, nil
}

func (q *queries) InsertTrip(ctx context.Context, t trip.Trip) (trip.Trip, error) {
	return scanTrip(q.tx.QueryRow(ctx, `
		INSERT INTO trips (company_id, farm_id, driver_id, lifter_id, total_birds, total_weight,
			status, trip_date, contact_name, contact_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+tripColumns,
		t.TenantID, t.FarmID, t.DriverID, t.LifterID, t.TotalBirds, t.TotalWeight,
		string(t.Status), t.TripDate, t.ContactName, t.ContactPhone, t.CreatedAt))
}

func (q *queries) GetTrip(ctx context.Context, tenantID, tripID int64) (trip.Trip, error) {
	return scanTrip(q.tx.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 AND company_id = $2`, tripID, tenantID))
}

func (q *queries) LockTrip(ctx context.Context, tenantID, tripID int64) (trip.Trip, error) {
	return scanTrip(q.tx.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 AND company_id = $2 FOR UPDATE`, tripID, tenantID))
}

func (q *queries) SaveTripState(ctx context.Context, t trip.Trip) error {
	tag, err := q.tx.Exec(ctx, `
		UPDATE trips
		SET total_birds = $2, total_weight = $3, status = $4, closed_at = $5
		WHERE id = $1
	`, t.ID, t.TotalBirds, t.TotalWeight, string(t.Status), t.ClosedAt)
	if err != nil {
		return fmt.Errorf("save trip %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrRecordNotFound
	}
	return nil
}

func (q *queries) ListAssignedTrips(ctx context.Context, tenantID, userID int64) ([]trip.Trip, error) {
	rows, err := q.tx.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE company_id = $1 AND (driver_id = $2 OR lifter_id = $2) AND status <> 'CLOSED'
		ORDER BY trip_date DESC, id DESC
	`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) ListTrips(ctx context.Context, tenantID int64) ([]trip.Trip, error) {
	rows, err := q.tx.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE company_id = $1
		ORDER BY trip_date DESC, id DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) FindMember(ctx context.Context, tenantID, userID int64) (trip.Member, error) {
	var (
		m    trip.Member
		role string
	)
	err := q.tx.QueryRow(ctx, `
		SELECT id, company_id, name, role FROM users WHERE id = $1 AND company_id = $2
	`, userID, tenantID).Scan(&m.ID, &m.TenantID, &m.Name, &role)
	if err != nil {
		return trip.Member{}, notFound(err)
	}
	m.Role = trip.Role(role)
	return m, nil
}

func (q *queries) FindFarm(ctx context.Context, tenantID, farmID int64) (trip.Farm, error) {
	var f trip.Farm
	err := q.tx.QueryRow(ctx, `
		SELECT id, company_id, farmer_id, location FROM farms WHERE id = $1 AND company_id = $2
	`, farmID, tenantID).Scan(&f.ID, &f.TenantID, &f.FarmerID, &f.Location)
	if err != nil {
		return trip.Farm{}, notFound(err)
	}
	return f, nil
}

func (q *queries) InsertFarmer(ctx context.Context, f trip.Farmer) (trip.Farmer, error) {
	err := q.tx.QueryRow(ctx, `
		INSERT INTO farmers (company_id, name, mobile)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id
	`, f.TenantID, f.Name, f.Mobile).Scan(&f.ID)
	return f, err
}

func (q *queries) InsertFarm(ctx context.Context, f trip.Farm) (trip.Farm, error) {
	err := q.tx.QueryRow(ctx, `
		INSERT INTO farms (company_id, farmer_id, location)
		VALUES ($1, $2, $3)
		RETURNING id
	`, f.TenantID, f.FarmerID, f.Location).Scan(&f.ID)
	return f, err
}

func (q *queries) UpsertCage(ctx context.Context, tripID int64, cageNumber int) (int64, error) {
	var id int64
	err := q.tx.QueryRow(ctx, `
		INSERT INTO trip_cages (trip_id, cage_number)
		VALUES ($1, $2)
		ON CONFLICT (trip_id, cage_number) DO UPDATE SET cage_number = EXCLUDED.cage_number
		RETURNING id
	`, tripID, cageNumber).Scan(&id)
	return id, err
}

func (q *queries) FindCage(ctx context.Context, tripID int64, cageNumber int) (int64, error) {
	var id int64
	err := q.tx.QueryRow(ctx, `SELECT id FROM trip_cages WHERE trip_id = $1 AND cage_number = $2`, tripID, cageNumber).Scan(&id)
	return id, notFound(err)
}

func (q *queries) ListCages(ctx context.Context, tripID int64) ([]int, error) {
	rows, err := q.tx.Query(ctx, `SELECT cage_number FROM trip_cages WHERE trip_id = $1 ORDER BY cage_number`, tripID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (q *queries) UpsertCageEntry(ctx context.Context, cageID int64, color trip.Color, birds int64, weight decimal.Decimal) error {
	_, err := q.tx.Exec(ctx, `
		INSERT INTO trip_cage_entries (trip_cage_id, color, bird_count, weight)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trip_cage_id, color)
		DO UPDATE SET bird_count = EXCLUDED.bird_count, weight = EXCLUDED.weight, updated_at = NOW()
	`, cageID, string(color), birds, weight)
	return err
}

func (q *queries) DeleteCageEntries(ctx context.Context, cageID int64) (int64, error) {
	tag, err := q.tx.Exec(ctx, `DELETE FROM trip_cage_entries WHERE trip_cage_id = $1`, cageID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *queries) SumTrip(ctx context.Context, tripID int64) (trip.Totals, error) {
	var t trip.Totals
	err := q.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(e.bird_count), 0), COALESCE(SUM(e.weight), 0)
		FROM trip_cages c
		JOIN trip_cage_entries e ON e.trip_cage_id = c.id
		WHERE c.trip_id = $1
	`, tripID).Scan(&t.Birds, &t.Weight)
	return t, err
}

func (q *queries) SumCage(ctx context.Context, tripID int64, cageNumber int) (trip.Totals, error) {
	var t trip.Totals
	err := q.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(e.bird_count), 0), COALESCE(SUM(e.weight), 0)
		FROM trip_cages c
		JOIN trip_cage_entries e ON e.trip_cage_id = c.id
		WHERE c.trip_id = $1 AND c.cage_number = $2
	`, tripID, cageNumber).Scan(&t.Birds, &t.Weight)
	return t, err
}

func (q *queries) LiftedByCageColor(ctx context.Context, tripID int64) ([]trip.CageColorTotal, error) {
	rows, err := q.tx.Query(ctx, `
		SELECT c.cage_number, e.color, SUM(e.bird_count), SUM(e.weight)
		FROM trip_cages c
		JOIN trip_cage_entries e ON e.trip_cage_id = c.id
		WHERE c.trip_id = $1
		GROUP BY c.cage_number, e.color
		ORDER BY c.cage_number, e.color
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.CageColorTotal
	for rows.Next() {
		var (
			ct    trip.CageColorTotal
			color string
		)
		if err := rows.Scan(&ct.CageNumber, &color, &ct.Birds, &ct.Weight); err != nil {
			return nil, err
		}
		ct.Color = trip.Color(color)
		out = append(out, ct)
	}
	return out, rows.Err()
}

const saleColumns = `id, trip_id, customer_id, cage_number, sell_type, bird_count, weight, rate,
	total_amount, payment_mode, cash_amount, upi_amount, created_at`

func scanSale(row pgx.Row) (trip.Sale, error) {
	var (
		s              trip.Sale
		sellType, mode string
	)
	err := row.Scan(&s.ID, &s.TripID, &s.CustomerID, &s.CageNumber, &sellType, &s.BirdCount, &s.Weight, &s.Rate,
		&s.TotalAmount, &mode, &s.CashAmount, &s.UPIAmount, &s.CreatedAt)
	s.SellType, s.PaymentMode = trip.SellType(sellType), trip.PaymentMode(mode)
	return s, err
}

func (q *queries) InsertSale(ctx context.Context, s trip.Sale) (trip.Sale, error) {
	return scanSale(q.tx.QueryRow(ctx, `
		INSERT INTO sales (trip_id, customer_id, cage_number, sell_type, bird_count, weight, rate,
			total_amount, payment_mode, cash_amount, upi_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+saleColumns,
		s.TripID, s.CustomerID, s.CageNumber, string(s.SellType), s.BirdCount, s.Weight, s.Rate,
		s.TotalAmount, string(s.PaymentMode), s.CashAmount, s.UPIAmount, s.CreatedAt))
}

func (q *queries) SoldByCage(ctx context.Context, tripID int64) (map[int]trip.Totals, error) {
	rows, err := q.tx.Query(ctx, `
		SELECT cage_number, COALESCE(SUM(bird_count), 0), COALESCE(SUM(weight), 0)
		FROM sales
		WHERE trip_id = $1
		GROUP BY cage_number
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]trip.Totals{}
	for rows.Next() {
		var (
			cage int
			t    trip.Totals
		)
		if err := rows.Scan(&cage, &t.Birds, &t.Weight); err != nil {
			return nil, err
		}
		out[cage] = t
	}
	return out, rows.Err()
}

func (q *queries) ListTripSales(ctx context.Context, tripID int64) ([]trip.Sale, error) {
	rows, err := q.tx.Query(ctx, `SELECT `+saleColumns+` FROM sales WHERE trip_id = $1 ORDER BY id`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *queries) InsertCustomer(ctx context.Context, c trip.Customer) (trip.Customer, error) {
	err := q.tx.QueryRow(ctx, `
		INSERT INTO customers (company_id, name, mobile, outstanding)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, c.TenantID, c.Name, c.Mobile, c.Outstanding).Scan(&c.ID)
	return c, err
}

func (q *queries) LockCustomer(ctx context.Context, tenantID, customerID int64) (trip.Customer, error) {
	var c trip.Customer
	err := q.tx.QueryRow(ctx, `
		SELECT id, company_id, name, COALESCE(mobile, ''), outstanding
		FROM customers
		WHERE id = $1 AND company_id = $2
		FOR UPDATE
	`, customerID, tenantID).Scan(&c.ID, &c.TenantID, &c.Name, &c.Mobile, &c.Outstanding)
	if err != nil {
		return trip.Customer{}, notFound(err)
	}
	return c, nil
}

func (q *queries) SetOutstanding(ctx context.Context, customerID int64, outstanding decimal.Decimal) error {
	tag, err := q.tx.Exec(ctx, `UPDATE customers SET outstanding = $2 WHERE id = $1`, customerID, outstanding)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return trip.ErrRecordNotFound
	}
	return nil
}

func (q *queries) InsertCredit(ctx context.Context, c trip.Credit) error {
	_, err := q.tx.Exec(ctx, `
		INSERT INTO customer_credits (customer_id, amount, balance_after, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.CustomerID, c.Amount, c.Balance, c.UserID, c.CreatedAt)
	return err
}

func (q *queries) ListCustomersByOutstanding(ctx context.Context, tenantID int64) ([]trip.Customer, error) {
	rows, err := q.tx.Query(ctx, `
		SELECT id, company_id, name, COALESCE(mobile, ''), outstanding
		FROM customers
		WHERE company_id = $1
		ORDER BY outstanding DESC, name ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.Customer
	for rows.Next() {
		var c trip.Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Mobile, &c.Outstanding); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const expenseColumns = `id, trip_id, diesel_expense, driver_expense, other_expense, purchase_rate_per_kg, created_at`

func scanExpense(row pgx.Row) (trip.Expense, error) {
	var e trip.Expense
	err := row.Scan(&e.ID, &e.TripID, &e.DieselExpense, &e.DriverExpense, &e.OtherExpense, &e.PurchaseRatePerKg, &e.CreatedAt)
	return e, err
}

func (q *queries) InsertExpense(ctx context.Context, e trip.Expense) (trip.Expense, error) {
	return scanExpense(q.tx.QueryRow(ctx, `
		INSERT INTO expenses (trip_id, diesel_expense, driver_expense, other_expense, purchase_rate_per_kg, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+expenseColumns,
		e.TripID, e.DieselExpense, e.DriverExpense, e.OtherExpense, e.PurchaseRatePerKg, e.CreatedAt))
}

func (q *queries) ListExpenses(ctx context.Context, tripID int64) ([]trip.Expense, error) {
	rows, err := q.tx.Query(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE trip_id = $1 ORDER BY id`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *queries) SalesReport(ctx context.Context, tenantID int64, f report.Filter) ([]report.Row, error) {
	rows, err := q.tx.Query(ctx, report.SalesQuery(f.GroupBy), f.Args(tenantID)...)
	if err != nil {
		return nil, fmt.Errorf("sales report: %w", err)
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var r report.Row
		if err := rows.Scan(&r.GroupID, &r.GroupKey, &r.Transactions, &r.TotalSales, &r.CashReceived, &r.UPIReceived, &r.Pending); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
