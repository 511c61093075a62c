// Package postgres implements the trip store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/trip"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx trip.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) FindUserByMobile(ctx context.Context, mobile string) (auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, name, mobile, role, password_hash
		FROM users
		WHERE mobile = $1
	`, mobile).Scan(&u.ID, &u.TenantID, &u.Name, &u.Mobile, &role, &u.PasswordHash)
	if err != nil {
		return auth.User{}, notFound(err)
	}
	u.Role = trip.Role(role)
	return u, nil
}

// notFound maps pgx.ErrNoRows onto the store-neutral sentinel.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return trip.ErrRecordNotFound
	}
	return err
}

// rowQuerier is the QueryRow method shared by the pool and a transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateCompanyWithUser creates a company and its first login account in one
// transaction. Neither row is kept when the user insert fails.
func (s *Store) CreateCompanyWithUser(ctx context.Context, name string, u auth.User) (int64, int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var companyID int64
	if err := tx.QueryRow(ctx, `INSERT INTO companies (name) VALUES ($1) RETURNING id`, name).Scan(&companyID); err != nil {
		return 0, 0, fmt.Errorf("insert company: %w", err)
	}
	u.TenantID = companyID
	userID, err := insertUser(ctx, tx, u)
	if err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit tx: %w", err)
	}
	return companyID, userID, nil
}

// CreateUser adds a login account to an existing company.
func (s *Store) CreateUser(ctx context.Context, u auth.User) (int64, error) {
	return insertUser(ctx, s.pool, u)
}

// insertUser reports a taken mobile number as a trip conflict error.
func insertUser(ctx context.Context, q rowQuerier, u auth.User) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO users (company_id, name, mobile, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, u.TenantID, u.Name, u.Mobile, string(u.Role), u.PasswordHash).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return 0, trip.Conflict("mobile %s already registered", u.Mobile)
	}
	return id, err
}
