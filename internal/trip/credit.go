package trip

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditCustomer applies a payment against a customer's outstanding balance and
// returns the new balance. Concurrent credits on one customer are serialized by
// the row lock taken before the balance is read.
func (s *Service) CreditCustomer(ctx context.Context, actor Actor, customerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requireBackOffice(actor); err != nil {
		return decimal.Zero, err
	}
	if customerID <= 0 {
		return decimal.Zero, Validation("customer is required")
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, Validation("credit amount must be greater than zero")
	}

	var balance decimal.Decimal
	err := s.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.LockCustomer(ctx, actor.TenantID, customerID)
		if errors.Is(err, ErrRecordNotFound) {
			return NotFound("customer not found")
		}
		if err != nil {
			return err
		}
		if amount.GreaterThan(c.Outstanding) {
			return Validation("credit amount cannot exceed outstanding %s", c.Outstanding.StringFixed(2))
		}

		balance = c.Outstanding.Sub(amount)
		if err := tx.SetOutstanding(ctx, c.ID, balance); err != nil {
			return err
		}
		return tx.InsertCredit(ctx, Credit{
			CustomerID: c.ID,
			Amount:     amount,
			Balance:    balance,
			UserID:     actor.UserID,
			CreatedAt:  s.now(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("credit applied",
		zap.Int64("customer_id", customerID),
		zap.String("amount", amount.String()),
		zap.String("outstanding", balance.String()))
	return balance, nil
}

// ListOutstanding returns the tenant's customers, largest balance first.
func (s *Service) ListOutstanding(ctx context.Context, actor Actor) ([]Customer, error) {
	if err := requireBackOffice(actor); err != nil {
		return nil, err
	}
	var customers []Customer
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		customers, err = tx.ListCustomersByOutstanding(ctx, actor.TenantID)
		return err
	})
	return customers, err
}
