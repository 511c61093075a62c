package trip

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleRequest sells stock from one or more cages of a trip to one customer.
type SaleRequest struct {
	CustomerID  int64
	CageNumbers []int
	SellType    string
	Rate        decimal.Decimal
	// TotalAmount, BirdCount and Weight are the caller's figures for PARTIAL
	// sales. TotalAmount may also override the transaction total of a FULL sale.
	TotalAmount *decimal.Decimal
	BirdCount   int64
	Weight      decimal.Decimal
	PaymentMode string
	CashAmount  decimal.Decimal
	UPIAmount   decimal.Decimal
}

// SaleReceipt is the outcome of one sale transaction.
type SaleReceipt struct {
	Sales       []Sale          `json:"sales"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Collected   decimal.Decimal `json:"collected"`
	Pending     decimal.Decimal `json:"pending"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type saleLine struct {
	cage   int
	birds  int64
	weight decimal.Decimal
	amount decimal.Decimal
}

type validSale struct {
	SaleRequest
	sellType SellType
	mode     PaymentMode
}

func validateSale(req SaleRequest) (validSale, error) {
	v := validSale{SaleRequest: req}
	if req.CustomerID <= 0 {
		return v, Validation("customer is required")
	}
	if len(req.CageNumbers) == 0 {
		return v, Validation("at least one cage number is required")
	}
	seen := make(map[int]struct{}, len(req.CageNumbers))
	for _, c := range req.CageNumbers {
		if c < 1 {
			return v, Validation("cage number must be positive")
		}
		if _, dup := seen[c]; dup {
			return v, Validation("cage %d listed twice", c)
		}
		seen[c] = struct{}{}
	}
	var err error
	if v.sellType, err = ParseSellType(req.SellType); err != nil {
		return v, err
	}
	if v.mode, err = ParsePaymentMode(req.PaymentMode); err != nil {
		return v, err
	}
	if !req.Rate.IsPositive() {
		return v, Validation("rate must be greater than zero")
	}
	if req.CashAmount.IsNegative() || req.UPIAmount.IsNegative() {
		return v, Validation("cash and upi amounts cannot be negative")
	}
	if req.TotalAmount != nil && req.TotalAmount.IsNegative() {
		return v, Validation("total amount cannot be negative")
	}
	switch v.sellType {
	case SellPartial:
		if req.BirdCount <= 0 || !req.Weight.IsPositive() {
			return v, Validation("partial sale needs bird count and weight")
		}
	case SellFull:
	}
	v.CashAmount = req.CashAmount.Round(2)
	v.UPIAmount = req.UPIAmount.Round(2)
	return v, nil
}

// sellable reports whether a trip in status st accepts sales.
func sellable(st Status) bool {
	switch st {
	case StatusLifted:
		return true
	case StatusCreated, StatusInProgress, StatusClosed:
		return false
	}
	return false
}

// SellToCustomer writes one sale row per cage and accrues any unpaid balance
// once on the customer. All rows and the accrual commit together.
func (s *Service) SellToCustomer(ctx context.Context, actor Actor, tripID int64, req SaleRequest) (SaleReceipt, error) {
	if err := checkActor(actor); err != nil {
		return SaleReceipt{}, err
	}
	v, err := validateSale(req)
	if err != nil {
		return SaleReceipt{}, err
	}

	var receipt SaleReceipt
	err = s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, true)
		if KindOf(err) == KindNotFound {
			return Conflict("trip not ready for selling")
		}
		if err != nil {
			return err
		}
		if t.DriverID != actor.UserID || !sellable(t.Status) {
			return Conflict("trip not ready for selling")
		}

		customer, err := tx.LockCustomer(ctx, actor.TenantID, v.CustomerID)
		if errors.Is(err, ErrRecordNotFound) {
			return NotFound("customer not found")
		}
		if err != nil {
			return err
		}

		lines, err := allocate(ctx, tx, t.ID, v)
		if err != nil {
			return err
		}

		cash := splitEvenly(v.CashAmount, len(lines))
		upi := splitEvenly(v.UPIAmount, len(lines))
		now := s.now()
		total := decimal.Zero
		receipt.Sales = make([]Sale, 0, len(lines))
		for i, l := range lines {
			sale, err := tx.InsertSale(ctx, Sale{
				TripID:      t.ID,
				CustomerID:  customer.ID,
				CageNumber:  l.cage,
				SellType:    v.sellType,
				BirdCount:   l.birds,
				Weight:      l.weight,
				Rate:        v.Rate,
				TotalAmount: l.amount,
				PaymentMode: v.mode,
				CashAmount:  cash[i],
				UPIAmount:   upi[i],
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			receipt.Sales = append(receipt.Sales, sale)
			total = total.Add(l.amount)
		}

		if v.TotalAmount != nil {
			total = v.TotalAmount.Round(2)
		}
		receipt.TotalAmount = total
		receipt.Collected = v.CashAmount.Add(v.UPIAmount)
		receipt.Pending = decimal.Zero
		receipt.Outstanding = customer.Outstanding

		if pending := total.Sub(receipt.Collected); pending.IsPositive() {
			receipt.Pending = pending
			receipt.Outstanding = customer.Outstanding.Add(pending)
			if err := tx.SetOutstanding(ctx, customer.ID, receipt.Outstanding); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SaleReceipt{}, err
	}

	s.logger.Info("sale recorded",
		zap.Int64("trip_id", tripID),
		zap.Int64("customer_id", v.CustomerID),
		zap.String("sell_type", string(v.sellType)),
		zap.Int("cages", len(receipt.Sales)),
		zap.String("total_amount", receipt.TotalAmount.String()),
		zap.String("pending", receipt.Pending.String()))
	return receipt, nil
}

// allocate computes the birds, weight and amount detached from each cage.
func allocate(ctx context.Context, tx Tx, tripID int64, v validSale) ([]saleLine, error) {
	lines := make([]saleLine, 0, len(v.CageNumbers))
	for _, cage := range v.CageNumbers {
		switch v.sellType {
		case SellFull:
			lifted, err := tx.SumCage(ctx, tripID, cage)
			if err != nil {
				return nil, err
			}
			if lifted.Birds <= 0 {
				return nil, Validation("cage %d has no lifted birds", cage)
			}
			lines = append(lines, saleLine{
				cage:   cage,
				birds:  lifted.Birds,
				weight: lifted.Weight,
				amount: lifted.Weight.Mul(v.Rate).Round(2),
			})
		case SellPartial:
			amount := v.Weight.Mul(v.Rate)
			if v.TotalAmount != nil {
				amount = *v.TotalAmount
			}
			lines = append(lines, saleLine{
				cage:   cage,
				birds:  v.BirdCount,
				weight: v.Weight,
				amount: amount.Round(2),
			})
		default:
			return nil, Validation("unsupported sell type %q", v.sellType)
		}
	}
	return lines, nil
}

// splitEvenly divides total into n equal two-decimal shares. The last share
// takes the rounding remainder so the shares always sum to total.
func splitEvenly(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	parts := make([]decimal.Decimal, n)
	share := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	rest := total
	for i := 0; i < n-1; i++ {
		parts[i] = share
		rest = rest.Sub(share)
	}
	parts[n-1] = rest
	return parts
}
