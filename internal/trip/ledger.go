package trip

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EntryInput is one cage/color weighing recorded by the crew.
type EntryInput struct {
	Color     string
	BirdCount int64
	Weight    decimal.Decimal
}

// AddCageEntry records the birds lifted into one color bucket of a cage. A
// second entry for the same cage and color replaces the first.
func (s *Service) AddCageEntry(ctx context.Context, actor Actor, tripID int64, cageNumber int, in EntryInput) (Totals, error) {
	if err := checkActor(actor); err != nil {
		return Totals{}, err
	}
	if cageNumber < 1 {
		return Totals{}, Validation("cage number must be positive")
	}
	color, err := ParseColor(in.Color)
	if err != nil {
		return Totals{}, err
	}
	weight := in.Weight.Round(3)
	if in.BirdCount <= 0 || !weight.IsPositive() {
		return Totals{}, Validation("bird count and weight must be greater than zero")
	}

	var (
		totals  Totals
		started bool
	)
	err = s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, true)
		if err != nil {
			return err
		}
		if !t.crew(actor.UserID) {
			return Forbidden("not authorized for this trip")
		}
		if err := ledgerWritable(t.Status); err != nil {
			return err
		}

		cageID, err := tx.UpsertCage(ctx, t.ID, cageNumber)
		if err != nil {
			return err
		}
		if err := tx.UpsertCageEntry(ctx, cageID, color, in.BirdCount, weight); err != nil {
			return err
		}

		totals, err = recompute(ctx, tx, &t)
		if err != nil {
			return err
		}
		if t.Status == StatusCreated {
			if err := t.transition(StatusInProgress); err != nil {
				return err
			}
			started = true
		}
		return tx.SaveTripState(ctx, t)
	})
	if err != nil {
		return Totals{}, err
	}

	if started {
		s.logger.Info("trip started", zap.Int64("trip_id", tripID), zap.Int64("user_id", actor.UserID))
	}
	return totals, nil
}

// ResetCage wipes every color entry of a cage and recomputes the trip totals.
func (s *Service) ResetCage(ctx context.Context, actor Actor, tripID int64, cageNumber int) error {
	if err := checkActor(actor); err != nil {
		return err
	}
	if cageNumber < 1 {
		return Validation("cage number must be positive")
	}

	var removed int64
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, true)
		if err != nil {
			return err
		}
		if !t.crew(actor.UserID) {
			return Forbidden("not authorized for this trip")
		}
		if err := ledgerWritable(t.Status); err != nil {
			return err
		}

		cageID, err := tx.FindCage(ctx, t.ID, cageNumber)
		if errors.Is(err, ErrRecordNotFound) {
			return NotFound("cage not found")
		}
		if err != nil {
			return err
		}
		if removed, err = tx.DeleteCageEntries(ctx, cageID); err != nil {
			return err
		}
		if _, err := recompute(ctx, tx, &t); err != nil {
			return err
		}
		return tx.SaveTripState(ctx, t)
	})
	if err != nil {
		return err
	}

	s.logger.Info("cage reset", zap.Int64("trip_id", tripID), zap.Int("cage_number", cageNumber), zap.Int64("entries_removed", removed))
	return nil
}

// recompute sets the trip totals to the current ledger sum. It must run in the
// same transaction as the ledger write it follows.
func recompute(ctx context.Context, tx Tx, t *Trip) (Totals, error) {
	totals, err := tx.SumTrip(ctx, t.ID)
	if err != nil {
		return Totals{}, err
	}
	t.TotalBirds, t.TotalWeight = totals.Birds, totals.Weight
	return totals, nil
}
