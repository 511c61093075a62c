package trip

import (
	"context"

	"github.com/shopspring/decimal"
)

// CageStock is the reconciled stock of one (cage, color) bucket.
type CageStock struct {
	RemainingBirds  int64           `json:"chickens"`
	RemainingWeight decimal.Decimal `json:"weight"`
	LiftedBirds     int64           `json:"original_chickens"`
	LiftedWeight    decimal.Decimal `json:"original_weight"`
}

// CageView maps cage number to color to reconciled stock. A cage whose entries
// were all reset is present with an empty color map.
type CageView map[int]map[Color]CageStock

// Stock returns the bucket for cage and color, zero when absent.
func (v CageView) Stock(cage int, color Color) CageStock {
	return v[cage][color]
}

// GetCageView reconciles lifted stock against sales for every cage of a trip.
func (s *Service) GetCageView(ctx context.Context, actor Actor, tripID int64) (CageView, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}

	view := CageView{}
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, false)
		if err != nil {
			return err
		}
		if !t.crew(actor.UserID) && !actor.backOffice() {
			return Forbidden("not authorized for this trip")
		}

		cages, err := tx.ListCages(ctx, t.ID)
		if err != nil {
			return err
		}
		lifted, err := tx.LiftedByCageColor(ctx, t.ID)
		if err != nil {
			return err
		}
		sold, err := tx.SoldByCage(ctx, t.ID)
		if err != nil {
			return err
		}

		byCage := make(map[int]map[Color]Totals, len(cages))
		for _, c := range cages {
			byCage[c] = map[Color]Totals{}
		}
		for _, row := range lifted {
			if byCage[row.CageNumber] == nil {
				byCage[row.CageNumber] = map[Color]Totals{}
			}
			byCage[row.CageNumber][row.Color] = byCage[row.CageNumber][row.Color].add(row.Totals)
		}
		for cage, colors := range byCage {
			view[cage] = applySales(colors, sold[cage])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// applySales derives the remaining stock of one cage. Sales carry no color, so
// the whole sold quantity is charged to one bucket: DEFAULT when the cage has
// it, otherwise the bucket with the most lifted birds. Every other color keeps
// its lifted figures. Remaining never drops below zero.
func applySales(lifted map[Color]Totals, sold Totals) map[Color]CageStock {
	charged := salesBucket(lifted)
	out := make(map[Color]CageStock, len(lifted))
	for color, l := range lifted {
		stock := CageStock{
			RemainingBirds:  l.Birds,
			RemainingWeight: l.Weight.Round(2),
			LiftedBirds:     l.Birds,
			LiftedWeight:    l.Weight,
		}
		if color == charged {
			stock.RemainingBirds = max(l.Birds-sold.Birds, 0)
			stock.RemainingWeight = decimal.Max(l.Weight.Sub(sold.Weight), decimal.Zero).Round(2)
		}
		out[color] = stock
	}
	return out
}

// salesBucket picks the color that absorbs a cage's sales. Ties go to the
// alphabetically first color.
func salesBucket(lifted map[Color]Totals) Color {
	if _, ok := lifted[DefaultColor]; ok {
		return DefaultColor
	}
	var (
		best  Color
		found bool
	)
	for color, l := range lifted {
		if !found || l.Birds > lifted[best].Birds || (l.Birds == lifted[best].Birds && color < best) {
			best, found = color, true
		}
	}
	return best
}
