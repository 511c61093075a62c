package trip

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type NewCustomer struct {
	Name           string
	Mobile         string
	OpeningBalance decimal.Decimal
}

// CreateCustomer registers a buyer. A positive opening balance becomes the
// customer's outstanding amount.
func (s *Service) CreateCustomer(ctx context.Context, actor Actor, in NewCustomer) (Customer, error) {
	if err := requireBackOffice(actor); err != nil {
		return Customer{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if in.Name == "" {
		return Customer{}, Validation("customer name is required")
	}
	if !contactPhoneRe.MatchString(in.Mobile) {
		return Customer{}, Validation("customer mobile must be 10 digits")
	}
	if in.OpeningBalance.IsNegative() {
		return Customer{}, Validation("opening balance cannot be negative")
	}

	var created Customer
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		created, err = tx.InsertCustomer(ctx, Customer{
			TenantID:    actor.TenantID,
			Name:        in.Name,
			Mobile:      in.Mobile,
			Outstanding: in.OpeningBalance.Round(2),
		})
		return err
	})
	if err != nil {
		return Customer{}, err
	}
	s.logger.Info("customer created", zap.Int64("customer_id", created.ID))
	return created, nil
}

type NewFarmer struct {
	Name      string
	Mobile    string
	Locations []string
}

// CreateFarmer registers a farmer together with their farms. Blank locations
// are skipped; the farmer and every farm commit together.
func (s *Service) CreateFarmer(ctx context.Context, actor Actor, in NewFarmer) (Farmer, error) {
	if err := requireBackOffice(actor); err != nil {
		return Farmer{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if in.Name == "" {
		return Farmer{}, Validation("farmer name is required")
	}
	if in.Mobile != "" && !contactPhoneRe.MatchString(in.Mobile) {
		return Farmer{}, Validation("farmer mobile must be 10 digits")
	}
	var locations []string
	for _, l := range in.Locations {
		if l = strings.TrimSpace(l); l != "" {
			locations = append(locations, l)
		}
	}
	if len(locations) == 0 {
		return Farmer{}, Validation("at least one farm is required")
	}

	var created Farmer
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		created, err = tx.InsertFarmer(ctx, Farmer{TenantID: actor.TenantID, Name: in.Name, Mobile: in.Mobile})
		if err != nil {
			return err
		}
		created.Farms = make([]Farm, 0, len(locations))
		for _, l := range locations {
			farm, err := tx.InsertFarm(ctx, Farm{TenantID: actor.TenantID, FarmerID: created.ID, Location: l})
			if err != nil {
				return err
			}
			created.Farms = append(created.Farms, farm)
		}
		return nil
	})
	if err != nil {
		return Farmer{}, err
	}
	s.logger.Info("farmer created", zap.Int64("farmer_id", created.ID), zap.Int("farms", len(created.Farms)))
	return created, nil
}
