package trip

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var contactPhoneRe = regexp.MustCompile(`^[0-9]{10}$`)

// NewTrip is the assignment of a driver (and optionally a lifter) to a farm pickup.
type NewTrip struct {
	FarmID       int64
	DriverID     int64
	LifterID     *int64
	TripDate     time.Time
	ContactName  string
	ContactPhone string
}

// transition moves t to next or reports a Conflict when the lifecycle forbids it.
func (t *Trip) transition(next Status) error {
	if !t.Status.CanTransitionTo(next) {
		return Conflict("trip cannot move from %s to %s", t.Status, next)
	}
	t.Status = next
	return nil
}

// ledgerWritable reports whether cage entries may still change in status s.
func ledgerWritable(s Status) error {
	switch s {
	case StatusCreated, StatusInProgress, StatusLifted:
		return nil
	case StatusClosed:
		return Conflict("trip already closed")
	}
	return Conflict("unknown trip status %q", s)
}

func (s *Service) CreateTrip(ctx context.Context, actor Actor, in NewTrip) (Trip, error) {
	if err := requireBackOffice(actor); err != nil {
		return Trip{}, err
	}
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	if in.FarmID <= 0 || in.DriverID <= 0 || in.TripDate.IsZero() {
		return Trip{}, Validation("farm, driver and trip date are required")
	}
	if in.LifterID != nil && *in.LifterID <= 0 {
		return Trip{}, Validation("invalid lifter")
	}
	if in.ContactPhone != "" && !contactPhoneRe.MatchString(in.ContactPhone) {
		return Trip{}, Validation("contact phone must be 10 digits")
	}

	var created Trip
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.FindFarm(ctx, actor.TenantID, in.FarmID); errors.Is(err, ErrRecordNotFound) {
			return NotFound("farm not found")
		} else if err != nil {
			return err
		}
		if err := checkMember(ctx, tx, actor.TenantID, in.DriverID, RoleDriver); err != nil {
			return err
		}
		if in.LifterID != nil {
			if err := checkMember(ctx, tx, actor.TenantID, *in.LifterID, RoleLifter); err != nil {
				return err
			}
		}

		var err error
		created, err = tx.InsertTrip(ctx, Trip{
			TenantID:     actor.TenantID,
			FarmID:       in.FarmID,
			DriverID:     in.DriverID,
			LifterID:     in.LifterID,
			TotalWeight:  decimal.Zero,
			Status:       StatusCreated,
			TripDate:     in.TripDate,
			ContactName:  in.ContactName,
			ContactPhone: in.ContactPhone,
			CreatedAt:    s.now(),
		})
		return err
	})
	if err != nil {
		return Trip{}, err
	}

	s.logger.Info("trip created", zap.Int64("trip_id", created.ID), zap.Int64("driver_id", created.DriverID))
	return created, nil
}

// checkMember verifies that userID is a tenant account holding role.
func checkMember(ctx context.Context, tx Tx, tenantID, userID int64, role Role) error {
	m, err := tx.FindMember(ctx, tenantID, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return NotFound("%s %d not found", strings.ToLower(string(role)), userID)
	}
	if err != nil {
		return err
	}
	if m.Role != role {
		return Validation("user %d is not a %s", userID, strings.ToLower(string(role)))
	}
	return nil
}

// CompleteTrip freezes the lifted totals and moves the trip to LIFTED.
func (s *Service) CompleteTrip(ctx context.Context, actor Actor, tripID int64) (Totals, error) {
	if err := checkActor(actor); err != nil {
		return Totals{}, err
	}

	var totals Totals
	err := s.store.WithTx(ctx, func(tx Tx) error {
		t, err := loadTrip(ctx, tx, actor, tripID, true)
		if err != nil {
			return err
		}
		if !t.crew(actor.UserID) {
			return Forbidden("not authorized for this trip")
		}
		switch t.Status {
		case StatusInProgress:
		case StatusCreated:
			return Conflict("trip has no cage entries yet")
		case StatusLifted:
			return Conflict("trip already lifted")
		case StatusClosed:
			return Conflict("trip already closed")
		default:
			return Conflict("unknown trip status %q", t.Status)
		}

		if totals, err = recompute(ctx, tx, &t); err != nil {
			return err
		}
		if err := t.transition(StatusLifted); err != nil {
			return err
		}
		return tx.SaveTripState(ctx, t)
	})
	if err != nil {
		return Totals{}, err
	}

	s.logger.Info("trip lifted",
		zap.Int64("trip_id", tripID),
		zap.Int64("total_birds", totals.Birds),
		zap.String("total_weight", totals.Weight.String()))
	return totals, nil
}

// AssignedTrips lists the open trips the caller drives or lifts for.
func (s *Service) AssignedTrips(ctx context.Context, actor Actor) ([]Trip, error) {
	if err := checkActor(actor); err != nil {
		return nil, err
	}
	var trips []Trip
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		trips, err = tx.ListAssignedTrips(ctx, actor.TenantID, actor.UserID)
		return err
	})
	return trips, err
}

// ListTrips returns every trip of the tenant, latest trip date first.
func (s *Service) ListTrips(ctx context.Context, actor Actor) ([]Trip, error) {
	if err := requireBackOffice(actor); err != nil {
		return nil, err
	}
	var trips []Trip
	err := s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		trips, err = tx.ListTrips(ctx, actor.TenantID)
		return err
	})
	return trips, err
}
