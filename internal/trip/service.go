package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service implements the trip inventory operations. Every mutating operation
// runs inside a single store transaction.
type Service struct {
	store  Store
	sinks  []SettlementSink
	now    func() time.Time
	logger *zap.Logger

	publishTimeout time.Duration
	publishing     sync.WaitGroup
}

const defaultPublishTimeout = time.Minute

func NewService(store Store, logger *zap.Logger, sinks ...SettlementSink) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		sinks:  sinks,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,

		publishTimeout: defaultPublishTimeout,
	}
}

// WithPublishTimeout bounds the time the sinks get for one settlement.
func (s *Service) WithPublishTimeout(d time.Duration) *Service {
	if d > 0 {
		s.publishTimeout = d
	}
	return s
}

// Wait blocks until every settlement handed to the sinks has been delivered
// or has failed.
func (s *Service) Wait() {
	s.publishing.Wait()
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func checkActor(a Actor) error {
	if a.UserID <= 0 || a.TenantID <= 0 {
		return Forbidden("invalid actor")
	}
	if _, ok := ParseRole(string(a.Role)); !ok {
		return Forbidden("invalid actor role")
	}
	return nil
}

func requireBackOffice(a Actor) error {
	if err := checkActor(a); err != nil {
		return err
	}
	if !a.backOffice() {
		return Forbidden("trader or manager role required")
	}
	return nil
}

func loadTrip(ctx context.Context, tx Tx, a Actor, tripID int64, lock bool) (Trip, error) {
	var (
		t   Trip
		err error
	)
	if lock {
		t, err = tx.LockTrip(ctx, a.TenantID, tripID)
	} else {
		t, err = tx.GetTrip(ctx, a.TenantID, tripID)
	}
	if errors.Is(err, ErrRecordNotFound) {
		return Trip{}, NotFound("trip not found")
	}
	if err != nil {
		return Trip{}, fmt.Errorf("load trip %d: %w", tripID, err)
	}
	return t, nil
}

// publish hands st to the sinks in the background. The sinks outlive the
// request context but not the publish timeout.
func (s *Service) publish(ctx context.Context, st Settlement) {
	if len(s.sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		defer cancel()
		for _, sink := range s.sinks {
			if err := sink.Publish(ctx, st); err != nil {
				s.logger.Error("settlement publish failed", zap.Int64("trip_id", st.TripID), zap.Error(err))
			}
		}
	}()
}
