package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"poultrytrade/backend/internal/auth"
	"poultrytrade/backend/internal/trip"
)

type Server struct {
	svc            *trip.Service
	users          auth.Users
	issuer         *auth.Issuer
	loginLimiter   *auth.AttemptLimiter
	logger         *zap.Logger
	location       *time.Location
	allowedOrigins map[string]struct{}
	allowAnyOrigin bool
}

type Options struct {
	AllowedOrigins []string
	Location       *time.Location
	LoginAttempts  int
	LoginWindow    time.Duration
	Logger         *zap.Logger
}

type authContextKey string

const (
	actorContextKey authContextKey = "actor"
	requestInfoKey  authContextKey = "request_info"
)

func NewServer(svc *trip.Service, users auth.Users, issuer *auth.Issuer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LoginAttempts <= 0 {
		opts.LoginAttempts = 10
	}
	if opts.LoginWindow <= 0 {
		opts.LoginWindow = 15 * time.Minute
	}
	s := &Server{
		svc:            svc,
		users:          users,
		issuer:         issuer,
		loginLimiter:   auth.NewAttemptLimiter(opts.LoginAttempts, opts.LoginWindow),
		logger:         opts.Logger,
		location:       opts.Location,
		allowedOrigins: make(map[string]struct{}, len(opts.AllowedOrigins)),
	}
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			s.allowAnyOrigin = true
			continue
		}
		s.allowedOrigins[o] = struct{}{}
	}
	return s
}

func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("GET /api/auth/me", s.authRequired(http.HandlerFunc(s.handleMe)))

	crew := func(h http.HandlerFunc) http.Handler {
		return s.authRequired(s.roleRequired(h, trip.RoleDriver, trip.RoleLifter))
	}
	mux.Handle("GET /api/driver/trips", crew(s.handleAssignedTrips))
	mux.Handle("POST /api/driver/trips/{tripId}/cages/{cageNumber}/entries", crew(s.handleAddCageEntry))
	mux.Handle("DELETE /api/driver/trips/{tripId}/cages/{cageNumber}", crew(s.handleResetCage))
	mux.Handle("POST /api/driver/trips/{tripId}/complete", crew(s.handleCompleteTrip))
	mux.Handle("GET /api/driver/trips/{tripId}/cages", crew(s.handleCageView))
	mux.Handle("POST /api/driver/trips/{tripId}/sell", s.authRequired(s.roleRequired(http.HandlerFunc(s.handleSell), trip.RoleDriver)))

	office := func(h http.HandlerFunc) http.Handler {
		return s.authRequired(s.roleRequired(h, trip.RoleTrader, trip.RoleManager))
	}
	mux.Handle("POST /api/trader/trips", office(s.handleCreateTrip))
	mux.Handle("GET /api/trader/trips", office(s.handleListTrips))
	mux.Handle("GET /api/trader/trips/{tripId}/cages", office(s.handleCageView))
	mux.Handle("GET /api/trader/trips/{tripId}/sales", office(s.handleTripSales))
	mux.Handle("POST /api/trader/trips/{tripId}/close-day", office(s.handleCloseDay))
	mux.Handle("GET /api/trader/trips/{tripId}/expenses", office(s.handleTripExpenses))
	mux.Handle("POST /api/trader/customers", office(s.handleCreateCustomer))
	mux.Handle("GET /api/trader/customers/outstanding", office(s.handleOutstanding))
	mux.Handle("POST /api/trader/farmers", office(s.handleCreateFarmer))
	mux.Handle("POST /api/trader/customers/{id}/credit", office(s.handleCredit))
	mux.Handle("POST /api/trader/reports/sales", office(s.handleSalesReport))

	return s.requestLog(s.withCORS(mux))
}
