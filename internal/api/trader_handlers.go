package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/trip"
)

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var in struct {
		FarmID       int64  `json:"farmId"`
		DriverID     int64  `json:"driverId"`
		LifterID     *int64 `json:"lifterId"`
		TripDate     string `json:"tripDate"`
		ContactName  string `json:"contactName"`
		ContactPhone string `json:"contactPhone"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	day, err := s.parseDay(in.TripDate)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "tripDate must be YYYY-MM-DD"})
		return
	}
	if day == nil {
		today, _ := s.parseDay(s.now().Format("2006-01-02"))
		day = today
	}

	created, err := s.svc.CreateTrip(r.Context(), actor, trip.NewTrip{
		FarmID:       in.FarmID,
		DriverID:     in.DriverID,
		LifterID:     in.LifterID,
		TripDate:     *day,
		ContactName:  in.ContactName,
		ContactPhone: in.ContactPhone,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	trips, err := s.svc.ListTrips(r.Context(), actor)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if trips == nil {
		trips = []trip.Trip{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var in struct {
		Name           string          `json:"name"`
		Mobile         string          `json:"mobile"`
		OpeningBalance decimal.Decimal `json:"openingBalance"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	mobile, ok := normalizeMobile(in.Mobile)
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid mobile number"})
		return
	}

	created, err := s.svc.CreateCustomer(r.Context(), actor, trip.NewCustomer{
		Name:           in.Name,
		Mobile:         mobile,
		OpeningBalance: in.OpeningBalance,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCreateFarmer(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var in struct {
		Name   string `json:"name"`
		Mobile string `json:"mobile"`
		Farms  []struct {
			Location string `json:"location"`
		} `json:"farms"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.Mobile != "" {
		mobile, ok := normalizeMobile(in.Mobile)
		if !ok {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid mobile number"})
			return
		}
		in.Mobile = mobile
	}
	locations := make([]string, 0, len(in.Farms))
	for _, f := range in.Farms {
		locations = append(locations, f.Location)
	}

	created, err := s.svc.CreateFarmer(r.Context(), actor, trip.NewFarmer{Name: in.Name, Mobile: in.Mobile, Locations: locations})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTripSales(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}
	sales, err := s.svc.TripSales(r.Context(), actor, tripID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sales == nil {
		sales = []trip.Sale{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (s *Server) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}

	var in struct {
		DieselExpense     decimal.Decimal `json:"dieselExpense"`
		OtherExpense      decimal.Decimal `json:"otherExpense"`
		DriverExpense     decimal.Decimal `json:"driverExpense"`
		PurchaseRatePerKg decimal.Decimal `json:"purchaseRatePerKg"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	st, err := s.svc.CloseDay(r.Context(), actor, tripID, trip.Expenses{
		DieselExpense:     in.DieselExpense,
		OtherExpense:      in.OtherExpense,
		DriverExpense:     in.DriverExpense,
		PurchaseRatePerKg: in.PurchaseRatePerKg,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleTripExpenses(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}
	expenses, err := s.svc.TripExpenses(r.Context(), actor, tripID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []trip.Expense{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (s *Server) handleOutstanding(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	customers, err := s.svc.ListOutstanding(r.Context(), actor)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	total := decimal.Zero
	for _, c := range customers {
		total = total.Add(c.Outstanding)
	}
	if customers == nil {
		customers = []trip.Customer{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"customers": customers, "totalOutstanding": total})
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	customerID, ok := parsePathID(r, "id")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer id"})
		return
	}
	var in struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	balance, err := s.svc.CreditCustomer(r.Context(), actor, customerID, in.Amount)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"customerId": customerID, "outstanding": balance})
}
