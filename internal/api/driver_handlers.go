package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"poultrytrade/backend/internal/trip"
)

func (s *Server) handleAssignedTrips(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	trips, err := s.svc.AssignedTrips(r.Context(), actor)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if trips == nil {
		trips = []trip.Trip{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

func (s *Server) handleAddCageEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}
	cage, ok := parseCageNumber(r)
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cage number"})
		return
	}

	var in struct {
		Color     string          `json:"color"`
		BirdCount int64           `json:"birdCount"`
		Weight    decimal.Decimal `json:"weight"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	totals, err := s.svc.AddCageEntry(r.Context(), actor, tripID, cage, trip.EntryInput{
		Color:     in.Color,
		BirdCount: in.BirdCount,
		Weight:    in.Weight,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

func (s *Server) handleResetCage(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}
	cage, ok := parseCageNumber(r)
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cage number"})
		return
	}
	if err := s.svc.ResetCage(r.Context(), actor, tripID, cage); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "cage reset"})
}

func (s *Server) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}
	totals, err := s.svc.CompleteTrip(r.Context(), actor, tripID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      trip.StatusLifted,
		"totalBirds":  totals.Birds,
		"totalWeight": totals.Weight,
	})
}

func (s *Server) handleCageView(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}
	view, err := s.svc.GetCageView(r.Context(), actor, tripID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	tripID, ok := parsePathID(r, "tripId")
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid trip id"})
		return
	}

	var in struct {
		CustomerID  int64            `json:"customerId"`
		CageNumbers []int            `json:"cageNumbers"`
		SellType    string           `json:"sellType"`
		Rate        decimal.Decimal  `json:"rate"`
		TotalAmount *decimal.Decimal `json:"totalAmount"`
		BirdCount   int64            `json:"birdCount"`
		Weight      decimal.Decimal  `json:"weight"`
		PaymentMode string           `json:"paymentMode"`
		CashAmount  decimal.Decimal  `json:"cashAmount"`
		UPIAmount   decimal.Decimal  `json:"upiAmount"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	receipt, err := s.svc.SellToCustomer(r.Context(), actor, tripID, trip.SaleRequest{
		CustomerID:  in.CustomerID,
		CageNumbers: in.CageNumbers,
		SellType:    in.SellType,
		Rate:        in.Rate,
		TotalAmount: in.TotalAmount,
		BirdCount:   in.BirdCount,
		Weight:      in.Weight,
		PaymentMode: in.PaymentMode,
		CashAmount:  in.CashAmount,
		UPIAmount:   in.UPIAmount,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}
