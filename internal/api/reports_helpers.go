package api

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"poultrytrade/backend/internal/report"
)

func (s *Server) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var in struct {
		GroupBy    string `json:"groupBy"`
		StartDate  string `json:"startDate"`
		EndDate    string `json:"endDate"`
		CustomerID *int64 `json:"customerId"`
		FarmerID   *int64 `json:"farmerId"`
		DriverID   *int64 `json:"driverId"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	start, err := s.parseDay(in.StartDate)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "startDate must be YYYY-MM-DD"})
		return
	}
	end, err := s.parseDay(in.EndDate)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "endDate must be YYYY-MM-DD"})
		return
	}

	res, err := s.svc.SalesReport(r.Context(), actor, report.Filter{
		GroupBy:    report.GroupBy(in.GroupBy),
		StartDate:  start,
		EndDate:    end,
		CustomerID: in.CustomerID,
		FarmerID:   in.FarmerID,
		DriverID:   in.DriverID,
		Location:   s.location,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if res.Rows == nil {
		res.Rows = []report.Row{}
	}

	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", report.Filename(res)))
		if err := report.WriteCSV(w, res); err != nil {
			s.logger.Error("csv report write failed", zap.Error(err))
		}
		return
	}
	respondJSON(w, http.StatusOK, res)
}
