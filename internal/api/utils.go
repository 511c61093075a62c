package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"poultrytrade/backend/internal/trip"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusFor(kind trip.Kind) int {
	switch kind {
	case trip.KindValidation:
		return http.StatusBadRequest
	case trip.KindNotFound:
		return http.StatusNotFound
	case trip.KindForbidden:
		return http.StatusForbidden
	case trip.KindConflict:
		return http.StatusConflict
	case trip.KindInternal:
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status of its kind. Internal errors are
// logged and replaced by a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := trip.KindOf(err)
	code := statusFor(kind)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondJSON(w, code, map[string]string{"error": "internal server error"})
		return
	}
	var e *trip.Error
	msg := err.Error()
	if errors.As(err, &e) {
		msg = e.Message
	}
	respondJSON(w, code, map[string]string{"error": msg, "kind": kind.String()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
		return false
	}
	return true
}

func parsePathID(r *http.Request, field string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue(field)), 10, 64)
	return id, err == nil && id > 0
}

func parseCageNumber(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(r.PathValue("cageNumber")))
	return n, err == nil && n > 0
}
