package api

import (
	"regexp"
	"strings"
	"time"
)

var inMobileRe = regexp.MustCompile(`^(?:\+91|91|0)?([6-9]\d{9})$`)

func (s *Server) now() time.Time {
	if s.location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.location)
}

// normalizeMobile reduces an Indian mobile number to its ten subscriber digits.
func normalizeMobile(raw string) (string, bool) {
	v := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	m := inMobileRe.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// parseDay reads a YYYY-MM-DD date as midnight in the server's location.
// An empty input yields nil.
func (s *Server) parseDay(input string) (*time.Time, error) {
	v := strings.TrimSpace(input)
	if v == "" {
		return nil, nil
	}
	loc := s.location
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
