package api

import (
	"net/http"

	"poultrytrade/backend/internal/trip"
)

// roleRequired admits only callers whose token carries one of roles.
func (s *Server) roleRequired(next http.Handler, roles ...trip.Role) http.Handler {
	allowed := make(map[trip.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(r)
		if !ok {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid auth context"})
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			respondJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
