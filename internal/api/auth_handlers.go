package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"poultrytrade/backend/internal/auth"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimiter.Allow(clientIP(r)) {
		respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts, try again later"})
		return
	}

	var in struct {
		Mobile   string `json:"mobile"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	mobile, ok := normalizeMobile(in.Mobile)
	if !ok || in.Password == "" {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid mobile or password"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := auth.Authenticate(ctx, s.users, mobile, in.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid mobile or password"})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	token, err := s.issuer.Sign(user)
	if err != nil {
		s.logger.Error("token signing failed", zap.Int64("user_id", user.ID), zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to sign token"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       user.ID,
			"tenantId": user.TenantID,
			"name":     user.Name,
			"mobile":   user.Mobile,
			"role":     user.Role,
		},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid auth context"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"userId":   actor.UserID,
		"tenantId": actor.TenantID,
		"role":     actor.Role,
	})
}
