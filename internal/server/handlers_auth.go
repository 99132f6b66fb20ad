package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"shopfloor/internal/api"
	internalauth "shopfloor/internal/auth"
)

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	now := s.now()
	limiterKey := loginAttemptKey(req.Username, r)
	if !s.loginLimiter.Allow(limiterKey, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests, makeAPIError(
			http.StatusTooManyRequests, codeResourceExhausted,
			fmt.Errorf("too many login attempts; retry later"),
		))
		return
	}

	result, err := s.authService.Login(r.Context(), req.Username, req.Password, now)
	if errors.Is(err, internalauth.ErrInvalidCredentials) {
		s.loginLimiter.RegisterFailure(limiterKey, now)
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("Incorrect username or password")))
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.loginLimiter.Reset(limiterKey)

	s.log().Info("user logged in", "user_id", result.User.ID, "username", result.User.Username)
	s.writeJSON(w, http.StatusOK, api.LoginResponse{
		AccessToken: result.Token,
		TokenType:   tokenTypeBearer,
		ExpiresAt:   result.ExpiresAt.UTC().Format(time.RFC3339),
		User:        result.User.Public(),
	})
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	principal, ok := authPrincipalFromContext(r.Context())
	if ok {
		if err := s.authService.RevokeToken(r.Context(), principal.Token, s.now()); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, principal.User.Public())
}

func loginAttemptKey(username string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(username))
	if user == "" {
		user = "<empty>"
	}
	ip := requestClientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + user
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
