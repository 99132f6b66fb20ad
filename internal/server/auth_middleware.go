package server

import (
	"fmt"
	"net/http"
	"strings"
)

// publicRoutes are served without a bearer token.
var publicRoutes = map[string]bool{
	"GET /health":      true,
	"POST /auth/login": true,
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicRoutes[r.Method+" "+r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("Not authenticated")))
			return
		}

		user, err := s.authService.AuthenticateToken(r.Context(), token, s.now())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if user == nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("Invalid or expired token")))
			return
		}

		ctx := contextWithAuthPrincipal(r.Context(), authPrincipal{User: user, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
