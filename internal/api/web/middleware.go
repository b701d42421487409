package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/tripfolio/tripfolio/internal/auth/session"
)

type contextKey string

const claimsKey contextKey = "session-claims"

// requireSession authenticates the request with a bearer session token and
// stores the verified claims in the request context. Missing, malformed, and
// expired tokens all fail the same way.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := s.sessions.Verify(token)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func withClaims(ctx context.Context, claims session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// claimsFrom returns the verified session claims stored by requireSession.
func claimsFrom(ctx context.Context) (session.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(session.Claims)
	return claims, ok
}
