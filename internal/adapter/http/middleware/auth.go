package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/infrastructure/auth"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and attaches the actor it names
// to the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := domain.WithActor(r.Context(), claims.Actor())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
