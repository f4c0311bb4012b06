package http

import (
	"context"
	"net/http"
	"strings"

	"ppmkconnect-core/internal/domain"
	"ppmkconnect-core/internal/security"
)

type contextKey string

const currentUserKey contextKey = "current_user"

// AuthMiddleware validates the bearer token and injects the current-user
// fact into the request context. Requests without a valid token are
// rejected before any handler runs.
func AuthMiddleware(tm security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "authorization token is not provided", http.StatusUnauthorized)
				return
			}
			token := authHeader
			if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
				token = token[7:]
			}

			claims, err := tm.ValidateToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), currentUserKey, claims.CurrentUser())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUserFromContext extracts the current-user fact installed by
// AuthMiddleware.
func CurrentUserFromContext(ctx context.Context) (domain.CurrentUser, bool) {
	user, ok := ctx.Value(currentUserKey).(domain.CurrentUser)
	return user, ok
}
