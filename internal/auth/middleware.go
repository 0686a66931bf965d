package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mpratt/folio-api/internal/authclient"
)

type ctxKey int

const userKey ctxKey = 0

// UserMiddleware resolves the access-token cookie against the auth service
// and rejects the request when no valid session is present. Read-only routes
// stay outside this middleware; absence of a session is only an error for
// mutating operations.
func UserMiddleware(svc authclient.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ReadAccessToken(r)
			if token == "" {
				unauthorized(w, "authentication required")
				return
			}

			user, err := svc.UserFromToken(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid authentication")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *authclient.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user set by UserMiddleware.
func UserFromContext(ctx context.Context) (*authclient.User, bool) {
	user, ok := ctx.Value(userKey).(*authclient.User)
	return user, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
