package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/mpopescu/famvault/internal/common"
	"github.com/mpopescu/famvault/internal/server/auth"
)

type contextKey string

const (
	claimsContextKey contextKey = "claims"
	tokenContextKey  contextKey = "accessToken"
)

// Authenticator validates a bearer token and returns its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// ClaimsFromContext returns the claims the auth middleware stored for the
// request, or nil outside an authenticated route.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims
}

// TokenFromContext returns the raw bearer token of the request. Logout needs
// the exact presented value, not just the claims.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the claims and raw token on the request context.
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, common.ErrorUnauthorized)
				return
			}
			claims, err := a.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			ctx = context.WithValue(ctx, tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated requests whose role claim is not admin.
// It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, common.ErrorUnauthorized)
			return
		}
		if claims.Role != auth.RoleAdmin {
			writeError(w, common.ErrorForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CORSHandler wraps h with the CORS policy for the configured browser
// origins.
func CORSHandler(h http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(h)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
