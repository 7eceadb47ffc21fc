package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpopescu/famvault/internal/common"
	"github.com/mpopescu/famvault/internal/server/auth"
)

type staticAuthenticator struct {
	claims *auth.Claims
}

func (s *staticAuthenticator) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "valid" {
		return s.claims, nil
	}
	return nil, common.ErrorInvalidToken
}

func TestRequireAuth(t *testing.T) {
	authn := &staticAuthenticator{claims: &auth.Claims{Username: "alice", Role: auth.RoleUser}}

	var gotClaims *auth.Claims
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		gotToken = TokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(authn)(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcg==", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer valid", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	assert.Equal(t, "alice", gotClaims.Username)
	assert.Equal(t, "valid", gotToken)
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Without claims in context the request is treated as unauthenticated.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	userCtx := context.WithValue(context.Background(), claimsContextKey,
		&auth.Claims{Username: "alice", Role: auth.RoleUser})
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req.WithContext(userCtx))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminCtx := context.WithValue(context.Background(), claimsContextKey,
		&auth.Claims{Username: "root", Role: auth.RoleAdmin})
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req.WithContext(adminCtx))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSHandler_PreflightHonorsConfiguredOrigin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORSHandler(next, []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/api/user/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/user/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
