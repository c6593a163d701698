package middlewarectx_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestIdentityMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", "", time.Hour)
	token, err := maker.GenerateToken("user-1", "Alice", "a@example.com")
	require.NoError(t, err)

	expired, err := jwt.NewJWTMaker("test-secret", "", -time.Minute).GenerateToken("user-1", "", "")
	require.NoError(t, err)

	tests := []struct {
		name         string
		authHeader   string
		wantStatus   int
		wantIdentity *models.Identity
		wantCalled   bool
	}{
		{
			name:         "valid token",
			authHeader:   "Bearer " + token,
			wantStatus:   http.StatusOK,
			wantIdentity: &models.Identity{Subject: "user-1", Name: "Alice", Email: "a@example.com"},
			wantCalled:   true,
		},
		{
			name:       "no header is anonymous",
			authHeader: "",
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "wrong scheme",
			authHeader: "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not-a-jwt",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			authHeader: "Bearer " + expired,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var got *models.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got = middlewarectx.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			middlewarectx.IdentityMiddleware(maker, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantIdentity, got)
		})
	}
}

func TestOptionalIdentityMiddleware(t *testing.T) {
	maker := jwt.NewJWTMaker("test-secret", "", time.Hour)
	token, err := maker.GenerateToken("user-1", "Alice", "a@example.com")
	require.NoError(t, err)

	expired, err := jwt.NewJWTMaker("test-secret", "", -time.Minute).GenerateToken("user-1", "", "")
	require.NoError(t, err)

	tests := []struct {
		name         string
		authHeader   string
		wantIdentity *models.Identity
	}{
		{
			name:         "valid token",
			authHeader:   "Bearer " + token,
			wantIdentity: &models.Identity{Subject: "user-1", Name: "Alice", Email: "a@example.com"},
		},
		{name: "no header", authHeader: ""},
		{name: "wrong scheme", authHeader: "Basic abc"},
		{name: "empty bearer", authHeader: "Bearer   "},
		{name: "garbage token", authHeader: "Bearer not-a-jwt"},
		{name: "expired token", authHeader: "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var got *models.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got = middlewarectx.IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			middlewarectx.OptionalIdentityMiddleware(maker, newNoopLogger())(next).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.True(t, called)
			assert.Equal(t, tt.wantIdentity, got)
		})
	}
}
