package middlewarectx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

func TestRateLimiter(t *testing.T) {
	limiter := middlewarectx.NewRateLimiter(0.001, 2)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := limiter.Middleware(newNoopLogger())(next)

	do := func(identity *models.Identity, remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", nil)
		req.RemoteAddr = remote
		if identity != nil {
			req = req.WithContext(middlewarectx.WithIdentity(req.Context(), identity))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	alice := &models.Identity{Subject: "alice"}
	bob := &models.Identity{Subject: "bob"}

	assert.Equal(t, http.StatusOK, do(alice, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do(alice, "10.0.0.2:1000"))
	assert.Equal(t, http.StatusTooManyRequests, do(alice, "10.0.0.3:1000"))
	assert.Equal(t, http.StatusOK, do(bob, "10.0.0.1:1000"))

	assert.Equal(t, http.StatusOK, do(nil, "192.168.0.1:5555"))
	assert.Equal(t, http.StatusOK, do(nil, "192.168.0.1:6666"))
	assert.Equal(t, http.StatusTooManyRequests, do(nil, "192.168.0.1:7777"))
}
