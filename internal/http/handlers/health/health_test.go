package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type checkerFunc func(ctx context.Context) error

func (f checkerFunc) CheckDatabaseReady(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(logger, checkerFunc(func(context.Context) error { return nil })).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"OK","data":{"status":"ok"}}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		w := httptest.NewRecorder()
		New(logger, checkerFunc(func(context.Context) error { return errors.New("connection refused") })).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
