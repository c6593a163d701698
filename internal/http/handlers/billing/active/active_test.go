package active

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) HasActive(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func TestActiveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		identity       *models.Identity
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "active",
			identity: &models.Identity{Subject: "user-1"},
			setupMock: func(m *MockService) {
				m.On("HasActive", mock.Anything, "user-1").Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"active":true}}`,
		},
		{
			name:     "inactive",
			identity: &models.Identity{Subject: "user-2"},
			setupMock: func(m *MockService) {
				m.On("HasActive", mock.Anything, "user-2").Return(false, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"active":false}}`,
		},
		{
			name:           "anonymous is never active",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"active":false}}`,
		},
		{
			name:     "storage failure",
			identity: &models.Identity{Subject: "user-3"},
			setupMock: func(m *MockService) {
				m.On("HasActive", mock.Anything, "user-3").Return(false, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"status":"Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription/active", nil)
			if tt.identity != nil {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), tt.identity))
			}
			w := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
