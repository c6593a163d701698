package current

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

func (m *MockService) GetCurrent(ctx context.Context, userID string) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCurrentHandler(t *testing.T) {
	tests := []struct {
		name           string
		identity       *models.Identity
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "active subscription",
			identity: &models.Identity{Subject: "user-1"},
			setupMock: func(m *MockService) {
				m.On("GetCurrent", mock.Anything, "user-1").Return(&models.Subscription{
					UserID:                "user-1",
					BillingSubscriptionID: "sub_1",
					Status:                models.StatusActive,
					CurrentPeriodEnd:      1900000000,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"billing_subscription_id":"sub_1"`,
		},
		{
			name:     "no subscription",
			identity: &models.Identity{Subject: "user-2"},
			setupMock: func(m *MockService) {
				m.On("GetCurrent", mock.Anything, "user-2").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"subscription":null}}`,
		},
		{
			name:           "anonymous",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"subscription":null}}`,
		},
		{
			name:     "storage failure",
			identity: &models.Identity{Subject: "user-3"},
			setupMock: func(m *MockService) {
				m.On("GetCurrent", mock.Anything, "user-3").Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal service error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil)
			if tt.identity != nil {
				req = req.WithContext(middlewarectx.WithIdentity(req.Context(), tt.identity))
			}
			w := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
