package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

func TestStatusOKWithData(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := StatusOKWithData(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	msg := "something went wrong"
	resp := Error(msg)

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, msg, resp.Error)
}

func TestValidationError(t *testing.T) {
	type TestStruct struct {
		PlanKey string `validate:"required"`
		Code    string `validate:"alphanum"`
	}

	err := validator.New().Struct(TestStruct{Code: "!!!"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field PlanKey is a required field")
	assert.Contains(t, resp.Error, "field Code can contain only numbers and letters")
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{fmt.Errorf("op: %w", models.ErrUnauthenticated), http.StatusUnauthorized, "not authenticated"},
		{fmt.Errorf("op: %w", models.ErrNotFound), http.StatusNotFound, "no billing customer found"},
		{fmt.Errorf("op: %w", models.ErrConfiguration), http.StatusInternalServerError, "billing is not configured"},
		{fmt.Errorf("op: %w", models.ErrUpstream), http.StatusBadGateway, "payment provider is unavailable, try again later"},
		{fmt.Errorf("op: %w", models.ErrConflict), http.StatusConflict, "billing customer is linked to another account"},
		{errors.New("boom"), http.StatusInternalServerError, "internal service error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			status, msg := StatusFromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	status := WriteError(w, r, models.ErrConfiguration)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Status: StatusError, Error: "billing is not configured"}, body)
}
