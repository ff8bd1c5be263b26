package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/renewalwatch/backend/internal/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondJSON_Success(t *testing.T) {
	rr := httptest.NewRecorder()

	respondJSON(rr, http.StatusAccepted, EnqueueResponse{JobID: "daily:2026-10-16", Queued: true})

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"jobId":"daily:2026-10-16","queued":true}`, rr.Body.String())
}

func TestRespondJSON_EmptyData(t *testing.T) {
	rr := httptest.NewRecorder()

	respondJSON(rr, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String()) // nil data results in no body
}

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()

	respondError(rr, http.StatusUnauthorized, "not authorized")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"not authorized"}`, rr.Body.String())
}

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "validation error keeps field",
			err:      apperror.ValidationError("limit", "limit must be a positive integer"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"limit must be a positive integer","field":"limit"}`,
		},
		{
			name:     "wrapped sentinel",
			err:      fmt.Errorf("load tenant: %w", apperror.ErrNotFound),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"load tenant: resource not found"}`,
		},
		{
			name:     "plain error hides details",
			err:      errors.New("pq: connection refused"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"an internal error occurred"}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()

			respondAppError(rr, tt.err)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "", want: 50},
		{raw: "10", want: 10},
		{raw: "200", want: 200},
		{raw: "500", want: 200},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "ten", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseLimit(tt.raw, 50, 200)
		if tt.wantErr {
			require.Error(t, err, tt.raw)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}
