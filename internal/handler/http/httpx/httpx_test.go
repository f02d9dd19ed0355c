package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{fmt.Errorf("role gate: %w", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{domain.ErrNotFound, http.StatusNotFound, "not found"},
		{domain.ErrInvalidSignature, http.StatusBadRequest, "invalid signature"},
		{domain.ErrFreeResource, http.StatusBadRequest, "resource is free"},
		{domain.ErrAlreadyOwned, http.StatusConflict, "already owned"},
		{domain.ErrSellerUnavailable, http.StatusUnprocessableEntity, "seller unavailable"},
		{fmt.Errorf("create session: %w", domain.ErrUpstreamFailure), http.StatusBadGateway, "upstream failure"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		code, msg := StatusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.Equal(t, tt.msg, msg)
	}
}

func TestReadJSON(t *testing.T) {
	type body struct {
		ResourceID string `json:"resource_id"`
	}

	var dst body
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"resource_id":"r1"}`))
	assert.NoError(t, ReadJSON(r, &dst))
	assert.Equal(t, "r1", dst.ResourceID)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"resource_id":"r1","price":0}`))
	assert.ErrorIs(t, ReadJSON(r, &dst), domain.ErrInvalidInput)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"resource_id":"r1"}{"resource_id":"r2"}`))
	assert.ErrorIs(t, ReadJSON(r, &dst), domain.ErrInvalidInput)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, domain.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
