package acl

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/clients"
	"github.com/jsamuelsen/freight-quote-service/internal/domain"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestMapHTTPError_Status(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
		msg    string
	}{
		{name: "not found", status: http.StatusNotFound, check: domain.IsNotFound},
		{name: "conflict", status: http.StatusConflict, body: `{"message":"stale"}`, check: domain.IsConflict, msg: "stale"},
		{name: "bad request", status: http.StatusBadRequest, check: domain.IsValidation},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, check: domain.IsValidation},
		{name: "teapot", status: http.StatusTeapot, check: domain.IsValidation},
		{name: "unauthorized", status: http.StatusUnauthorized, check: domain.IsUnavailable, msg: "credentials rejected"},
		{name: "forbidden", status: http.StatusForbidden, check: domain.IsUnavailable, msg: "credentials rejected"},
		{name: "rate limited", status: http.StatusTooManyRequests, check: domain.IsUnavailable, msg: "rate limit"},
		{name: "bad gateway", status: http.StatusBadGateway, check: domain.IsUnavailable, msg: "status 502"},
		{
			name: "nested message", status: http.StatusServiceUnavailable,
			body: `{"error":{"code":"MAINTENANCE","message":"feed in maintenance"}}`,
			check: domain.IsUnavailable, msg: "feed in maintenance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(response(tt.status, tt.body), nil, "fx-feed", "get exchange rate", "USD/EUR")

			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)

			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestMapHTTPError_ValidationDetails(t *testing.T) {
	body := `{"error":{"code":"VALIDATION_ERROR","message":"bad pair","details":{"quote":"unknown currency"}}}`

	err := MapHTTPError(response(http.StatusBadRequest, body), nil, "fx-feed", "get exchange rate", "USD/XXX")

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quote", verr.Field)
	assert.Equal(t, "unknown currency", verr.Message)
}

func TestMapHTTPError_ClientErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{name: "circuit open", err: clients.ErrCircuitOpen, msg: "circuit breaker open during get exchange rate"},
		{name: "retries", err: clients.ErrMaxRetriesExceeded, msg: "max retries exceeded during get exchange rate"},
		{name: "other", err: errors.New("dial tcp: refused"), msg: "get exchange rate failed: dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(nil, tt.err, "fx-feed", "get exchange rate", "USD/EUR")

			assert.True(t, domain.IsUnavailable(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMapHTTPError_SuccessAndNil(t *testing.T) {
	assert.NoError(t, MapHTTPError(response(http.StatusOK, ""), nil, "fx-feed", "op", ""))
	assert.True(t, domain.IsUnavailable(MapHTTPError(nil, nil, "fx-feed", "op", "")))
}

func TestParseErrorResponse(t *testing.T) {
	nested := ParseErrorResponse(strings.NewReader(`{"error":{"code":"NOT_FOUND","message":"no such pair"}}`))
	require.NotNil(t, nested)
	assert.Equal(t, "NOT_FOUND", nested.GetCode())
	assert.Equal(t, "no such pair", nested.GetMessage())

	flat := ParseErrorResponse(strings.NewReader(`{"code":"RATE_LIMIT","message":"slow down"}`))
	require.NotNil(t, flat)
	assert.Equal(t, "RATE_LIMIT", flat.GetCode())
	assert.Equal(t, "slow down", flat.GetMessage())

	assert.Nil(t, ParseErrorResponse(strings.NewReader("not json")))
	assert.Nil(t, ParseErrorResponse(strings.NewReader(`{}`)))
	assert.Nil(t, ParseErrorResponse(nil))
}

func TestDecodeResponse(t *testing.T) {
	type payload struct {
		Base string `json:"base"`
	}

	got, err := DecodeResponse[payload](io.NopCloser(strings.NewReader(`{"base":"USD"}`)))
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Base)

	_, err = DecodeResponse[payload](io.NopCloser(strings.NewReader("{")))
	assert.ErrorContains(t, err, "decoding response")

	_, err = DecodeResponse[payload](nil)
	assert.Error(t, err)
}
