package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/session"
)

func TestToHTTP_Mapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"api invalid", fmt.Errorf("op: %w", api.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"api forbidden", api.ErrForbidden, http.StatusForbidden, "permission_denied"},
		{"api not found", api.ErrNotFound, http.StatusNotFound, "not_found"},
		{"api conflict", api.ErrConflict, http.StatusConflict, "conflict"},
		{"api unavailable", api.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{"api malformed", api.ErrMalformedResponse, http.StatusBadGateway, "bad_gateway"},
		{"final 401", api.ErrUnauthenticated, http.StatusUnauthorized, "session_expired"},
		{"renewal failed", fmt.Errorf("x: %w", session.ErrRenewalFailed), http.StatusUnauthorized, "session_expired"},
		{"no refresh", session.ErrNoRefreshToken, http.StatusUnauthorized, "session_expired"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
		{"grpc not found", status.Error(codes.NotFound, "x"), http.StatusNotFound, "not_found"},
		{"grpc unauth", status.Error(codes.Unauthenticated, "x"), http.StatusUnauthorized, "session_expired"},
		{"grpc unavailable", status.Error(codes.Unavailable, "x"), http.StatusServiceUnavailable, "unavailable"},
		{"grpc internal", status.Error(codes.Internal, "x"), http.StatusInternalServerError, "internal"},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
}

func TestWriteError_RequestIDAndNoDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()

	WriteError(rr, req, fmt.Errorf("%w: status 404: secret upstream detail", api.ErrNotFound))

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.NotContains(t, rr.Body.String(), "secret")

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "rid-1", got.Error.RequestID)
	require.Equal(t, "not_found", got.Error.Code)
}
