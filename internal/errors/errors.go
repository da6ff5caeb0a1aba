// errors стандартизирует JSON-ответы об ошибках веб-шлюза.
// На вход — ошибка клиента API платформы (сентинелы api), ошибка сессии
// или gRPC-статус апстрима уведомлений; на выход:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/session"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

func response(code, msg string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// ToHTTP конвертирует ошибку в HTTP-статус и тело.
//
// Порядок:
//   - nil — программная ошибка вызова, 500;
//   - завершённая сессия (итоговый 401, неуспешное обновление) — 401 "session_expired";
//   - сентинелы api — по таблице;
//   - context.Canceled / DeadlineExceeded — 499 / 504;
//   - gRPC-статус — baseFromGRPC;
//   - прочее — 500 без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, response("internal", "internal error")
	}

	if api.IsSessionTerminal(err) || errors.Is(err, session.ErrNoRefreshToken) {
		return http.StatusUnauthorized, response("session_expired", "session expired, please sign in again")
	}

	if code, c, msg, ok := fromAPI(err); ok {
		return code, response(c, msg)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, response("canceled", "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, response("deadline_exceeded", "deadline exceeded")
	}

	if st, ok := status.FromError(err); ok {
		httpStatus, code, msg := baseFromGRPC(st.Code())
		return httpStatus, response(code, msg)
	}

	return http.StatusInternalServerError, response("internal", "internal error")
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func fromAPI(err error) (int, string, string, bool) {
	switch {
	case errors.Is(err, api.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument", true
	case errors.Is(err, api.ErrForbidden):
		return http.StatusForbidden, "permission_denied", "permission denied", true
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found", true
	case errors.Is(err, api.ErrConflict):
		return http.StatusConflict, "conflict", "conflict", true
	case errors.Is(err, api.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable", true
	case errors.Is(err, api.ErrMalformedResponse), errors.Is(err, api.ErrUnexpectedStatus):
		return http.StatusBadGateway, "bad_gateway", "bad upstream response", true
	default:
		return 0, "", "", false
	}
}

// baseFromGRPC — маппинг gRPC -> HTTP/FE-код/сообщение для апстрима уведомлений.
func baseFromGRPC(c codes.Code) (int, string, string) {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case codes.NotFound:
		return http.StatusNotFound, "not_found", "not found"
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict, "conflict", "conflict"
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed, "failed_precondition", "failed precondition"
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "session_expired", "session expired, please sign in again"
	case codes.PermissionDenied:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case codes.Canceled:
		return StatusClientClosedRequest, "canceled", "canceled"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "unimplemented", "unimplemented"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
