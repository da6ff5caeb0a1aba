package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pribylovaa/eventhub-web/internal/session"
)

var (
	// ErrInvalidArgument — 400 или локальная валидация не прошла.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthenticated — 401, дошедший до вызывающего (после единственной попытки обновления).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden — 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound — 404.
	ErrNotFound = errors.New("not found")
	// ErrConflict — 409 (например, повторная регистрация на событие).
	ErrConflict = errors.New("conflict")
	// ErrUnavailable — 5xx или сетевой сбой.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse — ответ не соответствует контракту.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrUnexpectedStatus — статус вне таблицы маппинга.
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
)

// statusError маппит HTTP-статус апстрима в сентинел.
// detail обрезается и попадает только в текст ошибки (для логов), не в ответ клиенту.
func statusError(code int, detail []byte) error {
	var base error
	switch {
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		base = ErrInvalidArgument
	case code == http.StatusUnauthorized:
		base = ErrUnauthenticated
	case code == http.StatusForbidden:
		base = ErrForbidden
	case code == http.StatusNotFound:
		base = ErrNotFound
	case code == http.StatusConflict:
		base = ErrConflict
	case code >= 500:
		base = ErrUnavailable
	default:
		base = ErrUnexpectedStatus
	}

	msg := strings.TrimSpace(string(detail))
	if len(msg) > 200 {
		msg = msg[:200]
	}

	if msg == "" {
		return fmt.Errorf("%w: status %d", base, code)
	}

	return fmt.Errorf("%w: status %d: %s", base, code, msg)
}

func isSessionError(err error) bool {
	return errors.Is(err, session.ErrRenewalFailed) || errors.Is(err, session.ErrSessionTerminated)
}

// IsSessionTerminal — ошибка означает, что сессия закончилась и страница
// должна уйти на логин: итоговый 401 либо неуспешное обновление токена.
func IsSessionTerminal(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || isSessionError(err)
}
