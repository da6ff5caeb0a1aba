package session

import "errors"

var (
	// ErrMalformedToken — access-токен не декодируется или не содержит exp.
	// Для решения "аутентифицирован ли вызывающий" равносилен истёкшему токену.
	ErrMalformedToken = errors.New("malformed access token")

	// ErrNoRefreshToken — обновить access нечем; сессия завершена.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRenewalFailed — обмен refresh -> access не удался (отказ сервера,
	// сетевой сбой или таймаут). Сессия при этом уже очищена.
	ErrRenewalFailed = errors.New("token renewal failed")

	// ErrSessionTerminated — запрос получил 401, а refresh-токена нет.
	ErrSessionTerminated = errors.New("session terminated")
)
