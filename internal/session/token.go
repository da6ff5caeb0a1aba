package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeExpiry читает exp из access-токена без проверки подписи.
// Клиент доверяет только формату: подпись проверяет сервер на каждом запросе,
// поэтому решение "аутентифицирован" здесь носит рекомендательный характер.
func DecodeExpiry(access string) (time.Time, error) {
	const op = "session.DecodeExpiry"

	if access == "" {
		return time.Time{}, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedToken, err)
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%s: %w: missing exp", op, ErrMalformedToken)
	}

	return claims.ExpiresAt.Time, nil
}
