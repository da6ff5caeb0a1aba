package middleware

import (
	"net/http"
	"time"

	"github.com/pribylovaa/eventhub-web/internal/clients/interceptors"
)

// Timeout — общий дедлайн запроса страницы: им ограничены и исходящие вызовы
// к платформе, кроме обновления токена (у него свой таймаут). <=0 — no-op.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := interceptors.WithDefaultTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
