package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver — приёмник HTTP-метрик (internal/metrics).
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, dur time.Duration)
}

// Metrics пишет счётчик и длительность запроса с меткой шаблона маршрута chi.
// Запросы без маршрута попадают под "unmatched", чтобы не раздувать кардинальность.
func Metrics(o HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if o == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			o.ObserveHTTP(r.Method, route, status, time.Since(start))
		})
	}
}
