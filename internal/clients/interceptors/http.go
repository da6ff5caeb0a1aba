package interceptors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// RoundTripperFunc — адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// HTTPWithMetadata проставляет X-Request-Id из контекста и User-Agent.
// Запрос клонируется: RoundTripper не должен менять запрос вызывающего.
func HTTPWithMetadata(next http.RoundTripper, userAgent string) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		rid := RequestID(r.Context())
		if rid == "" && userAgent == "" {
			return next.RoundTrip(r)
		}

		r2 := r.Clone(r.Context())
		if rid != "" {
			r2.Header.Set("X-Request-Id", rid)
		}
		if userAgent != "" {
			r2.Header.Set("User-Agent", userAgent)
		}

		return next.RoundTrip(r2)
	})
}

// HTTPWithLogging пишет одну запись "upstream_http" на каждый исходящий запрос
// (включая повтор после обновления токена). Заголовки и тела не логируются.
func HTTPWithLogging(next http.RoundTripper, base *slog.Logger) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		l := base
		if l == nil {
			l = log.From(r.Context())
		}

		start := time.Now()
		resp, err := next.RoundTrip(r)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("dur", time.Since(start)),
		}
		if rid := RequestID(r.Context()); rid != "" {
			attrs = append(attrs, slog.String("request_id", rid))
		}

		if err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
			l.LogAttrs(r.Context(), slog.LevelWarn, "upstream_http", attrs...)
			return nil, err
		}

		attrs = append(attrs, slog.Int("status", resp.StatusCode))
		l.LogAttrs(r.Context(), slog.LevelInfo, "upstream_http", attrs...)

		return resp, nil
	})
}
