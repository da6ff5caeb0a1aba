package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/eventhub-web/internal/session"
	logctx "github.com/pribylovaa/eventhub-web/pkg/log"
)

// requestInfo — то, что внутренние мидлвары сообщают итоговой записи "http".
// Заполняется Session после обработчика.
type requestInfo struct {
	hasSession  bool
	state       session.State
	forcedLogin bool
}

type infoKey struct{}

func infoFrom(ctx context.Context) *requestInfo {
	i, _ := ctx.Value(infoKey{}).(*requestInfo)
	return i
}

// Logging кладёт request-scoped логгер (с request_id) в контекст и по
// завершении пишет запись "http": маршрут, статус, размер, итоговое состояние
// сессии и признак принудительного выхода на логин. 5xx пишутся уровнем Error.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}

			info := &requestInfo{}
			ctx := logctx.Into(r.Context(), reqLogger)
			ctx = context.WithValue(ctx, infoKey{}, info)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			}

			if rc := chi.RouteContext(ctx); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					attrs = append(attrs, slog.String("route", p))
				}
			}

			if info.hasSession {
				attrs = append(attrs, slog.String("session_state", info.state.String()))
			}
			if info.forcedLogin {
				attrs = append(attrs, slog.Bool("forced_login", true))
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			reqLogger.LogAttrs(ctx, level, "http", attrs...)
		})
	}
}
