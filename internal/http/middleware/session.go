package middleware

import (
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/eventhub-web/internal/errors"
	"github.com/pribylovaa/eventhub-web/internal/websession"
	logctx "github.com/pribylovaa/eventhub-web/pkg/log"
)

// Session открывает сессию браузера и кладёт её (вместе с session.Session и
// провайдером профиля) в контекст запроса.
//
// Cookie пишется непосредственно перед отправкой заголовков, пара в бэкенде
// сохраняется после обработчика. Для сессии с учётными данными запускается
// фоновая загрузка профиля.
func Session(m *websession.Manager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h, err := m.Open(r)
			if err != nil {
				logctx.From(r.Context()).Error("session_open_failed", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, err)
				return
			}

			e := h.Entry()
			state := e.Session.State()

			ctx := websession.Into(r.Context(), h)
			ctx = logctx.With(ctx, slog.String("session_state", state.String()))
			r = r.WithContext(ctx)

			if state.Active() {
				e.Profile.Start(ctx)
			}

			sw := newStatusWriter(w)
			sw.before = func() {
				if err := h.WriteCookie(w, r); err != nil {
					logctx.From(ctx).Error("session_cookie_write_failed", slog.String("err", err.Error()))
				}
			}

			next.ServeHTTP(sw, r)

			if sw.status == 0 {
				sw.flushBefore()
			}

			if err := h.Finish(w, r); err != nil {
				logctx.From(ctx).Error("session_persist_failed", slog.String("err", err.Error()))
			}

			// после логина или выхода запись уже другая: берём её из хэндла
			if info := infoFrom(ctx); info != nil {
				info.hasSession = true
				info.state = h.Entry().Session.State()
				info.forcedLogin = websession.ForcedLogin(ctx)
			}
		})
	}
}
