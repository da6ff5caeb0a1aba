package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

type retryKey struct{}

// withRetryMarker помечает вызов: по нему уже была одна попытка обновления.
// Маркер живёт только в контексте конкретного вызова и нигде не сохраняется.
func withRetryMarker(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey{}, true)
}

func retryMarked(ctx context.Context) bool {
	v, _ := ctx.Value(retryKey{}).(bool)
	return v
}

// Transport — credential-мидлвар для net/http.
//
// Исходящий хук: если в сессии есть access, добавляет Authorization: Bearer.
// Входящий хук на 401:
//   - маркер повтора уже стоит — 401 возвращается как есть (без зацикливания);
//   - access в сессии уже сменился (обновил другой вызов) — повтор с текущим токеном;
//   - refresh нет — сессия завершается, возвращается исходный 401;
//   - обновление успешно — исходный запрос повторяется, вызывающий получает его ответ;
//   - обновление неуспешно — возвращается ошибка обновления (ErrRenewalFailed), не 401.
//
// Итого на один упавший вызов: не более одного обновления и одного повтора.
// Запрос с телом без GetBody повторить нельзя: сессия обновляется, но вызывающий
// получает исходный 401.
type Transport struct {
	// Base — нижележащий транспорт; nil — http.DefaultTransport.
	Base http.RoundTripper
	// Session — фиксированная сессия (CLI). Если nil, сессия берётся из контекста
	// запроса (шлюз: один http.Client на все сессии браузеров).
	Session *Session
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}

	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	s := t.Session
	if s == nil {
		s = FromContext(req.Context())
	}

	if s == nil {
		return t.base().RoundTrip(req)
	}

	return t.roundTrip(s, req)
}

func (t *Transport) roundTrip(s *Session, req *http.Request) (*http.Response, error) {
	const op = "session.Transport"

	ctx := req.Context()

	sent, _ := s.store.Get(credentials.Access)
	resp, err := t.base().RoundTrip(authorize(req, sent))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if retryMarked(ctx) {
		return resp, nil
	}

	lg := log.From(ctx)

	current, _ := s.store.Get(credentials.Access)
	if current == "" || current == sent {
		if _, ok := s.store.Get(credentials.Refresh); !ok {
			lg.Info("unauthorized_without_refresh", slog.String("op", op), slog.String("path", req.URL.Path))
			s.Terminate(ctx)

			return resp, nil
		}

		if _, rerr := s.renewer.RenewStale(ctx, sent); rerr != nil {
			drain(resp)
			return nil, rerr
		}
	}

	// Тело уже прочитано и не перематывается: повтора нет, но сессия обновлена
	// и следующий вызов пройдёт.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		lg.Debug("unauthorized_body_not_rewindable", slog.String("op", op), slog.String("path", req.URL.Path))
		return resp, nil
	}

	drain(resp)

	retry := req.Clone(withRetryMarker(ctx))
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, fmt.Errorf("%s: rewind body: %w", op, berr)
		}
		retry.Body = body
	}

	lg.Debug("request_reissued", slog.String("op", op), slog.String("path", req.URL.Path))

	return t.roundTrip(s, retry)
}

// authorize возвращает копию запроса с Bearer-токеном; RoundTripper не должен
// менять исходный запрос.
func authorize(req *http.Request, access string) *http.Request {
	if access == "" {
		return req
	}

	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+access)

	return out
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
