package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// Renewer — единственный на сессию слот обновления access-токена.
//
// Первый вызывающий запускает обмен refresh -> access; все, кто пришёл, пока
// обмен в полёте, ждут тот же результат (singleflight по значению refresh-токена).
// Обмен выполняется в контексте, отвязанном от отмены первого вызывающего, и
// ограничен таймаутом; таймаут считается неуспешным обновлением.
//
// При любой неудаче сессия завершается (onFailure): токены очищаются, навигатор
// получает сигнал на логин. Политика одинакова для пути через 401 и для Evaluator.
type Renewer struct {
	store     credentials.Store
	refresher Refresher
	timeout   time.Duration
	observer  Observer
	onFailure func(ctx context.Context)

	group singleflight.Group
}

// Renew обновляет access-токен и возвращает новое значение.
// Отмена ctx прерывает только ожидание этого вызывающего, не сам обмен.
func (r *Renewer) Renew(ctx context.Context) (string, error) {
	seen, _ := r.store.Get(credentials.Access)
	return r.RenewStale(ctx, seen)
}

// RenewStale обновляет access, который вызывающий видел как seen. Если к началу
// обмена в хранилище уже другой access (его записал параллельный вызов или
// новый логин), он возвращается без обращения к эндпойнту.
func (r *Renewer) RenewStale(ctx context.Context, seen string) (string, error) {
	const op = "session.Renewer.Renew"

	if cur, ok := r.store.Get(credentials.Access); ok && cur != seen {
		return cur, nil
	}

	refresh, ok := r.store.Get(credentials.Refresh)
	if !ok {
		r.observe(OutcomeNoRefresh, 0)
		return "", fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	ch := r.group.DoChan(refresh, func() (any, error) {
		// предыдущий обмен мог завершиться между проверкой выше и DoChan
		if cur, ok := r.store.Get(credentials.Access); ok && cur != seen {
			return cur, nil
		}

		return r.renew(context.WithoutCancel(ctx), refresh)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

type refreshOutcome struct {
	res models.RefreshResult
	err error
}

func (r *Renewer) renew(parent context.Context, refresh string) (string, error) {
	const op = "session.Renewer.renew"

	lg := log.From(parent)
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	// Refresher может не уважать ctx; таймаут соблюдается в любом случае.
	done := make(chan refreshOutcome, 1)
	go func() {
		res, err := r.refresher.RefreshToken(ctx, refresh)
		done <- refreshOutcome{res: res, err: err}
	}()

	var out refreshOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err == nil && out.res.Access == "" {
		out.err = errors.New("empty access token in response")
	}

	if out.err != nil {
		outcome := OutcomeFailure
		if errors.Is(out.err, context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}

		r.observe(outcome, time.Since(start))
		lg.Warn("renewal_failed",
			slog.String("op", op),
			slog.String("outcome", outcome),
			slog.String("err", out.err.Error()),
		)

		// Если за время обмена сессию уже перелогинили, новую пару не трогаем.
		if cur, _ := r.store.Get(credentials.Refresh); cur == refresh && r.onFailure != nil {
			r.onFailure(parent)
		}

		return "", fmt.Errorf("%s: %w: %w", op, ErrRenewalFailed, out.err)
	}

	r.store.Set(credentials.Access, out.res.Access)
	if out.res.Refresh != "" {
		r.store.Set(credentials.Refresh, out.res.Refresh)
	}

	r.observe(OutcomeSuccess, time.Since(start))
	lg.Debug("renewal_succeeded",
		slog.String("op", op),
		slog.Bool("refresh_rotated", out.res.Refresh != ""),
	)

	return out.res.Access, nil
}

func (r *Renewer) observe(outcome string, dur time.Duration) {
	if r.observer != nil {
		r.observer.RenewalFinished(outcome, dur)
	}
}
