// session — слой сессии и управления доступом клиента платформы.
//
// Session создаётся явно (на сессию браузера в шлюзе или на запуск CLI) и
// объединяет:
//   - credentials.Store — пару токенов;
//   - Renewer — единственный на сессию слот обновления access-токена;
//   - Evaluator — решение "аутентифицирован / нужно обновление";
//   - Navigator — куда сообщить о принудительном переходе на логин.
//
// Transport (http.RoundTripper) и UnaryClientInterceptor (gRPC) — credential-мидлвары:
// прикрепляют access-токен к исходящему вызову и на 401/Unauthenticated обновляют
// его не более одного раза на вызов.
//
// Session безопасна для конкурентного использования.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// DefaultRenewalTimeout — верхняя граница одного обмена refresh -> access.
const DefaultRenewalTimeout = 10 * time.Second

// Refresher — эндпойнт обновления токена (POST /token/refresh).
type Refresher interface {
	RefreshToken(ctx context.Context, refresh string) (models.RefreshResult, error)
}

// Navigator получает сигнал о принудительном переходе на страницу логина.
type Navigator interface {
	ToLogin(ctx context.Context)
}

// NavigatorFunc — адаптер функции к Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) ToLogin(ctx context.Context) { f(ctx) }

// Observer — наблюдатель за обновлениями токена (метрики).
type Observer interface {
	RenewalFinished(outcome string, dur time.Duration)
}

// Исходы обновления для Observer.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeTimeout   = "timeout"
	OutcomeNoRefresh = "no_refresh"
)

// Options — параметры сессии; нулевые значения заменяются умолчаниями.
type Options struct {
	// ID — идентификатор сессии для логов (не секрет).
	ID string
	// RenewalTimeout — таймаут обновления; <=0 — DefaultRenewalTimeout.
	RenewalTimeout time.Duration
	// Leeway — запас до exp, после которого токен уже считается истёкшим.
	Leeway    time.Duration
	Navigator Navigator
	Observer  Observer
	// Now — источник времени (для тестов).
	Now func() time.Time
}

// Session — явно сконструированная сессия.
type Session struct {
	id      string
	store   credentials.Store
	nav     Navigator
	renewer *Renewer
	eval    *Evaluator
}

// New создаёт сессию поверх store. refresher обычно — клиент API платформы.
func New(store credentials.Store, refresher Refresher, opts Options) *Session {
	if opts.RenewalTimeout <= 0 {
		opts.RenewalTimeout = DefaultRenewalTimeout
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Navigator == nil {
		opts.Navigator = NavigatorFunc(func(ctx context.Context) {
			log.From(ctx).Info("navigate_to_login")
		})
	}

	s := &Session{
		id:    opts.ID,
		store: store,
		nav:   opts.Navigator,
	}

	s.renewer = &Renewer{
		store:     store,
		refresher: refresher,
		timeout:   opts.RenewalTimeout,
		observer:  opts.Observer,
		onFailure: s.Terminate,
	}

	s.eval = &Evaluator{
		store:   store,
		renewer: s.renewer,
		now:     opts.Now,
		leeway:  opts.Leeway,
	}

	return s
}

// ID — идентификатор сессии для логов.
func (s *Session) ID() string { return s.id }

// Store — хранилище токенов сессии.
func (s *Session) Store() credentials.Store { return s.store }

// Renewer — общий слот обновления.
func (s *Session) Renewer() *Renewer { return s.renewer }

// Evaluator — оценка состояния сессии.
func (s *Session) Evaluator() *Evaluator { return s.eval }

// IsAuthenticated — см. Evaluator.IsAuthenticated.
func (s *Session) IsAuthenticated() bool { return s.eval.IsAuthenticated() }

// EnsureFresh — см. Evaluator.EnsureFresh.
func (s *Session) EnsureFresh(ctx context.Context) bool { return s.eval.EnsureFresh(ctx) }

// State — см. Evaluator.State.
func (s *Session) State() State { return s.eval.State() }

// Login сохраняет пару, полученную от login-эндпойнта (пароль или внешний провайдер).
func (s *Session) Login(pair models.TokenPair) {
	if ms, ok := s.store.(interface{ SetPair(credentials.Pair) }); ok {
		ms.SetPair(credentials.Pair{Access: pair.Access, Refresh: pair.Refresh})
		return
	}

	s.store.Set(credentials.Access, pair.Access)
	s.store.Set(credentials.Refresh, pair.Refresh)
}

// Logout очищает токены без перехода на логин: вызывающий сам решает, куда идти.
func (s *Session) Logout() {
	s.store.Clear()
}

// Terminate очищает токены и сообщает навигатору о переходе на логин.
// Вызывается при невосстановимых ошибках сессии.
func (s *Session) Terminate(ctx context.Context) {
	s.store.Clear()

	log.From(ctx).Warn("session_terminated", slog.String("session", s.id))
	s.nav.ToLogin(ctx)
}

type ctxKey struct{}

// Into кладёт сессию в контекст.
func Into(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext достаёт сессию из контекста (nil, если её нет).
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
