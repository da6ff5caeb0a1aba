package session

import (
	"context"
	"time"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
)

// State — производное состояние сессии (не хранится).
type State int

const (
	// Anonymous — токенов нет.
	Anonymous State = iota
	// Authenticated — access есть и exp в будущем.
	Authenticated
	// ExpiredPendingRenewal — access есть, но истёк (или не декодируется); refresh есть.
	ExpiredPendingRenewal
	// Invalid — access истёк при пустом refresh либо access нет вовсе при
	// оставшемся refresh; схлопывается в Anonymous.
	Invalid
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case ExpiredPendingRenewal:
		return "expired-pending-renewal"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Active — у сессии есть access, валидный или ожидающий обновления.
func (s State) Active() bool {
	return s == Authenticated || s == ExpiredPendingRenewal
}

// Evaluator решает, аутентифицирован ли вызывающий.
type Evaluator struct {
	store   credentials.Store
	renewer *Renewer
	now     func() time.Time
	leeway  time.Duration
}

// accessValid — access есть, декодируется и exp (минус leeway) в будущем.
func (e *Evaluator) accessValid() bool {
	access, ok := e.store.Get(credentials.Access)
	if !ok {
		return false
	}

	exp, err := DecodeExpiry(access)
	if err != nil {
		return false
	}

	return e.now().Before(exp.Add(-e.leeway))
}

// IsAuthenticated — синхронная проверка без сети.
func (e *Evaluator) IsAuthenticated() bool {
	return e.accessValid()
}

// State возвращает текущее производное состояние.
func (e *Evaluator) State() State {
	_, hasAccess := e.store.Get(credentials.Access)
	_, hasRefresh := e.store.Get(credentials.Refresh)

	switch {
	case !hasAccess && !hasRefresh:
		return Anonymous
	case e.accessValid():
		return Authenticated
	case hasAccess && hasRefresh:
		return ExpiredPendingRenewal
	default:
		return Invalid
	}
}

// EnsureFresh гарантирует валидный access перед рендером:
//  1. access нет — false (без сети);
//  2. exp в будущем — true;
//  3. истёк или не декодируется, refresh нет — false, остаток сессии очищается;
//  4. иначе — обновление через общий Renewer: успех — true, неудача/таймаут — false
//     (сессия при неудаче уже очищена Renewer'ом).
func (e *Evaluator) EnsureFresh(ctx context.Context) bool {
	access, ok := e.store.Get(credentials.Access)
	if !ok {
		return false
	}

	if e.accessValid() {
		return true
	}

	if _, ok := e.store.Get(credentials.Refresh); !ok {
		e.store.Clear()
		return false
	}

	_, err := e.renewer.RenewStale(ctx, access)

	return err == nil
}
