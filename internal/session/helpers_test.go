package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/models"
)

// makeToken подписывает HS256-токен с заданным exp. Подпись клиент не проверяет,
// поэтому ключ произвольный.
func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-5 * time.Minute)),
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return tok
}

// fakeRefresher — управляемый эндпойнт обновления.
type fakeRefresher struct {
	calls atomic.Int32

	mu     sync.Mutex
	result models.RefreshResult
	err    error
	// wait, если задан, вызывается до ответа (гейт для тестов конкурентности).
	wait func(ctx context.Context)
	// seen — refresh-токены, с которыми звали эндпойнт.
	seen []string
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, refresh string) (models.RefreshResult, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.seen = append(f.seen, refresh)
	wait, res, err := f.wait, f.result, f.err
	f.mu.Unlock()

	if wait != nil {
		wait(ctx)
	}

	return res, err
}

// countingNavigator считает сигналы перехода на логин.
type countingNavigator struct {
	n atomic.Int32
}

func (c *countingNavigator) ToLogin(context.Context) { c.n.Add(1) }

// recObserver запоминает исходы обновлений.
type recObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recObserver) RenewalFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, outcome)
	o.mu.Unlock()
}

func (o *recObserver) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]string(nil), o.outcomes...)
}

type fixture struct {
	store *credentials.MemoryStore
	ref   *fakeRefresher
	nav   *countingNavigator
	obs   *recObserver
	sess  *Session
	now   time.Time
}

func newFixture(t *testing.T, pair credentials.Pair) *fixture {
	t.Helper()

	f := &fixture{
		store: credentials.NewMemoryStore(pair),
		ref:   &fakeRefresher{},
		nav:   &countingNavigator{},
		obs:   &recObserver{},
		now:   time.Now(),
	}

	f.sess = New(f.store, f.ref, Options{
		ID:             "test",
		RenewalTimeout: time.Second,
		Navigator:      f.nav,
		Observer:       f.obs,
		Now:            func() time.Time { return f.now },
	})

	return f
}
