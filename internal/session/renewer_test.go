package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/models"
)

func TestRenewer_NoRefresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t, credentials.Pair{Access: "a"})

	_, err := f.sess.Renewer().Renew(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
	require.Zero(t, f.ref.calls.Load())
	require.Equal(t, []string{OutcomeNoRefresh}, f.obs.list())
}

// Конкурентные вызовы, пришедшие пока обмен в полёте, ждут один результат.
func TestRenewer_ConcurrentCallers_ShareOneRenewal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, credentials.Pair{Access: "expired", Refresh: "refresh-1"})

	release := make(chan struct{})
	f.ref.result = models.RefreshResult{Access: "fresh"}
	f.ref.wait = func(context.Context) { <-release }

	const n = 16
	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)

	results := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = f.sess.Renewer().Renew(context.Background())
		}(i)
	}

	started.Wait()
	time.Sleep(30 * time.Millisecond)
	close(release)
	done.Wait()

	require.EqualValues(t, 1, f.ref.calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "fresh", results[i])
	}
}

// Обмен, который не завершается, ограничен таймаутом и считается неудачей.
func TestRenewer_Timeout_IsSessionTerminal(t *testing.T) {
	t.Parallel()

	store := credentials.NewMemoryStore(credentials.Pair{Access: "expired", Refresh: "refresh-1"})
	nav := &countingNavigator{}
	obs := &recObserver{}

	hang := make(chan struct{})
	t.Cleanup(func() { close(hang) })

	ref := &fakeRefresher{}
	ref.wait = func(context.Context) { <-hang } // ctx игнорируется намеренно

	s := New(store, ref, Options{RenewalTimeout: 30 * time.Millisecond, Navigator: nav, Observer: obs})

	start := time.Now()
	_, err := s.Renewer().Renew(context.Background())

	require.ErrorIs(t, err, ErrRenewalFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
	require.True(t, store.Snapshot().Empty())
	require.EqualValues(t, 1, nav.n.Load())
	require.Equal(t, []string{OutcomeTimeout}, obs.list())
}

// Отмена одного вызывающего не отменяет обмен для остальных.
func TestRenewer_CallerCancel_DoesNotAbortSharedRenewal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, credentials.Pair{Access: "expired", Refresh: "refresh-1"})

	release := make(chan struct{})
	entered := make(chan struct{})
	f.ref.result = models.RefreshResult{Access: "fresh"}
	f.ref.wait = func(context.Context) {
		close(entered)
		<-release
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.sess.Renewer().Renew(ctx)
		firstErr <- err
	}()

	<-entered
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)

	require.Eventually(t, func() bool {
		v, _ := f.store.Get(credentials.Access)
		return v == "fresh"
	}, time.Second, 5*time.Millisecond)
	require.Zero(t, f.nav.n.Load())
}

func TestRenewer_EmptyAccessInResponse_IsFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, credentials.Pair{Access: "expired", Refresh: "refresh-1"})
	f.ref.result = models.RefreshResult{}

	_, err := f.sess.Renewer().Renew(context.Background())
	require.ErrorIs(t, err, ErrRenewalFailed)
	require.True(t, f.store.Snapshot().Empty())
}

// Если за время обмена пользователь перелогинился, неудача старого обмена
// не стирает новую пару.
func TestRenewer_FailureAfterRelogin_KeepsNewPair(t *testing.T) {
	t.Parallel()

	f := newFixture(t, credentials.Pair{Access: "expired", Refresh: "old"})
	f.ref.err = errors.New("rejected")
	f.ref.wait = func(context.Context) {
		f.store.SetPair(credentials.Pair{Access: "new-access", Refresh: "new-refresh"})
	}

	_, err := f.sess.Renewer().Renew(context.Background())
	require.ErrorIs(t, err, ErrRenewalFailed)
	require.Equal(t, credentials.Pair{Access: "new-access", Refresh: "new-refresh"}, f.store.Snapshot())
	require.Zero(t, f.nav.n.Load())
}

// Вызывающий видел старый access, а в хранилище уже новый: обмена нет.
func TestRenewer_RenewStale_AlreadyRenewed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, credentials.Pair{Access: "fresh", Refresh: "refresh-2"})

	got, err := f.sess.Renewer().RenewStale(context.Background(), "expired")
	require.NoError(t, err)
	require.Equal(t, "fresh", got)
	require.Zero(t, f.ref.calls.Load())
	require.Empty(t, f.obs.list())
}
