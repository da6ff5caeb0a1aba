package profile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/mocks"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func fullProfile() *models.Profile {
	return &models.Profile{
		ID:        7,
		Email:     "user@example.com",
		Phone:     strp("+79990001122"),
		BirthDate: strp("1990-04-01"),
		Sex:       strp("F"),
	}
}

func newProvider(t *testing.T, opts Options) (*Provider, *mocks.MockFetcher) {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := mocks.NewMockFetcher(ctrl)
	return NewProvider(f, opts), f
}

func TestIsComplete(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		mut  func(p *models.Profile)
		want bool
	}{
		{"all fields", func(*models.Profile) {}, true},
		{"phone nil", func(p *models.Profile) { p.Phone = nil }, false},
		{"phone empty", func(p *models.Profile) { p.Phone = strp("") }, false},
		{"birth date blank", func(p *models.Profile) { p.BirthDate = strp("   ") }, false},
		{"sex nil", func(p *models.Profile) { p.Sex = nil }, false},
		{"names do not matter", func(p *models.Profile) { p.FirstName, p.LastName = "", "" }, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := fullProfile()
			tc.mut(p)
			require.Equal(t, tc.want, IsComplete(p))
		})
	}

	require.False(t, IsComplete(nil))
}

func TestLoad_Complete(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	f.EXPECT().Me(gomock.Any()).Return(fullProfile(), nil).Times(1)

	require.NoError(t, p.Load(context.Background()))

	st := p.State()
	require.True(t, st.Loaded)
	require.False(t, st.IsLoading)
	require.True(t, st.IsComplete)
	require.NoError(t, st.Err)
	require.Equal(t, int64(7), st.Profile.ID)
}

func TestLoad_MissingPhone_Incomplete(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	prof := fullProfile()
	prof.Phone = nil
	f.EXPECT().Me(gomock.Any()).Return(prof, nil)

	require.NoError(t, p.Load(context.Background()))
	require.False(t, p.State().IsComplete)
}

func TestLoad_Idempotent(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	f.EXPECT().Me(gomock.Any()).Return(fullProfile(), nil).Times(1)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Load(context.Background()))
	}
}

func TestLoad_ConcurrentCallersShareFetch(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	release := make(chan struct{})
	f.EXPECT().Me(gomock.Any()).DoAndReturn(func(context.Context) (*models.Profile, error) {
		<-release
		return fullProfile(), nil
	}).Times(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Load(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return p.State().IsLoading }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	require.True(t, p.State().IsComplete)
}

func TestLoad_FailOpen(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{Policy: FailOpen})
	boom := errors.New("network down")
	f.EXPECT().Me(gomock.Any()).Return(nil, boom)

	require.NoError(t, p.Load(context.Background()))

	st := p.State()
	require.True(t, st.IsComplete)
	require.False(t, st.IsLoading)
	require.Nil(t, st.Profile)
	require.ErrorIs(t, st.Err, boom)
}

func TestLoad_FailClosed(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{Policy: FailClosed})
	f.EXPECT().Me(gomock.Any()).Return(nil, errors.New("boom"))

	require.NoError(t, p.Load(context.Background()))
	require.False(t, p.State().IsComplete)
}

func TestLoad_NoCredential_NoFetch(t *testing.T) {
	t.Parallel()

	// без EXPECT любой вызов Me провалит тест
	p, _ := newProvider(t, Options{HasCredential: func() bool { return false }})

	require.NoError(t, p.Load(context.Background()))
	p.Start(context.Background())

	st := p.State()
	require.False(t, st.Loaded)
	require.False(t, st.IsLoading)
}

func TestLoad_CallerCancelDoesNotAbortFetch(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	release := make(chan struct{})
	f.EXPECT().Me(gomock.Any()).DoAndReturn(func(ctx context.Context) (*models.Profile, error) {
		<-release
		return fullProfile(), ctx.Err()
	})

	p.Start(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Load(ctx), context.Canceled)

	close(release)
	require.NoError(t, p.Wait(context.Background()))

	st := p.State()
	require.True(t, st.Loaded)
	require.NoError(t, st.Err)
	require.True(t, st.IsComplete)
}

func TestStart_LoadingThenLoaded(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	release := make(chan struct{})
	f.EXPECT().Me(gomock.Any()).DoAndReturn(func(context.Context) (*models.Profile, error) {
		<-release
		return fullProfile(), nil
	})

	p.Start(context.Background())
	require.True(t, p.State().IsLoading)

	close(release)
	require.NoError(t, p.Wait(context.Background()))
	require.False(t, p.State().IsLoading)
	require.True(t, p.State().IsComplete)
}

func TestRefresh_Refetches(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	partial := fullProfile()
	partial.Sex = nil

	gomock.InOrder(
		f.EXPECT().Me(gomock.Any()).Return(partial, nil),
		f.EXPECT().Me(gomock.Any()).Return(fullProfile(), nil),
	)

	require.NoError(t, p.Load(context.Background()))
	require.False(t, p.State().IsComplete)

	require.NoError(t, p.Refresh(context.Background()))
	require.True(t, p.State().IsComplete)
}

// Refresh после потери учётных данных не оставляет прежний флаг полноты.
func TestRefresh_CredentialGone_ResetsState(t *testing.T) {
	t.Parallel()

	var hasCred atomic.Bool
	hasCred.Store(true)

	p, f := newProvider(t, Options{HasCredential: hasCred.Load})
	f.EXPECT().Me(gomock.Any()).Return(fullProfile(), nil).Times(1)

	require.NoError(t, p.Load(context.Background()))
	require.True(t, p.State().IsComplete)

	hasCred.Store(false)
	require.NoError(t, p.Refresh(context.Background()))

	st := p.State()
	require.Nil(t, st.Profile)
	require.False(t, st.Loaded)
	require.False(t, st.IsComplete)
	require.False(t, st.IsLoading)
	require.NoError(t, st.Err)
}

func TestClear_ResetsState(t *testing.T) {
	t.Parallel()

	p, f := newProvider(t, Options{})
	f.EXPECT().Me(gomock.Any()).Return(fullProfile(), nil).Times(2)

	require.NoError(t, p.Load(context.Background()))
	p.Clear()
	require.Equal(t, State{}, p.State())

	// после Clear следующая сессия грузит профиль заново
	require.NoError(t, p.Load(context.Background()))
	require.True(t, p.State().Loaded)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]FailurePolicy{
		"":            FailOpen,
		"fail_open":   FailOpen,
		"FAIL_CLOSED": FailClosed,
		"closed":      FailClosed,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParsePolicy("sometimes")
	require.ErrorIs(t, err, ErrUnknownPolicy)
}
