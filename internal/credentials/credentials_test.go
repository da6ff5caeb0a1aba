package credentials

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSetClear(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(Pair{})

	_, ok := s.Get(Access)
	require.False(t, ok)

	s.Set(Access, "a1")
	s.Set(Refresh, "r1")

	v, ok := s.Get(Access)
	require.True(t, ok)
	require.Equal(t, "a1", v)

	v, ok = s.Get(Refresh)
	require.True(t, ok)
	require.Equal(t, "r1", v)

	s.Clear()
	require.True(t, s.Snapshot().Empty())
}

func TestMemoryStore_SetEmpty_RemovesToken(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(Pair{Access: "a", Refresh: "r"})
	s.Set(Access, "")

	_, ok := s.Get(Access)
	require.False(t, ok)

	_, ok = s.Get(Refresh)
	require.True(t, ok, "refresh may outlive access")
}

func TestMemoryStore_DirtyTracking(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(Pair{Access: "a", Refresh: "r"})
	require.False(t, s.Dirty())

	s.Set(Access, "a")
	require.False(t, s.Dirty(), "same value is not a change")

	s.Set(Access, "a2")
	require.True(t, s.Dirty())

	s.MarkClean()
	require.False(t, s.Dirty())

	s.Clear()
	require.True(t, s.Dirty())

	s.MarkClean()
	s.Clear()
	require.False(t, s.Dirty(), "clearing an empty store changes nothing")

	s.SetPair(Pair{Access: "x", Refresh: "y"})
	require.True(t, s.Dirty())
	require.Equal(t, Pair{Access: "x", Refresh: "y"}, s.Snapshot())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(Pair{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(Access, "tok")
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Get(Access)
		}()
	}
	wg.Wait()

	v, ok := s.Get(Access)
	require.True(t, ok)
	require.Equal(t, "tok", v)
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "access", Access.String())
	require.Equal(t, "refresh", Refresh.String())
	require.Equal(t, "unknown", Kind(42).String())
}
