package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/storage"
)

func setup(t *testing.T) (*Storage, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	t.Cleanup(func() { require.NoError(t, mock.ExpectationsWereMet()) })

	return NewWithClient(db, "t:"), mock
}

func TestLoad(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := setup(t)
		mock.ExpectHGetAll("t:sid").SetVal(map[string]string{"access": "a", "refresh": "r"})

		p, err := s.Load(context.Background(), "sid")
		require.NoError(t, err)
		require.Equal(t, credentials.Pair{Access: "a", Refresh: "r"}, p)
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := setup(t)
		mock.ExpectHGetAll("t:sid").SetVal(map[string]string{})

		_, err := s.Load(context.Background(), "sid")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("redis error", func(t *testing.T) {
		s, mock := setup(t)
		mock.ExpectHGetAll("t:sid").SetErr(redis.ErrClosed)

		_, err := s.Load(context.Background(), "sid")
		require.ErrorIs(t, err, redis.ErrClosed)
	})
}

func TestSave(t *testing.T) {
	t.Run("with ttl", func(t *testing.T) {
		s, mock := setup(t)

		mock.ExpectTxPipeline()
		mock.ExpectDel("t:sid").SetVal(1)
		mock.ExpectHSet("t:sid", "access", "a", "refresh", "r").SetVal(2)
		mock.ExpectExpire("t:sid", time.Hour).SetVal(true)
		mock.ExpectTxPipelineExec()

		require.NoError(t, s.Save(context.Background(), "sid", credentials.Pair{Access: "a", Refresh: "r"}, time.Hour))
	})

	t.Run("empty pair deletes", func(t *testing.T) {
		s, mock := setup(t)
		mock.ExpectDel("t:sid").SetVal(1)

		require.NoError(t, s.Save(context.Background(), "sid", credentials.Pair{}, time.Hour))
	})
}

func TestDelete_Error(t *testing.T) {
	s, mock := setup(t)
	mock.ExpectDel("t:sid").SetErr(redis.ErrClosed)

	err := s.Delete(context.Background(), "sid")
	require.ErrorIs(t, err, redis.ErrClosed)
}

func TestDefaultPrefix(t *testing.T) {
	db, _ := redismock.NewClientMock()
	require.Equal(t, DefaultPrefix+"x", NewWithClient(db, "").key("x"))
}
