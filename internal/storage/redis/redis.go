// Package redis хранит пары токенов сессий браузера в Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/storage"
)

// DefaultPrefix — префикс ключей, если в конфиге пусто.
const DefaultPrefix = "eventhub:sess:"

const (
	fieldAccess  = "access"
	fieldRefresh = "refresh"
)

// Storage — пара токенов как Redis Hash с полями access, refresh и TTL сессии.
type Storage struct {
	rdb    *redis.Client
	prefix string
}

var _ storage.Credentials = (*Storage)(nil)

// New подключается по URL (redis://:pass@host:6379/0) и проверяет соединение.
func New(ctx context.Context, redisURL, prefix string) (*Storage, error) {
	const op = "storage.redis.New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(rdb, prefix), nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(rdb *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Storage{rdb: rdb, prefix: prefix}
}

func (s *Storage) key(id string) string { return s.prefix + id }

func (s *Storage) Load(ctx context.Context, key string) (credentials.Pair, error) {
	const op = "storage.redis.Load"

	m, err := s.rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	p := credentials.Pair{Access: m[fieldAccess], Refresh: m[fieldRefresh]}
	if p.Empty() {
		return credentials.Pair{}, storage.ErrNotFound
	}

	return p, nil
}

// Save перезаписывает хэш целиком; пустая пара удаляет ключ.
func (s *Storage) Save(ctx context.Context, key string, p credentials.Pair, ttl time.Duration) error {
	const op = "storage.redis.Save"

	if p.Empty() {
		return s.Delete(ctx, key)
	}

	k := s.key(key)

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, fieldAccess, p.Access, fieldRefresh, p.Refresh)
	if ttl > 0 {
		pipe.Expire(ctx, k, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.redis.Delete"

	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Ping — проверка готовности для /healthz.
func (s *Storage) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Storage) Close() error { return s.rdb.Close() }
