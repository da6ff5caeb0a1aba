// storage — персистентность пары токенов между запросами (шлюз) и запусками (CLI).
// Само хранилище сессии (credentials.Store) синхронно и без I/O; бэкенды отсюда
// используются только при открытии и закрытии сессии.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
)

var ErrNotFound = errors.New("credentials not found")

// Credentials — бэкенд пары токенов, адресуемой ключом сессии.
type Credentials interface {
	// Load возвращает пару или ErrNotFound.
	Load(ctx context.Context, key string) (credentials.Pair, error)
	// Save сохраняет пару; ttl<=0 — без истечения.
	Save(ctx context.Context, key string, p credentials.Pair, ttl time.Duration) error
	// Delete удаляет пару; отсутствие ключа не ошибка.
	Delete(ctx context.Context, key string) error
}
