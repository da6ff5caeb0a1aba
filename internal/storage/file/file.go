// Package file хранит пары токенов CLI в YAML-файле в каталоге конфигурации пользователя.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/storage"
)

// FileName — имя файла по умолчанию внутри каталога конфигурации.
const FileName = "credentials.yaml"

type document struct {
	Sessions map[string]credentials.Pair `yaml:"sessions"`
}

// Storage — файл вида sessions: {<key>: {access, refresh}}. TTL не поддерживается:
// срок жизни пары определяет сервер.
type Storage struct {
	path string
	mu   sync.Mutex
}

var _ storage.Credentials = (*Storage)(nil)

// New создаёт хранилище по пути path.
func New(path string) *Storage {
	return &Storage{path: path}
}

// DefaultPath — <UserConfigDir>/eventhub/credentials.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("storage.file.DefaultPath: %w", err)
	}

	return filepath.Join(dir, "eventhub", FileName), nil
}

// Path — путь к файлу.
func (s *Storage) Path() string { return s.path }

func (s *Storage) Load(_ context.Context, key string) (credentials.Pair, error) {
	const op = "storage.file.Load"

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	p, ok := doc.Sessions[key]
	if !ok || p.Empty() {
		return credentials.Pair{}, storage.ErrNotFound
	}

	return p, nil
}

func (s *Storage) Save(_ context.Context, key string, p credentials.Pair, _ time.Duration) error {
	const op = "storage.file.Save"

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if p.Empty() {
		delete(doc.Sessions, key)
	} else {
		doc.Sessions[key] = p
	}

	if err := s.write(doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.Save(ctx, key, credentials.Pair{}, 0)
}

func (s *Storage) read() (document, error) {
	doc := document{Sessions: map[string]credentials.Pair{}}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}

	if err := yaml.Unmarshal(b, &doc); err != nil {
		return doc, err
	}

	if doc.Sessions == nil {
		doc.Sessions = map[string]credentials.Pair{}
	}

	return doc, nil
}

// write пишет во временный файл рядом и переименовывает: файл либо старый, либо новый целиком.
func (s *Storage) write(doc document) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
