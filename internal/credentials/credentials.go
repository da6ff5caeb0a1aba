// credentials — хранилище пары токенов (access/refresh) одной сессии.
//
// Хранилище — чистые данные: Get/Set/Clear без валидации и без I/O.
// Все операции синхронные, поэтому credential-мидлвар и evaluator читают и пишут
// токены без планирования. Загрузка из внешнего хранилища и сохранение обратно
// выполняются явно на границах сессии (см. internal/websession, internal/storage).
package credentials

import "sync"

// Kind — вид токена в паре.
type Kind int

const (
	Access Kind = iota
	Refresh
)

func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Pair — пара токенов. Пустая строка означает отсутствие токена.
// refresh может существовать без валидного access (истёк, но ещё не обновлён).
type Pair struct {
	Access  string `json:"access" yaml:"access"`
	Refresh string `json:"refresh" yaml:"refresh"`
}

// Empty — в паре нет ни одного токена.
func (p Pair) Empty() bool { return p.Access == "" && p.Refresh == "" }

// Store — контракт хранилища учётных данных сессии.
type Store interface {
	// Get возвращает токен и признак его наличия.
	Get(kind Kind) (string, bool)
	// Set записывает токен; пустое значение эквивалентно удалению.
	Set(kind Kind, token string)
	// Clear удаляет оба токена.
	Clear()
}

// MemoryStore — потокобезопасная реализация Store в памяти процесса.
// Dirty фиксирует изменения с момента создания/последнего MarkClean, чтобы
// слой персистентности записывал пару только при необходимости.
type MemoryStore struct {
	mu    sync.RWMutex
	pair  Pair
	dirty bool
}

// NewMemoryStore создаёт хранилище, заполненное парой p (может быть пустой).
func NewMemoryStore(p Pair) *MemoryStore {
	return &MemoryStore{pair: p}
}

func (s *MemoryStore) Get(kind Kind) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v string
	switch kind {
	case Access:
		v = s.pair.Access
	case Refresh:
		v = s.pair.Refresh
	}

	return v, v != ""
}

func (s *MemoryStore) Set(kind Kind, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case Access:
		s.dirty = s.dirty || s.pair.Access != token
		s.pair.Access = token
	case Refresh:
		s.dirty = s.dirty || s.pair.Refresh != token
		s.pair.Refresh = token
	}
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = s.dirty || !s.pair.Empty()
	s.pair = Pair{}
}

// SetPair атомарно заменяет обе части пары (логин).
func (s *MemoryStore) SetPair(p Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty = s.dirty || s.pair != p
	s.pair = p
}

// Snapshot возвращает копию текущей пары.
func (s *MemoryStore) Snapshot() Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pair
}

// Dirty — были ли изменения после создания или MarkClean.
func (s *MemoryStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dirty
}

// MarkClean сбрасывает признак изменений после успешного сохранения.
func (s *MemoryStore) MarkClean() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}
