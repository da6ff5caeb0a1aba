// websession — сессии браузера поверх gorilla/sessions.
//
// Браузер хранит только подписанную (и зашифрованную) cookie. Живые объекты
// сессии (session.Session и profile.Provider) лежат в процессном реестре с TTL:
// все параллельные запросы одного браузера делят один слот обновления токена
// и один кэш профиля.
//
// Режимы хранения пары токенов:
//   - cookie: пара внутри cookie;
//   - backend (redis): в cookie только идентификатор, пара в storage.Credentials.
package websession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	gocache "github.com/patrickmn/go-cache"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/profile"
	"github.com/pribylovaa/eventhub-web/internal/session"
	"github.com/pribylovaa/eventhub-web/internal/storage"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// Ключи значений в cookie.
const (
	valueID      = "sid"
	valueAccess  = "access"
	valueRefresh = "refresh"
)

const (
	DefaultCookieName = "eventhub_session"
	DefaultTTL        = 30 * time.Minute
	DefaultMaxAge     = 30 * 24 * time.Hour
)

var ErrNoSession = errors.New("no web session in context")

// SessionFactory строит сессию для пары, загруженной из cookie или бэкенда.
type SessionFactory func(id string, store credentials.Store) *session.Session

// ProviderFactory строит провайдер профиля для сессии.
type ProviderFactory func(s *session.Session) *profile.Provider

// Options — параметры менеджера.
type Options struct {
	CookieName string
	HashKey    []byte
	BlockKey   []byte
	Secure     bool
	MaxAge     time.Duration
	// Backend — внешнее хранилище пары; nil — пара хранится в cookie.
	Backend storage.Credentials
	// TTL — время жизни записи в реестре без обращений.
	TTL time.Duration

	NewSession  SessionFactory
	NewProvider ProviderFactory
}

// Entry — живое состояние одной сессии браузера.
type Entry struct {
	ID      string
	Session *session.Session
	Profile *profile.Provider
	store   *credentials.MemoryStore
}

// Manager открывает и сохраняет сессии браузера.
type Manager struct {
	opts     Options
	cookies  *sessions.CookieStore
	registry *gocache.Cache
	mu       sync.Mutex
}

// New создаёт менеджер. Пустые ключи заменяются случайными:
// cookie не переживут рестарт процесса.
func New(opts Options) (*Manager, error) {
	const op = "websession.New"

	if opts.NewSession == nil || opts.NewProvider == nil {
		return nil, fmt.Errorf("%s: session and provider factories are required", op)
	}

	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}

	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}

	if len(opts.HashKey) == 0 {
		opts.HashKey = securecookie.GenerateRandomKey(64)
	}

	if len(opts.BlockKey) == 0 {
		opts.BlockKey = securecookie.GenerateRandomKey(32)
	}

	if opts.HashKey == nil || opts.BlockKey == nil {
		return nil, fmt.Errorf("%s: failed to generate cookie keys", op)
	}

	switch len(opts.BlockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%s: block key must be 16, 24 or 32 bytes", op)
	}

	cs := sessions.NewCookieStore(opts.HashKey, opts.BlockKey)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge / time.Second),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	cs.MaxAge(cs.Options.MaxAge)

	return &Manager{
		opts:     opts,
		cookies:  cs,
		registry: gocache.New(opts.TTL, opts.TTL/2),
	}, nil
}

// Handle — сессия в рамках одного запроса.
type Handle struct {
	m     *Manager
	raw   *sessions.Session
	entry *Entry
	// cookieDone — cookie уже записана в этом ответе.
	cookieDone bool
}

// Open достаёт (или создаёт) сессию запроса. Битая или чужая cookie
// даёт новую анонимную сессию.
func (m *Manager) Open(r *http.Request) (*Handle, error) {
	const op = "websession.Manager.Open"

	raw, err := m.cookies.Get(r, m.opts.CookieName)
	if err != nil {
		log.From(r.Context()).Debug("session_cookie_rejected", slog.String("err", err.Error()))
	}

	id, _ := raw.Values[valueID].(string)
	if _, perr := uuid.Parse(id); perr != nil {
		id = uuid.NewString()
		raw.Values = map[interface{}]interface{}{valueID: id}
		raw.IsNew = true
	}

	entry, err := m.entry(r.Context(), id, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Handle{m: m, raw: raw, entry: entry}, nil
}

// entry берёт запись из реестра или поднимает её из cookie/бэкенда.
// Запись в памяти главнее cookie: в ней могут быть уже обновлённые токены.
func (m *Manager) entry(ctx context.Context, id string, raw *sessions.Session) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.registry.Get(id); ok {
		e := v.(*Entry)
		m.registry.SetDefault(id, e)
		return e, nil
	}

	var pair credentials.Pair

	if m.opts.Backend == nil {
		pair.Access, _ = raw.Values[valueAccess].(string)
		pair.Refresh, _ = raw.Values[valueRefresh].(string)
	} else if !raw.IsNew {
		p, err := m.opts.Backend.Load(ctx, id)
		switch {
		case err == nil:
			pair = p
		case errors.Is(err, storage.ErrNotFound):
		default:
			return nil, err
		}
	}

	store := credentials.NewMemoryStore(pair)
	sess := m.opts.NewSession(id, store)

	e := &Entry{
		ID:      id,
		Session: sess,
		Profile: m.opts.NewProvider(sess),
		store:   store,
	}

	m.registry.SetDefault(id, e)

	return e, nil
}

// Entry — живое состояние сессии.
func (h *Handle) Entry() *Entry { return h.entry }

// WriteCookie записывает cookie, если пара изменилась или сессия новая и уже
// не пустая. Вызывается до отправки заголовков ответа.
func (h *Handle) WriteCookie(w http.ResponseWriter, r *http.Request) error {
	if h.cookieDone {
		return nil
	}

	pair := h.entry.store.Snapshot()
	dirty := h.entry.store.Dirty()

	if h.raw.IsNew && pair.Empty() {
		return nil
	}

	if !dirty && !h.raw.IsNew {
		return nil
	}

	if h.m.opts.Backend == nil {
		h.raw.Values[valueAccess] = pair.Access
		h.raw.Values[valueRefresh] = pair.Refresh
	}

	if err := h.raw.Save(r, w); err != nil {
		return fmt.Errorf("websession.Handle.WriteCookie: %w", err)
	}

	h.cookieDone = true

	return nil
}

// Persist сохраняет пару в бэкенд, если она изменилась. В режиме cookie ничего не делает.
func (h *Handle) Persist(ctx context.Context) error {
	const op = "websession.Handle.Persist"

	if h.m.opts.Backend == nil || !h.entry.store.Dirty() {
		return nil
	}

	if err := h.m.opts.Backend.Save(ctx, h.entry.ID, h.entry.store.Snapshot(), h.m.opts.MaxAge); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.entry.store.MarkClean()

	return nil
}

// Finish — конец запроса: cookie (если ещё можно) и бэкенд.
func (h *Handle) Finish(w http.ResponseWriter, r *http.Request) error {
	if err := h.WriteCookie(w, r); err != nil {
		return err
	}

	if err := h.Persist(r.Context()); err != nil {
		return err
	}

	if h.m.opts.Backend == nil && h.cookieDone {
		h.entry.store.MarkClean()
	}

	return nil
}

// Destroy — выход: токены и профиль очищены, запись удалена из реестра и
// бэкенда, cookie просрочена.
func (h *Handle) Destroy(w http.ResponseWriter, r *http.Request) error {
	const op = "websession.Handle.Destroy"

	h.entry.Session.Logout()
	h.entry.Profile.Clear()
	h.m.registry.Delete(h.entry.ID)

	if h.m.opts.Backend != nil {
		if err := h.m.opts.Backend.Delete(r.Context(), h.entry.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	h.raw.Values = map[interface{}]interface{}{}
	h.raw.Options.MaxAge = -1

	if err := h.raw.Save(r, w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.cookieDone = true

	return nil
}

// Rotate выдаёт сессии новый идентификатор (после логина), перенося живое состояние.
func (h *Handle) Rotate(ctx context.Context) error {
	const op = "websession.Handle.Rotate"

	old := h.entry.ID
	id := uuid.NewString()

	pair := h.entry.store.Snapshot()
	store := credentials.NewMemoryStore(pair)
	sess := h.m.opts.NewSession(id, store)

	e := &Entry{ID: id, Session: sess, Profile: h.m.opts.NewProvider(sess), store: store}

	h.m.mu.Lock()
	h.m.registry.Delete(old)
	h.m.registry.SetDefault(id, e)
	h.m.mu.Unlock()

	if h.m.opts.Backend != nil {
		if err := h.m.opts.Backend.Delete(ctx, old); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := h.m.opts.Backend.Save(ctx, id, pair, h.m.opts.MaxAge); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	h.entry = e
	h.raw.Values = map[interface{}]interface{}{valueID: id}
	h.raw.IsNew = true

	return nil
}

// Len — число живых записей (для тестов и отладки).
func (m *Manager) Len() int { return m.registry.ItemCount() }

type handleKey struct{}
type forcedKey struct{}

// Into кладёт хэндл, сессию, провайдер и флаг принудительного логина в контекст.
func Into(ctx context.Context, h *Handle) context.Context {
	ctx = context.WithValue(ctx, handleKey{}, h)
	ctx = context.WithValue(ctx, forcedKey{}, new(atomic.Bool))
	ctx = session.Into(ctx, h.entry.Session)

	return profile.Into(ctx, h.entry.Profile)
}

// FromContext — хэндл текущего запроса.
func FromContext(ctx context.Context) (*Handle, error) {
	h, ok := ctx.Value(handleKey{}).(*Handle)
	if !ok || h == nil {
		return nil, ErrNoSession
	}

	return h, nil
}

// Navigator — навигатор сессий шлюза: отмечает в контексте запроса, что
// сессия завершена и страница должна увести пользователя на логин.
var Navigator session.Navigator = session.NavigatorFunc(func(ctx context.Context) {
	if f, ok := ctx.Value(forcedKey{}).(*atomic.Bool); ok {
		f.Store(true)
	}
})

// ForcedLogin — была ли сессия принудительно завершена в этом запросе.
func ForcedLogin(ctx context.Context) bool {
	f, ok := ctx.Value(forcedKey{}).(*atomic.Bool)
	return ok && f.Load()
}
