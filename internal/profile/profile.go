// profile — кэш профиля пользователя на сессию и производный флаг полноты.
//
// Provider загружает профиль не более одного раза на сессию (конкурентные Load
// ждут одну загрузку), хранит {Profile, IsComplete, IsLoading} и даёт Refresh
// для явной перезагрузки после редактирования профиля. Guard'ы читают состояние
// провайдера и никогда не загружают профиль сами.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// DefaultFetchTimeout — таймаут одной загрузки профиля.
const DefaultFetchTimeout = 10 * time.Second

// Fetcher — эндпойнт профиля (GET /user/me).
type Fetcher interface {
	Me(ctx context.Context) (*models.Profile, error)
}

// FailurePolicy — что считать полнотой профиля, если загрузка не удалась.
type FailurePolicy int

const (
	// FailOpen — при ошибке профиль считается полным: сетевой сбой не блокирует навигацию.
	FailOpen FailurePolicy = iota
	// FailClosed — при ошибке профиль считается неполным.
	FailClosed
)

var ErrUnknownPolicy = errors.New("unknown failure policy")

// ParsePolicy разбирает значение из конфигурации ("fail_open" | "fail_closed").
func ParsePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail_open", "open":
		return FailOpen, nil
	case "fail_closed", "closed":
		return FailClosed, nil
	default:
		return FailOpen, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}

	return "fail_open"
}

// IsComplete — чистая функция трёх обязательных полей: телефон, дата рождения, пол.
// Поле заполнено, если оно не nil и не пустое после TrimSpace.
func IsComplete(p *models.Profile) bool {
	if p == nil {
		return false
	}

	return present(p.Phone) && present(p.BirthDate) && present(p.Sex)
}

func present(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

// State — снимок состояния провайдера.
type State struct {
	Profile    *models.Profile
	IsComplete bool
	IsLoading  bool
	// Loaded — была хотя бы одна завершённая загрузка (успешная или нет).
	Loaded bool
	// Err — ошибка последней загрузки.
	Err error
}

// Options — параметры провайдера.
type Options struct {
	Policy FailurePolicy
	// HasCredential — есть ли у сессии учётные данные; без них профиль не грузится.
	// nil — считаем, что есть.
	HasCredential func() bool
	FetchTimeout  time.Duration
}

// Provider — состояние профиля одной сессии.
type Provider struct {
	fetcher Fetcher
	opts    Options

	mu       sync.Mutex
	state    State
	inflight chan struct{}
	gen      uint64
}

// NewProvider создаёт провайдер.
func NewProvider(fetcher Fetcher, opts Options) *Provider {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	return &Provider{fetcher: fetcher, opts: opts}
}

// State возвращает снимок текущего состояния.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Policy — политика на случай ошибки загрузки.
func (p *Provider) Policy() FailurePolicy { return p.opts.Policy }

// Load загружает профиль, если он ещё не загружен в этой сессии.
// Идемпотентен: повторные вызовы после загрузки ничего не делают, конкурентные — ждут
// текущую загрузку. Без учётных данных ничего не загружает.
func (p *Provider) Load(ctx context.Context) error {
	p.mu.Lock()

	if p.state.Loaded {
		p.mu.Unlock()
		return nil
	}

	if ch := p.inflight; ch != nil {
		p.mu.Unlock()
		return wait(ctx, ch)
	}

	if p.opts.HasCredential != nil && !p.opts.HasCredential() {
		p.mu.Unlock()
		return nil
	}

	ch := p.begin()
	p.mu.Unlock()

	p.fetch(ctx, ch)

	return nil
}

// Start запускает Load в фоне; guard'ы видят IsLoading, пока загрузка идёт.
func (p *Provider) Start(ctx context.Context) {
	p.mu.Lock()
	if p.state.Loaded || p.inflight != nil || (p.opts.HasCredential != nil && !p.opts.HasCredential()) {
		p.mu.Unlock()
		return
	}

	ch := p.begin()
	p.mu.Unlock()

	go p.fetch(ctx, ch)
}

// Refresh принудительно перезагружает профиль (например, после его изменения).
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if ch := p.inflight; ch != nil {
		p.mu.Unlock()
		if err := wait(ctx, ch); err != nil {
			return err
		}
		p.mu.Lock()
	}

	// Без учётных данных прежний профиль недостоверен: состояние обнуляется.
	if p.opts.HasCredential != nil && !p.opts.HasCredential() {
		p.state = State{IsLoading: p.state.IsLoading}
		p.mu.Unlock()
		return nil
	}

	p.state.Loaded = false
	p.mu.Unlock()

	return p.Load(ctx)
}

// Wait блокируется, пока идёт загрузка (или до отмены ctx).
func (p *Provider) Wait(ctx context.Context) error {
	p.mu.Lock()
	ch := p.inflight
	p.mu.Unlock()

	if ch == nil {
		return nil
	}

	return wait(ctx, ch)
}

// Clear сбрасывает состояние (logout). Результат загрузки, начатой до Clear, отбрасывается.
func (p *Provider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	p.state = State{}
	if p.inflight != nil {
		close(p.inflight)
		p.inflight = nil
	}
}

// begin отмечает начало загрузки; вызывается под p.mu.
func (p *Provider) begin() chan struct{} {
	ch := make(chan struct{})
	p.inflight = ch
	p.state.IsLoading = true

	return ch
}

func (p *Provider) fetch(parent context.Context, ch chan struct{}) {
	const op = "profile.Provider.fetch"

	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	// Загрузка общая для всех ожидающих: отмена одного вызывающего её не прерывает.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.opts.FetchTimeout)
	defer cancel()

	prof, err := p.fetcher.Me(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.inflight != ch {
		return
	}

	p.state.IsLoading = false
	p.state.Loaded = true
	p.state.Err = err

	if err != nil {
		p.state.IsComplete = p.opts.Policy == FailOpen
		log.From(parent).Warn("profile_fetch_failed",
			slog.String("op", op),
			slog.String("policy", p.opts.Policy.String()),
			slog.String("err", err.Error()),
		)
	} else {
		p.state.Profile = prof
		p.state.IsComplete = IsComplete(prof)
	}

	close(ch)
	p.inflight = nil
}

func wait(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ctxKey struct{}

// Into кладёт провайдер сессии в контекст запроса.
func Into(ctx context.Context, p *Provider) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext достаёт провайдер (nil, если его нет).
func FromContext(ctx context.Context) *Provider {
	p, _ := ctx.Value(ctxKey{}).(*Provider)
	return p
}
