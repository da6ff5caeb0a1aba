// guard — навигационные guard'ы страниц шлюза.
//
// Решения принимаются чистыми функциями Decide*, мидлвары только применяют их:
// рендер, плейсхолдер загрузки или редирект (303) на фиксированный путь.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/pribylovaa/eventhub-web/internal/profile"
	"github.com/pribylovaa/eventhub-web/internal/session"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// Decision — итог guard'а для одного перехода.
type Decision int

const (
	Loading Decision = iota
	Render
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Имена guard'ов в логах и метриках.
const (
	NameAuth      = "auth"
	NameAnonymous = "anonymous"
	NameProfile   = "profile"
)

// DefaultLoadingWait — сколько профильный guard ждёт загрузку до показа плейсхолдера.
const DefaultLoadingWait = 2 * time.Second

// DecideAuthenticated — guard только для аутентифицированных.
func DecideAuthenticated(fresh bool) Decision {
	if fresh {
		return Render
	}

	return RedirectLogin
}

// DecideAnonymous — зеркальный guard для страниц логина.
func DecideAnonymous(fresh bool) Decision {
	if fresh {
		return RedirectHome
	}

	return Render
}

// DecideProfile — guard полноты профиля. На маршруте завершения профиля
// всегда рендерим: подсказка о заполнении показывается там же.
func DecideProfile(current, completion string, st profile.State) Decision {
	if st.IsLoading {
		return Loading
	}

	if samePath(current, completion) || st.IsComplete {
		return Render
	}

	return RedirectHome
}

func samePath(a, b string) bool {
	return path.Clean("/"+a) == path.Clean("/"+b)
}

// Recorder — приёмник решений (метрики).
type Recorder interface {
	GuardDecision(guard, decision string)
}

// Options — фиксированные пути и параметры guard'ов.
type Options struct {
	LoginPath string
	HomePath  string
	// CompletionPath — маршрут, где пользователь дозаполняет профиль.
	CompletionPath string
	LoadingWait    time.Duration
	Recorder       Recorder
}

// Guards — набор guard'ов с общими путями.
type Guards struct {
	opts Options
}

// New создаёт guard'ы; пустые пути заменяются на "/login" и "/".
func New(opts Options) *Guards {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}

	if opts.HomePath == "" {
		opts.HomePath = "/"
	}

	if opts.CompletionPath == "" {
		opts.CompletionPath = opts.HomePath
	}

	if opts.LoadingWait <= 0 {
		opts.LoadingWait = DefaultLoadingWait
	}

	return &Guards{opts: opts}
}

// RequireAuth пропускает только при свежей сессии (EnsureFresh может обновить токен).
// Иначе — редирект на логин с параметром next.
func (g *Guards) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			fresh := s != nil && s.EnsureFresh(r.Context())

			d := DecideAuthenticated(fresh)
			g.record(r.Context(), NameAuth, d)

			if d == RedirectLogin {
				g.redirect(w, r, g.loginTarget(r))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnonymous не пускает уже вошедшего пользователя на страницы логина.
func (g *Guards) RequireAnonymous() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			fresh := s != nil && s.EnsureFresh(r.Context())

			d := DecideAnonymous(fresh)
			g.record(r.Context(), NameAnonymous, d)

			if d == RedirectHome {
				g.redirect(w, r, g.opts.HomePath)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireCompleteProfile читает состояние провайдера профиля сессии.
// Собственной загрузки нет: guard лишь запускает идемпотентную загрузку провайдера
// и ждёт её не дольше LoadingWait, после чего отдаёт плейсхолдер загрузки.
// Ставится после RequireAuth.
func (g *Guards) RequireCompleteProfile() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			prov := profile.FromContext(ctx)
			if prov == nil {
				g.record(ctx, NameProfile, Render)
				next.ServeHTTP(w, r)
				return
			}

			prov.Start(ctx)

			wctx, cancel := context.WithTimeout(ctx, g.opts.LoadingWait)
			_ = prov.Wait(wctx)
			cancel()

			d := DecideProfile(r.URL.Path, g.opts.CompletionPath, prov.State())
			g.record(ctx, NameProfile, d)

			switch d {
			case Loading:
				writeLoading(w, g.opts.LoadingWait)
			case RedirectHome:
				g.redirect(w, r, g.opts.CompletionPath)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// loginTarget — путь логина с возвратом на текущую страницу (только для GET).
func (g *Guards) loginTarget(r *http.Request) string {
	if r.Method != http.MethodGet || samePath(r.URL.Path, g.opts.LoginPath) {
		return g.opts.LoginPath
	}

	return g.opts.LoginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
}

func (g *Guards) redirect(w http.ResponseWriter, r *http.Request, to string) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (g *Guards) record(ctx context.Context, name string, d Decision) {
	if g.opts.Recorder != nil {
		g.opts.Recorder.GuardDecision(name, d.String())
	}

	if d == RedirectLogin || d == RedirectHome {
		log.From(ctx).Info("guard_redirect",
			slog.String("guard", name),
			slog.String("decision", d.String()),
		)
	}
}

const loadingPage = `<!doctype html><html><head><meta charset="utf-8"><title>Loading</title></head>` +
	`<body><p>Loading...</p></body></html>`

// writeLoading — плейсхолдер: контент страницы не отдаётся, браузер повторит запрос.
func writeLoading(w http.ResponseWriter, wait time.Duration) {
	secs := int(wait.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Retry-After", strconv.Itoa(secs))
	h.Set("Refresh", strconv.Itoa(secs))
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(loadingPage))
}
