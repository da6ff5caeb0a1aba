// handlers — страницы веб-шлюза и JSON-эндпойнт состояния сессии.
package handlers

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/clients"
	apierrors "github.com/pribylovaa/eventhub-web/internal/errors"
	"github.com/pribylovaa/eventhub-web/internal/session"
	"github.com/pribylovaa/eventhub-web/internal/websession"
	logctx "github.com/pribylovaa/eventhub-web/pkg/log"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Routes — фиксированные пути страниц.
type Routes struct {
	Login      string
	Home       string
	Completion string
}

// Handlers агрегирует зависимости страниц.
type Handlers struct {
	Clients *clients.Clients
	Routes  Routes
	pages   *template.Template
}

func New(c *clients.Clients, routes Routes) *Handlers {
	if routes.Login == "" {
		routes.Login = "/login"
	}

	if routes.Home == "" {
		routes.Home = "/"
	}

	if routes.Completion == "" {
		routes.Completion = "/profile"
	}

	return &Handlers{
		Clients: c,
		Routes:  routes,
		pages:   template.Must(template.ParseFS(templatesFS, "templates/*.html")),
	}
}

// page — общие поля всех шаблонов.
type page struct {
	Title         string
	Authenticated bool
}

func newPage(r *http.Request, title string) page {
	s := session.FromContext(r.Context())
	return page{Title: title, Authenticated: s != nil && s.IsAuthenticated()}
}

// render отдаёт HTML-страницу; страницы с данными сессии не кэшируются.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		logctx.From(r.Context()).Error("template_failed",
			slog.String("template", name),
			slog.String("err", err.Error()),
		)
	}
}

// fail — единая обработка ошибки страницы. Завершённая сессия уводит на логин,
// прочее — страница ошибки со статусом из apierrors.ToHTTP.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if websession.ForcedLogin(r.Context()) || api.IsSessionTerminal(err) || isNoSession(err) {
		h.toLogin(w, r)
		return
	}

	status, resp := apierrors.ToHTTP(err)
	logctx.From(r.Context()).Warn("page_failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("err", err.Error()),
	)

	h.render(w, r, status, "error", struct {
		page
		Status    int
		Message   string
		RequestID string
	}{
		page:      newPage(r, "Error"),
		Status:    status,
		Message:   resp.Error.Message,
		RequestID: r.Header.Get("X-Request-Id"),
	})
}

func (h *Handlers) toLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.Routes.Login, http.StatusSeeOther)
}

func isNoSession(err error) bool {
	return errors.Is(err, websession.ErrNoSession)
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// safeNext — локальный путь для возврата после логина; всё остальное заменяется fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}

	return u.RequestURI()
}

// formValue — обрезанное значение поля формы.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

// optional — nil для пустого поля формы.
func optional(r *http.Request, key string) *string {
	v := formValue(r, key)
	if v == "" {
		return nil
	}

	return &v
}
