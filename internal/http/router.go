package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/eventhub-web/internal/clients"
	"github.com/pribylovaa/eventhub-web/internal/guard"
	"github.com/pribylovaa/eventhub-web/internal/http/handlers"
	"github.com/pribylovaa/eventhub-web/internal/http/middleware"
	"github.com/pribylovaa/eventhub-web/internal/websession"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	Sessions *websession.Manager
	Guards   *guard.Guards
	Routes   handlers.Routes
	// Metrics — nil отключает HTTP-метрики.
	Metrics middleware.HTTPObserver
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/страницами.
func NewRouter(cl *clients.Clients, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // X-Request-Id до логирования
		middleware.Logging(opts.Logger), // request-scoped логгер в контексте
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}
	root.Use(middleware.Session(opts.Sessions)) // сессия браузера, cookie, фоновый профиль

	h := handlers.New(cl, opts.Routes)

	g := opts.Guards
	if g == nil {
		g = guard.New(guard.Options{
			LoginPath:      h.Routes.Login,
			HomePath:       h.Routes.Home,
			CompletionPath: h.Routes.Completion,
		})
	}

	registerRoutes(root, h, g, h.Routes)

	return root
}

// registerRoutes — единая точка регистрации страниц.
func registerRoutes(r chi.Router, h *handlers.Handlers, g *guard.Guards, routes handlers.Routes) {
	r.Get("/session", h.SessionState)
	r.Post("/logout", h.Logout)

	// только для анонимных
	r.Group(func(r chi.Router) {
		r.Use(g.RequireAnonymous())
		r.Get(routes.Login, h.LoginPage)
		r.Post(routes.Login, h.Login)
		r.Post(routes.Login+"/google", h.FederatedLogin)
	})

	// требуют входа
	r.Group(func(r chi.Router) {
		r.Use(g.RequireAuth())
		r.Get(routes.Home, h.Home)
		r.Get("/profile", h.ProfilePage)
		r.Post("/profile", h.UpdateProfile)

		// требуют полного профиля
		r.Group(func(r chi.Router) {
			r.Use(g.RequireCompleteProfile())
			r.Get("/events", h.Events)
		})
	})
}
