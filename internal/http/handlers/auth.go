package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/internal/websession"
	logctx "github.com/pribylovaa/eventhub-web/pkg/log"
)

type loginPage struct {
	page
	Next  string
	Email string
	Error string
}

func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", loginPage{
		page: newPage(r, "Sign in"),
		Next: safeNext(r.URL.Query().Get("next"), ""),
	})
}

// Login — вход по паролю.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r, http.StatusBadRequest, "", "invalid form")
		return
	}

	in := models.LoginRequest{
		Email:    formValue(r, "email"),
		Password: r.PostFormValue("password"),
	}

	pair, err := h.Clients.API.Login(r.Context(), in)
	if err != nil {
		h.loginError(w, r, in.Email, err)
		return
	}

	h.startSession(w, r, pair)
}

// FederatedLogin — вход через внешнего провайдера: браузер передаёт полученный
// у провайдера credential, платформа выдаёт обычную пару токенов.
func (h *Handlers) FederatedLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.loginFailed(w, r, http.StatusBadRequest, "", "invalid form")
		return
	}

	pair, err := h.Clients.API.FederatedLogin(r.Context(), models.FederatedLoginRequest{
		Credential: formValue(r, "credential"),
	})
	if err != nil {
		h.loginError(w, r, "", err)
		return
	}

	h.startSession(w, r, pair)
}

// startSession: новый идентификатор сессии, сохранение пары, фоновая загрузка профиля.
func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, pair models.TokenPair) {
	ws, err := websession.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := ws.Rotate(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := websession.Into(r.Context(), ws)
	e := ws.Entry()
	e.Session.Login(pair)
	e.Profile.Start(ctx)

	logctx.From(ctx).Info("login", slog.String("session", e.ID))

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, safeNext(r.PostFormValue("next"), h.Routes.Home), http.StatusSeeOther)
}

func (h *Handlers) loginError(w http.ResponseWriter, r *http.Request, email string, err error) {
	switch {
	case errors.Is(err, api.ErrInvalidArgument), errors.Is(err, api.ErrUnauthenticated):
		logctx.From(r.Context()).Info("login_rejected", slog.String("err", err.Error()))
		h.loginFailed(w, r, http.StatusUnauthorized, email, "Invalid credentials")
	default:
		h.fail(w, r, err)
	}
}

func (h *Handlers) loginFailed(w http.ResponseWriter, r *http.Request, status int, email, msg string) {
	h.render(w, r, status, "login", loginPage{
		page:  newPage(r, "Sign in"),
		Next:  safeNext(r.PostFormValue("next"), ""),
		Email: email,
		Error: msg,
	})
}

// Logout отзывает refresh-токен (без гарантии) и уничтожает сессию браузера.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ws, err := websession.FromContext(r.Context())
	if err != nil {
		h.toLogin(w, r)
		return
	}

	if refresh, ok := ws.Entry().Session.Store().Get(credentials.Refresh); ok {
		if err := h.Clients.API.Revoke(r.Context(), refresh); err != nil {
			logctx.From(r.Context()).Warn("revoke_failed", slog.String("err", err.Error()))
		}
	}

	if err := ws.Destroy(w, r); err != nil {
		logctx.From(r.Context()).Error("session_destroy_failed", slog.String("err", err.Error()))
	}

	h.toLogin(w, r)
}
