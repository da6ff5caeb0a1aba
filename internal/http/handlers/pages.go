package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/internal/profile"
	logctx "github.com/pribylovaa/eventhub-web/pkg/log"
)

type homePage struct {
	page
	Profile        *models.Profile
	Loading        bool
	ShowCompletion bool
	CompletionPath string
	HasUnread      bool
	Unread         int64
}

// Home — главная. Подсказка о заполнении профиля видна, только когда профиль
// загружен и неполон; во время загрузки её нет.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := homePage{page: newPage(r, "Home"), CompletionPath: h.Routes.Completion}

	if prov := profile.FromContext(ctx); prov != nil {
		st := prov.State()
		data.Profile = st.Profile
		data.Loading = st.IsLoading
		data.ShowCompletion = st.Loaded && !st.IsLoading && !st.IsComplete
	}

	if n := h.Clients.Notifications; n != nil && data.Authenticated {
		count, err := n.UnreadCount(ctx)
		switch {
		case err == nil:
			data.HasUnread, data.Unread = true, count
		case api.IsSessionTerminal(err):
			h.fail(w, r, err)
			return
		default:
			logctx.From(ctx).Warn("unread_count_failed", slog.String("err", err.Error()))
		}
	}

	h.render(w, r, http.StatusOK, "home", data)
}

type profileForm struct {
	FirstName string
	LastName  string
	Phone     string
	BirthDate string
	Sex       string
}

func formFromProfile(p *models.Profile) profileForm {
	if p == nil {
		return profileForm{}
	}

	deref := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}

	return profileForm{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     deref(p.Phone),
		BirthDate: deref(p.BirthDate),
		Sex:       deref(p.Sex),
	}
}

type profilePage struct {
	page
	Form       profileForm
	Incomplete bool
	Error      string
}

// ProfilePage — форма профиля; это же маршрут дозаполнения.
func (h *Handlers) ProfilePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	prov := profile.FromContext(ctx)
	if prov == nil {
		h.fail(w, r, errors.New("profile provider missing"))
		return
	}

	if err := prov.Load(ctx); err != nil {
		h.fail(w, r, err)
		return
	}

	st := prov.State()
	if st.Err != nil && st.Profile == nil {
		h.fail(w, r, st.Err)
		return
	}

	h.render(w, r, http.StatusOK, "profile", profilePage{
		page:       newPage(r, "Profile"),
		Form:       formFromProfile(st.Profile),
		Incomplete: !profile.IsComplete(st.Profile),
	})
}

// UpdateProfile сохраняет профиль и перезагружает кэш сессии: флаг полноты
// сразу отражает изменения.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.fail(w, r, api.ErrInvalidArgument)
		return
	}

	in := models.ProfileUpdate{
		FirstName: optional(r, "first_name"),
		LastName:  optional(r, "last_name"),
		Phone:     optional(r, "phone"),
		BirthDate: optional(r, "birth_date"),
		Sex:       optional(r, "sex"),
	}

	if _, err := h.Clients.API.UpdateMe(ctx, in); err != nil {
		if errors.Is(err, api.ErrInvalidArgument) {
			h.render(w, r, http.StatusBadRequest, "profile", profilePage{
				page: newPage(r, "Profile"),
				Form: profileForm{
					FirstName: formValue(r, "first_name"),
					LastName:  formValue(r, "last_name"),
					Phone:     formValue(r, "phone"),
					BirthDate: formValue(r, "birth_date"),
					Sex:       formValue(r, "sex"),
				},
				Error: "Some fields are invalid",
			})
			return
		}

		h.fail(w, r, err)
		return
	}

	target := h.Routes.Completion
	if prov := profile.FromContext(ctx); prov != nil {
		if err := prov.Refresh(ctx); err != nil {
			h.fail(w, r, err)
			return
		}

		if prov.State().IsComplete {
			target = h.Routes.Home
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type eventsPage struct {
	page
	Events []models.Event
}

// Events — лента событий; доступна при полном профиле.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.Clients.API.ListEvents(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "events", eventsPage{page: newPage(r, "Events"), Events: events})
}
