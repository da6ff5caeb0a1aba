package handlers

import (
	"net/http"

	"github.com/pribylovaa/eventhub-web/internal/profile"
	"github.com/pribylovaa/eventhub-web/internal/session"
)

type profileStateOut struct {
	Loaded     bool   `json:"loaded"`
	IsLoading  bool   `json:"is_loading"`
	IsComplete bool   `json:"is_complete"`
	Policy     string `json:"failure_policy"`
}

type sessionStateOut struct {
	State         string           `json:"state"`
	Authenticated bool             `json:"authenticated"`
	Profile       *profileStateOut `json:"profile,omitempty"`
}

// SessionState — состояние сессии для скриптов страницы. Токены не отдаются.
func (h *Handlers) SessionState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := sessionStateOut{State: session.Anonymous.String()}

	s := session.FromContext(ctx)
	if s != nil {
		out.State = s.State().String()
		out.Authenticated = s.IsAuthenticated()
	}

	if prov := profile.FromContext(ctx); prov != nil && s != nil && s.State().Active() {
		st := prov.State()
		out.Profile = &profileStateOut{
			Loaded:     st.Loaded,
			IsLoading:  st.IsLoading,
			IsComplete: st.IsComplete,
			Policy:     prov.Policy().String(),
		}
	}

	writeJSON(w, http.StatusOK, out)
}
