package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/models"
	"github.com/pribylovaa/eventhub-web/internal/storage/file"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ticketctl", cmd.Use)

	for _, name := range []string{"login", "logout", "status", "whoami"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "status"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid format")
}

func jwtWithExp(exp time.Time) string {
	s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	return s
}

type fakePlatform struct {
	access   atomic.Value // string
	refreshN atomic.Int32
	revokeN  atomic.Int32
}

func newFakePlatform(t *testing.T) (*fakePlatform, *httptest.Server) {
	t.Helper()

	p := &fakePlatform{}
	p.access.Store(jwtWithExp(time.Now().Add(time.Hour)))

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var in models.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.TokenPair{Access: p.access.Load().(string), Refresh: "refresh-1"})
	})
	mux.HandleFunc("POST "+api.PathRefresh, func(w http.ResponseWriter, _ *http.Request) {
		p.refreshN.Add(1)
		tok := jwtWithExp(time.Now().Add(2 * time.Hour))
		p.access.Store(tok)
		_ = json.NewEncoder(w).Encode(models.RefreshResult{Access: tok})
	})
	mux.HandleFunc("POST "+api.PathRevoke, func(w http.ResponseWriter, _ *http.Request) {
		p.revokeN.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET "+api.PathMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+p.access.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Profile{ID: 3, Email: "cli@example.com", FirstName: "Cli", LastName: "User"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return p, srv
}

// writeConfig — конфиг CLI во временном каталоге; возвращает путь к конфигу и к файлу токенов.
func writeConfig(t *testing.T, baseURL string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.yaml")
	cfg := filepath.Join(dir, "ticketctl.yaml")

	body := "base_url: " + baseURL + "\n" +
		"timeout: 2s\n" +
		"credentials_file: " + creds + "\n" +
		"account: test\n" +
		"renewal_timeout: 1s\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))

	return cfg, creds
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader("secret\n"))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginStatusWhoamiLogout(t *testing.T) {
	p, srv := newFakePlatform(t)
	cfg, creds := writeConfig(t, srv.URL)

	_, err := run(t, "--config", cfg, "login", "--email", "cli@example.com", "--password", "nope")
	require.Error(t, err)

	out, err := run(t, "--config", cfg, "login", "--email", "cli@example.com", "--password-stdin")
	require.NoError(t, err)
	require.Contains(t, out, "state: authenticated")

	stored, err := file.New(creds).Load(context.Background(), "test")
	require.NoError(t, err)
	require.Equal(t, "refresh-1", stored.Refresh)

	out, err = run(t, "--config", cfg, "--format", "json", "status")
	require.NoError(t, err)

	var st statusResult
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.Equal(t, "authenticated", st.State)
	require.True(t, st.Authenticated)
	require.NotNil(t, st.ExpiresAt)

	out, err = run(t, "--config", cfg, "--format", "json", "whoami")
	require.NoError(t, err)

	var me whoamiResult
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	require.Equal(t, "cli@example.com", me.Email)
	require.Equal(t, "Cli User", me.Name)
	require.False(t, me.IsComplete)

	out, err = run(t, "--config", cfg, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "state: anonymous")
	require.EqualValues(t, 1, p.revokeN.Load())

	_, err = run(t, "--config", cfg, "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestStatus_RefreshRenewsExpiredAccess(t *testing.T) {
	p, srv := newFakePlatform(t)
	cfg, creds := writeConfig(t, srv.URL)

	expired := credentials.Pair{Access: jwtWithExp(time.Now().Add(-time.Minute)), Refresh: "refresh-1"}
	require.NoError(t, file.New(creds).Save(context.Background(), "test", expired, 0))

	out, err := run(t, "--config", cfg, "status")
	require.NoError(t, err)
	require.Contains(t, out, "state: expired-pending-renewal")
	require.Contains(t, out, "authenticated: no")
	require.EqualValues(t, 0, p.refreshN.Load())

	out, err = run(t, "--config", cfg, "status", "--refresh")
	require.NoError(t, err)
	require.Contains(t, out, "state: authenticated")
	require.EqualValues(t, 1, p.refreshN.Load())

	// новый access сохранён в файл
	stored, err := file.New(creds).Load(context.Background(), "test")
	require.NoError(t, err)
	require.Equal(t, p.access.Load().(string), stored.Access)
}
