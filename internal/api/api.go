// api — клиент REST API платформы продажи билетов.
//
// Клиент использует два http.Client:
//   - authed — с credential-транспортом (internal/session), для защищённых ресурсов;
//   - bare — без него, для login/refresh: обновление токена никогда не проходит
//     через перехват 401, иначе renewal мог бы рекурсивно вызвать сам себя.
//
// Ошибки маппятся из HTTP-статусов в сентинелы пакета (см. errors.go).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pribylovaa/eventhub-web/internal/models"
)

// Пути эндпойнтов платформы.
const (
	PathLogin          = "/token"
	PathFederatedLogin = "/token/google"
	PathRefresh        = "/token/refresh"
	PathRevoke         = "/token/revoke"
	PathMe             = "/user/me"
	PathEvents         = "/events"
)

// maxErrorBody — сколько байт тела ошибки читаем для диагностики.
const maxErrorBody = 4 << 10

// Client — типизированный клиент платформы.
type Client struct {
	base     *url.URL
	authed   *http.Client
	bare     *http.Client
	validate *validator.Validate
}

// New создаёт клиент. authed должен содержать credential-транспорт;
// bare — обычный клиент с таймаутом.
func New(baseURL string, authed, bare *http.Client) (*Client, error) {
	const op = "api.New"

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: base url %q must be absolute", op, baseURL)
	}

	if bare == nil {
		bare = &http.Client{Timeout: 15 * time.Second}
	}

	if authed == nil {
		authed = bare
	}

	return &Client{
		base:     u,
		authed:   authed,
		bare:     bare,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Login — вход по паролю.
func (c *Client) Login(ctx context.Context, in models.LoginRequest) (models.TokenPair, error) {
	const op = "api.Login"

	if err := c.validate.Struct(in); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	}

	var out models.TokenPair
	if err := c.do(ctx, c.bare, http.MethodPost, PathLogin, in, &out); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.Access == "" || out.Refresh == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrMalformedResponse)
	}

	return out, nil
}

// FederatedLogin — вход через внешнего провайдера; результат такой же, как у Login.
func (c *Client) FederatedLogin(ctx context.Context, in models.FederatedLoginRequest) (models.TokenPair, error) {
	const op = "api.FederatedLogin"

	if err := c.validate.Struct(in); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	}

	var out models.TokenPair
	if err := c.do(ctx, c.bare, http.MethodPost, PathFederatedLogin, in, &out); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.Access == "" || out.Refresh == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrMalformedResponse)
	}

	return out, nil
}

// RefreshToken обменивает refresh-токен на новый access (POST /token/refresh).
// Реализует session.Refresher.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (models.RefreshResult, error) {
	const op = "api.RefreshToken"

	var out models.RefreshResult
	if err := c.do(ctx, c.bare, http.MethodPost, PathRefresh, models.RefreshRequest{Refresh: refresh}, &out); err != nil {
		return models.RefreshResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if out.Access == "" {
		return models.RefreshResult{}, fmt.Errorf("%s: %w", op, ErrMalformedResponse)
	}

	return out, nil
}

// Revoke отзывает refresh-токен на сервере (logout). Ошибка не мешает
// локальной очистке сессии — вызывающий решает сам.
func (c *Client) Revoke(ctx context.Context, refresh string) error {
	const op = "api.Revoke"

	if refresh == "" {
		return nil
	}

	if err := c.do(ctx, c.bare, http.MethodPost, PathRevoke, models.RevokeRequest{Refresh: refresh}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Me возвращает профиль текущего пользователя. Реализует profile.Fetcher.
func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	const op = "api.Me"

	var out models.Profile
	if err := c.do(ctx, c.authed, http.MethodGet, PathMe, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// UpdateMe частично обновляет профиль.
func (c *Client) UpdateMe(ctx context.Context, in models.ProfileUpdate) (*models.Profile, error) {
	const op = "api.UpdateMe"

	if err := c.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	}

	var out models.Profile
	if err := c.do(ctx, c.authed, http.MethodPatch, PathMe, in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// ListEvents — лента событий.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	const op = "api.ListEvents"

	var out []models.Event
	if err := c.do(ctx, c.authed, http.MethodGet, PathEvents, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// do выполняет запрос с JSON-телом и декодирует JSON-ответ в out (если out != nil).
// Тело передаётся через bytes.Reader, поэтому у запроса есть GetBody и
// credential-транспорт может повторить его после обновления токена.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(resp.StatusCode, detail)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}

// transportError сохраняет цепочку ошибок (в том числе ошибки обновления
// сессии из credential-транспорта) и помечает сетевые сбои как ErrUnavailable.
func transportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if errors.Is(uerr.Err, context.Canceled) || errors.Is(uerr.Err, context.DeadlineExceeded) {
			return uerr.Err
		}

		if isSessionError(uerr.Err) {
			return uerr.Err
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
