// clients — исходящие подключения шлюза: REST API платформы и (необязательно)
// gRPC-апстрим уведомлений.
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/clients/interceptors"
	"github.com/pribylovaa/eventhub-web/internal/config"
	"github.com/pribylovaa/eventhub-web/internal/session"
)

const userAgent = "eventhub-web"

// Clients агрегирует клиенты апстримов.
type Clients struct {
	// API — клиент платформы; его запросы идут через credential-транспорт
	// с сессией из контекста запроса.
	API *api.Client
	// Notifications — nil, если апстрим уведомлений не настроен.
	Notifications *Notifications

	conns []*grpc.ClientConn
}

// HTTPClients — пара http.Client: с credential-транспортом и без него
// (для обновления токена, чтобы обновление не вызывало само себя).
func HTTPClients(timeout time.Duration, fixed *session.Session, log *slog.Logger) (authed, bare *http.Client) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	rt := interceptors.HTTPWithLogging(interceptors.HTTPWithMetadata(base, userAgent), log)

	bare = &http.Client{Timeout: timeout, Transport: rt}
	authed = &http.Client{Timeout: timeout, Transport: &session.Transport{Base: rt, Session: fixed}}

	return authed, bare
}

// New создаёт клиенты по конфигурации шлюза.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Clients, error) {
	const op = "clients.New"

	authed, bare := HTTPClients(cfg.Upstream.Timeout, nil, nil)

	apiClient, err := api.New(cfg.Upstream.BaseURL, authed, bare)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &Clients{API: apiClient}

	if addr := cfg.Upstream.GRPCNotificationsAddr; addr != "" {
		conn, err := Dial(addr, cfg.Timeouts.Service, log)
		if err != nil {
			return nil, fmt.Errorf("%s: notifications dial: %w", op, err)
		}

		c.conns = append(c.conns, conn)
		c.Notifications = NewNotifications(conn)
	}

	return c, nil
}

// Dial открывает gRPC-коннект с цепочкой клиентских интерсепторов:
// metadata -> credentials -> timeout -> logging -> prometheus.
// Таймаут стоит после credentials, поэтому повтор после обновления токена
// получает собственный дедлайн.
func Dial(addr string, timeout time.Duration, log *slog.Logger, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if addr == "" {
		return nil, fmt.Errorf("clients.Dial: empty upstream addr")
	}

	grpc_prometheus.EnableClientHandlingTimeHistogram()

	chain := grpc.WithChainUnaryInterceptor(
		interceptors.ClientWithMetadata(userAgent),
		session.UnaryClientInterceptor(nil),
		interceptors.ClientWithTimeout(timeout),
		interceptors.ClientUnaryLoggingInterceptor(log),
		grpc_prometheus.UnaryClientInterceptor,
	)

	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		chain,
	}, opts...)

	return grpc.NewClient(addr, all...)
}

// Ready — готовность апстримов для /healthz.
func (c *Clients) Ready(ctx context.Context) error {
	if c.Notifications == nil {
		return nil
	}

	return c.Notifications.Check(ctx)
}

// Close закрывает все открытые коннекты.
func (c *Clients) Close() error {
	var firstErr error
	for _, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
