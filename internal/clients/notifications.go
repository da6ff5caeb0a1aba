package clients

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Сервис уведомлений платформы. Контракт метода построен на well-known типах
// protobuf, поэтому сгенерированный клиент не нужен.
const (
	NotificationsService = "eventhub.notifications.v1.NotificationService"
	methodUnreadCount    = "/" + NotificationsService + "/UnreadCount"
)

// Notifications — клиент апстрима уведомлений.
type Notifications struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

func NewNotifications(conn *grpc.ClientConn) *Notifications {
	return &Notifications{conn: conn, health: healthpb.NewHealthClient(conn)}
}

// UnreadCount — число непрочитанных уведомлений пользователя. Требует сессию в
// контексте: токен прикрепляет credential-интерсептор.
func (n *Notifications) UnreadCount(ctx context.Context) (int64, error) {
	const op = "clients.Notifications.UnreadCount"

	out := &wrapperspb.Int64Value{}
	if err := n.conn.Invoke(ctx, methodUnreadCount, &emptypb.Empty{}, out); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return out.GetValue(), nil
}

// Check — grpc.health.v1 для сервиса уведомлений.
func (n *Notifications) Check(ctx context.Context) error {
	const op = "clients.Notifications.Check"

	resp, err := n.health.Check(ctx, &healthpb.HealthCheckRequest{Service: NotificationsService})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s: status %s", op, resp.GetStatus())
	}

	return nil
}
