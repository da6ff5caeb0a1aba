package session

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// UnaryClientInterceptor — credential-мидлвар для gRPC-апстримов.
// Протокол тот же, что у Transport: authorization: Bearer в metadata, на
// codes.Unauthenticated — не более одного обновления и одного повтора.
//
// fixed == nil — сессия берётся из контекста вызова.
func UnaryClientInterceptor(fixed *Session) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		const op = "session.UnaryClientInterceptor"

		s := fixed
		if s == nil {
			s = FromContext(ctx)
		}

		if s == nil {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		sent, _ := s.store.Get(credentials.Access)
		err := invoker(withBearer(ctx, sent), method, req, reply, cc, opts...)
		if status.Code(err) != codes.Unauthenticated || retryMarked(ctx) {
			return err
		}

		ctx = withRetryMarker(ctx)

		current, _ := s.store.Get(credentials.Access)
		if current == "" || current == sent {
			if _, ok := s.store.Get(credentials.Refresh); !ok {
				log.From(ctx).Info("unauthenticated_without_refresh", slog.String("op", op), slog.String("method", method))
				s.Terminate(ctx)

				return err
			}

			renewed, rerr := s.renewer.RenewStale(ctx, sent)
			if rerr != nil {
				return rerr
			}
			current = renewed
		}

		return invoker(withBearer(ctx, current), method, req, reply, cc, opts...)
	}
}

func withBearer(ctx context.Context, access string) context.Context {
	if access == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+access)
}
