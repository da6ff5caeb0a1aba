package interceptors

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type CtxKey string

// CtxRequestID — ключ X-Request-Id входящего запроса шлюза.
const CtxRequestID CtxKey = "request_id"

// RequestID достаёт id запроса из контекста.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(CtxRequestID).(string)
	return rid
}

// ClientWithMetadata — добавляет в исходящий gRPC вызов заголовки:
//   - x-request-id (если есть в контексте),
//   - user-agent (если передан параметром).
//
// authorization добавляет credential-интерсептор сессии.
func ClientWithMetadata(userAgent string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var pairs []string

		if rid := RequestID(ctx); rid != "" {
			pairs = append(pairs, "x-request-id", rid)
		}
		if userAgent != "" {
			pairs = append(pairs, "user-agent", userAgent)
		}
		if len(pairs) > 0 {
			ctx = metadata.AppendToOutgoingContext(ctx, pairs...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
