package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithDefaultTimeout навешивает дедлайн d, если у ctx его ещё нет.
// d <= 0 или существующий дедлайн — ctx без изменений.
func WithDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}

// ClientWithTimeout — дедлайн на попытку gRPC-вызова. В цепочке стоит после
// credential-интерсептора, так что повтор после обновления токена получает свой.
func ClientWithTimeout(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		cctx, cancel := WithDefaultTimeout(ctx, d)
		defer cancel()

		return invoker(cctx, method, req, reply, cc, opts...)
	}
}
