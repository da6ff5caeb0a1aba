package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/eventhub-web/internal/clients/interceptors"
)

// HeaderRequestID — заголовок корреляции запросов шлюза и платформы.
const HeaderRequestID = "X-Request-Id"

const maxRequestIDLen = 64

// RequestID обеспечивает наличие X-Request-Id.
//
// Входящий id принимается, только если он короткий и состоит из [A-Za-z0-9._:-]:
// он уходит дальше в заголовки платформы и в метаданные gRPC. Иначе выдаётся
// новый UUID. Итоговый id кладётся в ответ, в заголовок запроса (для
// apierrors.WriteError) и в контекст по ключу interceptors.CtxRequestID.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if !validRequestID(id) {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)

			ctx := context.WithValue(r.Context(), interceptors.CtxRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}

	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}

	return true
}
