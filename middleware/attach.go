package middleware

import (
	"net/http"

	"github.com/upb/reqlog/logger"
)

// Attach creates the per-request State bound to base and stores it in the
// request context. It must run before RequestID and any RequestLogger or
// Timer operations that should share the request state.
func Attach(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithState(r.Context(), NewState(base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
