package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/reqlog/logger"
)

// RequestIDHeader is the header consulted for an inbound correlation id and
// set on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID derives a correlation id from the X-Request-ID header, or
// generates one, echoes it on the response, and rebinds the request logger
// to a child carrying the id so every record of the request shares it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := WithRequestID(r.Context(), id)
		if st := GetStateFromContext(ctx); st != nil {
			st.bindLogger(st.Logger().Child(logger.Fields{"request_id": id}))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
