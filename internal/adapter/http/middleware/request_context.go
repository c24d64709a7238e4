package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/iho/gojournal/internal/domain"
)

// RequestIDHeader echoes the request id back to the caller.
const RequestIDHeader = "X-Request-ID"

// RequestContext copies the chi request id into the domain context so that
// audit records and logs carry it. It must run after chi's RequestID.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(domain.WithRequestID(r.Context(), id)))
	})
}
