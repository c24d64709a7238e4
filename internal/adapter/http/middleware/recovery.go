package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/iho/gojournal/internal/infrastructure/logger"
)

// Recovery recovers from panics and logs the error.
func Recovery(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l := logger.ForRequest(r.Context(), base)
				l.Error().
					Interface("error", rec).
					Str("stack", string(debug.Stack())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("panic recovered")

				writeError(w, http.StatusInternalServerError, "internal", "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
