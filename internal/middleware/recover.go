package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/tipatpati/golden-phone-management-sub007/internal/telemetry"
)

// Recover converts handler panics into 500 responses instead of killing the
// connection, logging the stack and reporting to Sentry when enabled.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				GetLogger(r.Context()).Error("panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				if err, ok := rec.(error); ok {
					telemetry.CaptureError(err, map[string]interface{}{
						"path": r.URL.Path,
					})
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
