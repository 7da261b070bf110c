package middleware

import (
	"net/http"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/logging"
)

// Logging traces every request at debug level. It is mounted in development
// only; MetricsMiddleware writes the production access log.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.Debug("→ request",
			"request_id", auth.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
		)

		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(lw, r)

		logging.Debug("← response",
			"request_id", auth.GetRequestID(r.Context()),
			"status", lw.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}
