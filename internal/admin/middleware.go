// internal/admin/middleware.go
package admin

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// logMiddleware logs each admin request with method, path and duration.
func logMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("admin request")
		})
	}
}
