package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/benvon/whatodo/internal/logger"
	"github.com/benvon/whatodo/internal/request"
	"github.com/benvon/whatodo/internal/services/ai"
	"go.uber.org/zap"
)

// Logging writes one http_request entry per request
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			level := logger.Info
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = logger.Warn
			}
			level("http_request",
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("client_ip", request.ClientIP(r)),
				zap.String("request_id", ai.ExtractRequestID(r.Context())),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through so streaming handlers keep working behind the logger
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
