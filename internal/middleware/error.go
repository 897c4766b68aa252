package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	logpkg "github.com/benvon/whatodo/internal/logger"
	"github.com/benvon/whatodo/internal/services/ai"
	"go.uber.org/zap"
)

// ErrorResponse is the envelope for errors raised outside the handlers
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler turns a handler panic into a logged JSON 500. http.ErrAbortHandler
// is re-raised so net/http can abort the connection quietly.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
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
				logger.Error("panic_recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("request_id", ai.ExtractRequestID(r.Context())),
					zap.StackSkip("stack", 2),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred", logger)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func respondErrorJSON(w http.ResponseWriter, r *http.Request, status int, errorType, message string, logger *zap.Logger) {
	body, err := json.Marshal(ErrorResponse{
		Error:     errorType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
		RequestID: ai.ExtractRequestID(r.Context()),
	})
	if err != nil {
		logger.Error("error_response_encode_failed", zap.Error(err), zap.Int("status_code", status))
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
