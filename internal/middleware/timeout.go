package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout applies when no timeout is configured. AI routes need
// longer than this; the server derives their limit from AI_TIMEOUT.
const DefaultRequestTimeout = 30 * time.Second

const timeoutBody = `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`

// Timeout bounds handler run time; the handler's context is cancelled when it fires
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
