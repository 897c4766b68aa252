package middleware

import (
	"mime"
	"net/http"

	"go.uber.org/zap"
)

// DefaultMaxRequestSize caps request bodies at 1MB
const DefaultMaxRequestSize int64 = 1 << 20

var bodyLogger = zap.NewNop()

// MaxRequestSize answers 413 when the declared length exceeds maxBytes and
// caps undeclared bodies while the handler reads them
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondErrorJSON(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body is too large", bodyLogger)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ContentType requires application/json on POST, PUT and PATCH requests that
// carry a body. Bodiless POSTs such as /schedule/generate pass through.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasBodyMethod(r.Method) || r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}
		raw := r.Header.Get("Content-Type")
		if raw == "" {
			respondErrorJSON(w, r, http.StatusBadRequest, "Bad Request", "Content-Type header is required", bodyLogger)
			return
		}
		if mediaType, _, err := mime.ParseMediaType(raw); err != nil || mediaType != "application/json" {
			respondErrorJSON(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Content-Type must be application/json", bodyLogger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasBodyMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
